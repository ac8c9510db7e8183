// Package bootstrap wires the application graph and exposes the command
// surface a host (CLI or desktop shell) drives.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/doc2md/doc2md/internal/config"
	"github.com/doc2md/doc2md/internal/core/domain"
	"github.com/doc2md/doc2md/internal/core/usecase"
	"github.com/doc2md/doc2md/internal/infrastructure/httpengine"
	"github.com/doc2md/doc2md/internal/infrastructure/llm"
	"github.com/doc2md/doc2md/internal/infrastructure/ocr/glm"
	"github.com/doc2md/doc2md/internal/infrastructure/queue/memory"
	"github.com/doc2md/doc2md/internal/infrastructure/vault"
	"github.com/doc2md/doc2md/internal/observability/metrics"
	"github.com/doc2md/doc2md/internal/worker"
)

type App struct {
	Config  config.Config
	Log     *slog.Logger
	Metrics *metrics.WorkerMetrics

	queue    *memory.Queue
	store    *vault.ProfileStore
	profiles *worker.ProfileCache
	worker   *worker.Worker
}

// Options lets the host hook queue-changed notifications (UI refresh etc.).
type Options struct {
	OnQueueChanged func()
}

func New(cfg config.Config, log *slog.Logger, opts Options) *App {
	engine := httpengine.New(httpengine.Config{
		RequestTimeout: cfg.RequestTimeout,
		RetryMax:       cfg.RetryMax,
		RetryBase:      cfg.RetryBase,
		RateLimit:      cfg.HTTPRateLimit,
		BreakerEnabled: cfg.BreakerEnabled,
	}, log)

	jobQueue := memory.NewQueue()
	profiles := worker.NewProfileCache()
	workerMetrics := metrics.NewWorkerMetrics()

	ocrClient := glm.NewClient(engine, glm.Config{
		APIKey:       cfg.GLMAPIKey,
		OCRModel:     cfg.GLMOCRModel,
		OCRURL:       cfg.GLMOCRURL,
		FileParseURL: cfg.GLMFileParseURL,
		MaxOCRChars:  cfg.MaxOCRChars,
	}, log)

	convert := func(ctx context.Context, job domain.Job, profile domain.ProviderProfile, traceID string) error {
		llmCfg, err := llm.ConfigFromProfile(profile, cfg.SystemPrompt, cfg.AnthropicVersion, cfg.AnthropicMaxTokens)
		if err != nil {
			return err
		}
		pipeline := usecase.NewConvertDocumentUseCase(ocrClient, llm.NewStructurer(engine, llmCfg), log)
		return pipeline.Convert(ctx, job.Input, usecase.ResolveOutputPath(job.Input), traceID)
	}

	w := worker.New(jobQueue, profiles, convert, log, worker.Options{
		PollInterval: cfg.PollInterval,
		PruneKeep:    cfg.MaxCompletedJobs,
		OnChange:     opts.OnQueueChanged,
		Metrics:      workerMetrics,
	})

	return &App{
		Config:   cfg,
		Log:      log,
		Metrics:  workerMetrics,
		queue:    jobQueue,
		store:    vault.NewProfileStore(vault.ResolveStorePath(cfg.ProfileStorePath)),
		profiles: profiles,
		worker:   w,
	}
}

// RunWorker blocks driving the queue until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) {
	a.worker.Run(ctx)
}

// EnqueueFiles registers the inputs and wakes the worker, returning the
// assigned job ids in input order.
func (a *App) EnqueueFiles(files []string) []domain.JobID {
	ids := make([]domain.JobID, 0, len(files))
	for _, file := range files {
		ids = append(ids, a.queue.Enqueue(file))
	}
	a.worker.Wake()
	return ids
}

func (a *App) Wake() {
	a.worker.Wake()
}

// RetryJob puts a job back in line with a fresh retry budget.
func (a *App) RetryJob(id domain.JobID) {
	a.queue.Requeue(id)
	a.worker.Wake()
}

func (a *App) Jobs() []domain.Job {
	return a.queue.List()
}

func (a *App) Job(id domain.JobID) (domain.Job, bool) {
	return a.queue.Get(id)
}

// LoadProfiles decrypts the store and caches the result as the session's
// active profile list.
func (a *App) LoadProfiles(passphrase string) ([]domain.ProviderProfile, error) {
	profiles, err := a.store.LoadAll(passphrase)
	if err != nil {
		return nil, err
	}
	a.profiles.Set(profiles)
	return profiles, nil
}

// SaveProfiles validates, encrypts and fully overwrites the store, then
// refreshes the session cache.
func (a *App) SaveProfiles(passphrase string, profiles []domain.ProviderProfile) error {
	if err := domain.ValidateProfiles(profiles); err != nil {
		return err
	}
	if err := a.store.SaveAll(passphrase, profiles); err != nil {
		return err
	}
	a.profiles.Set(profiles)
	return nil
}

// ImportProfiles reads a plaintext YAML seed and persists it encrypted.
func (a *App) ImportProfiles(seedPath, passphrase string) ([]domain.ProviderProfile, error) {
	profiles, err := vault.LoadSeed(seedPath)
	if err != nil {
		return nil, err
	}
	if err := a.SaveProfiles(passphrase, profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
