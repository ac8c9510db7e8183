package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doc2md/doc2md/internal/bootstrap"
	"github.com/doc2md/doc2md/internal/config"
	"github.com/doc2md/doc2md/internal/core/domain"
	"github.com/doc2md/doc2md/internal/observability/logging"
)

func main() {
	importSeed := flag.String("import-profiles", "", "import a plaintext YAML profile seed into the encrypted store and exit")
	showProfiles := flag.Bool("list-profiles", false, "decrypt and list stored profile names, then exit")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewJSONLogger("doc2md", cfg.LogLevel)

	app := bootstrap.New(cfg, logger, bootstrap.Options{})

	if *importSeed != "" {
		profiles, err := app.ImportProfiles(*importSeed, passphraseFromEnv())
		if err != nil {
			log.Fatalf("import profiles: %v", err)
		}
		fmt.Printf("imported %d profile(s) into encrypted store\n", len(profiles))
		return
	}

	if *showProfiles {
		profiles, err := app.LoadProfiles(passphraseFromEnv())
		if err != nil {
			log.Fatalf("load profiles: %v", err)
		}
		for _, p := range profiles {
			state := "disabled"
			if p.Enabled {
				state = "enabled"
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", p.Name, p.Provider, p.Model, state)
		}
		return
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: doc2md [flags] file.pdf [file.docx ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if _, err := app.LoadProfiles(passphraseFromEnv()); err != nil {
		log.Fatalf("load profiles: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, app)
	}

	ids := app.EnqueueFiles(inputs)
	logger.Info("jobs_enqueued", "count", len(ids))

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		app.RunWorker(ctx)
	}()

	waitForCompletion(ctx, app, ids)
	stop()
	<-workerDone

	exitCode := 0
	for _, job := range app.Jobs() {
		status := string(job.State)
		if job.LastError != "" {
			status += ": " + job.LastError
		}
		fmt.Printf("%d\t%s\t%s\n", job.ID, job.Input, status)
		if job.State != domain.JobSuccess {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func passphraseFromEnv() string {
	return os.Getenv("DOC2MD_PASSPHRASE")
}

func serveMetrics(addr string, app *bootstrap.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		app.Log.Error("metrics_server_stopped", "error", err)
	}
}

func waitForCompletion(ctx context.Context, app *bootstrap.App, ids []domain.JobID) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		done := true
		for _, id := range ids {
			job, ok := app.Job(id)
			if ok && !job.State.Terminal() {
				done = false
				break
			}
		}
		if done {
			return
		}
	}
}
