package ports

import (
	"context"

	"github.com/doc2md/doc2md/internal/core/domain"
)

// JobQueue is the single-writer job registry. Implementations must apply
// every mutation atomically: no observer may see a state without its
// matching retry count.
type JobQueue interface {
	Enqueue(input string) domain.JobID
	MarkRunning(id domain.JobID, stage string)
	MarkRetrying(id domain.JobID, stage, errMsg string)
	MarkFailed(id domain.JobID, errMsg string)
	MarkSuccess(id domain.JobID)
	Requeue(id domain.JobID)
	Get(id domain.JobID) (domain.Job, bool)
	NextPending() (domain.JobID, bool)
	// Claim picks the lowest pending job and flips it to Running in one
	// critical section, so concurrent claimers can never take the same job.
	Claim(stage string) (domain.Job, bool)
	List() []domain.Job
	PruneTerminal(keep int) int
}

// TextExtractor turns raw document bytes into plain text via a remote OCR
// or file-parse service.
type TextExtractor interface {
	ExtractText(ctx context.Context, inputPath string, data []byte, traceID string) (string, error)
}

// TextStructurer rewrites extracted text into structured Markdown.
type TextStructurer interface {
	ToMarkdown(ctx context.Context, text, traceID string) (string, error)
}

// ProfileVault persists provider profiles encrypted at rest.
type ProfileVault interface {
	SaveAll(passphrase string, profiles []domain.ProviderProfile) error
	LoadAll(passphrase string) ([]domain.ProviderProfile, error)
}
