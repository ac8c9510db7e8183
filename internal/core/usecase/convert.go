package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/doc2md/doc2md/internal/core/domain"
	"github.com/doc2md/doc2md/internal/core/ports"
)

// ConvertDocumentUseCase runs the two-stage pipeline for one job: read the
// input, OCR-extract it, structure the text, write the Markdown result.
type ConvertDocumentUseCase struct {
	extractor  ports.TextExtractor
	structurer ports.TextStructurer
	log        *slog.Logger
}

func NewConvertDocumentUseCase(extractor ports.TextExtractor, structurer ports.TextStructurer, log *slog.Logger) *ConvertDocumentUseCase {
	return &ConvertDocumentUseCase{
		extractor:  extractor,
		structurer: structurer,
		log:        log,
	}
}

func (uc *ConvertDocumentUseCase) Convert(ctx context.Context, inputPath, outputPath, traceID string) error {
	// Reject unsupported extensions before any I/O or network call.
	if _, err := domain.DetectInputKind(inputPath); err != nil {
		return err
	}

	uc.log.Info("pipeline_start",
		"input", inputPath,
		"output", outputPath,
		"trace_id", traceID,
	)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input file %s: %w", inputPath, err)
	}

	text, err := uc.extractor.ExtractText(ctx, inputPath, data, traceID)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		uc.log.Warn("ocr_output_empty", "input", inputPath, "trace_id", traceID)
	}

	markdown, err := uc.structurer.ToMarkdown(ctx, text, traceID)
	if err != nil {
		return fmt.Errorf("structure text: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	uc.log.Info("pipeline_done",
		"output", outputPath,
		"bytes", len(markdown),
		"trace_id", traceID,
	)
	return nil
}

// ResolveOutputPath places the Markdown result next to the input, swapping
// the extension.
func ResolveOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), ext)
	if stem == "" {
		return filepath.Join(filepath.Dir(inputPath), "output.md")
	}
	return filepath.Join(filepath.Dir(inputPath), stem+".md")
}
