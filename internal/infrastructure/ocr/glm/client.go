// Package glm extracts document text through the GLM API: PDFs go through a
// vision-capable chat request with the file inlined as a data URL, Word
// documents through the file-parse endpoint.
package glm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/doc2md/doc2md/internal/core/domain"
	"github.com/doc2md/doc2md/internal/infrastructure/httpengine"
	"github.com/doc2md/doc2md/internal/infrastructure/llm"
)

const (
	ocrPrompt = "Extract the complete document content. Preserve headings, paragraphs and " +
		"table structure as far as possible. Output plain text."
	fileParsePrompt = "Extract the full body text and structure of the document, keeping " +
		"heading levels and table text."
)

type Config struct {
	APIKey       string
	OCRModel     string
	OCRURL       string
	FileParseURL string
	MaxOCRChars  int
}

// Validate reports whether the client can make calls at all; a missing key
// is a configuration fault, not something a retry will fix.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return domain.WrapError(domain.ErrConfigMissing, "resolve ocr config",
			errors.New("GLM_API_KEY is required"))
	}
	return nil
}

type Client struct {
	engine *httpengine.Engine
	cfg    Config
	log    *slog.Logger
}

func NewClient(engine *httpengine.Engine, cfg Config, log *slog.Logger) *Client {
	return &Client{engine: engine, cfg: cfg, log: log}
}

// ExtractText routes the document to the endpoint matching its kind. The
// kind check runs before anything touches the network.
func (c *Client) ExtractText(ctx context.Context, inputPath string, data []byte, traceID string) (string, error) {
	kind, err := domain.DetectInputKind(inputPath)
	if err != nil {
		return "", err
	}
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}

	switch kind {
	case domain.InputPDF:
		return c.extractPDF(ctx, inputPath, data, traceID)
	default:
		return c.parseWord(ctx, data, traceID)
	}
}

func (c *Client) extractPDF(ctx context.Context, inputPath string, data []byte, traceID string) (string, error) {
	mimeType := mime.TypeByExtension(filepath.Ext(inputPath))
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	payload := map[string]any{
		"model": c.cfg.OCRModel,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "file_url", "file_url": map[string]any{"url": dataURL}},
					{"type": "text", "text": ocrPrompt},
				},
			},
		},
	}

	raw, err := c.engine.PostJSON(ctx, "glm_ocr", c.cfg.OCRURL, c.authHeader(), payload, traceID)
	if err != nil {
		return "", err
	}

	text, ok := llm.ExtractOpenAIContent(raw)
	if !ok {
		return "", domain.WrapError(domain.ErrAPIContract, "glm_ocr",
			errors.New("missing choices[0].message.content in OCR response"))
	}
	return LimitText(text, c.cfg.MaxOCRChars), nil
}

func (c *Client) parseWord(ctx context.Context, data []byte, traceID string) (string, error) {
	payload := map[string]any{
		"file":    "base64://" + base64.StdEncoding.EncodeToString(data),
		"purpose": "file-extract",
		"prompt":  fileParsePrompt,
	}

	raw, err := c.engine.PostJSON(ctx, "glm_file_parse", c.cfg.FileParseURL, c.authHeader(), payload, traceID)
	if err != nil {
		return "", err
	}

	text, ok := parseFileParseText(raw)
	if !ok {
		return "", domain.WrapError(domain.ErrAPIContract, "glm_file_parse",
			errors.New("missing extracted text in file parse response"))
	}
	return LimitText(text, c.cfg.MaxOCRChars), nil
}

func (c *Client) authHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return header
}

// parseFileParseText tries the field locations the file-parse endpoint has
// been observed to use across versions.
func parseFileParseText(raw json.RawMessage) (string, bool) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", false
	}

	candidates := [][]string{
		{"content"},
		{"data", "content"},
		{"text"},
		{"data", "text"},
		{"result", "content"},
	}
	for _, path := range candidates {
		if text, ok := lookupString(doc, path); ok && strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}

func lookupString(doc map[string]any, path []string) (string, bool) {
	current := any(doc)
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[key]
		if !ok {
			return "", false
		}
	}
	text, ok := current.(string)
	return text, ok
}
