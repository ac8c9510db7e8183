package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultGLMBaseURL  = "https://open.bigmodel.cn/api/paas/v4"
	defaultGLMOCRModel = "glm-4.1v-thinking-flashx"

	defaultSystemPrompt = "You are a rigorous document structuring assistant. Rewrite the input text as " +
		"high-quality Markdown. Output only Markdown with no commentary, preserve the original information " +
		"without inventing content, organize headings, paragraphs, lists and tables, and strip obvious noise " +
		"such as repeated page headers and footers."
)

// Config is the process-wide runtime configuration. It is built once from
// the environment and read-only afterwards; constructors receive it
// explicitly instead of reading ambient env state.
type Config struct {
	LogLevel string

	RequestTimeout time.Duration
	RetryMax       int
	RetryBase      time.Duration
	HTTPRateLimit  float64
	BreakerEnabled bool

	MaxOCRChars int

	AnthropicVersion   string
	AnthropicMaxTokens int
	SystemPrompt       string

	GLMAPIKey       string
	GLMBaseURL      string
	GLMOCRModel     string
	GLMOCRURL       string
	GLMFileParseURL string

	ProfileStorePath string

	MaxCompletedJobs int
	PollInterval     time.Duration

	MetricsAddr string
}

func Load() Config {
	glmBase := trimRightSlash(mustEnv("GLM_BASE_URL", defaultGLMBaseURL))

	return Config{
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RequestTimeout: time.Duration(mustEnvInt("REQUEST_TIMEOUT_MS", 30_000)) * time.Millisecond,
		RetryMax:       mustEnvInt("RETRY_MAX", 2),
		RetryBase:      time.Duration(mustEnvInt("RETRY_BASE_MS", 300)) * time.Millisecond,
		HTTPRateLimit:  mustEnvFloat("HTTP_RATE_LIMIT", 4),
		BreakerEnabled: mustEnvBool("BREAKER_ENABLED", true),

		MaxOCRChars: mustEnvInt("MAX_OCR_CHARS", 2_000_000),

		AnthropicVersion:   mustEnv("ANTHROPIC_VERSION", "2023-06-01"),
		AnthropicMaxTokens: mustEnvInt("ANTHROPIC_MAX_TOKENS", 4096),
		SystemPrompt:       mustEnv("SYSTEM_PROMPT", defaultSystemPrompt),

		GLMAPIKey:       mustEnv("GLM_API_KEY", ""),
		GLMBaseURL:      glmBase,
		GLMOCRModel:     mustEnv("GLM_OCR_MODEL", defaultGLMOCRModel),
		GLMOCRURL:       mustEnv("GLM_OCR_URL", glmBase+"/chat/completions"),
		GLMFileParseURL: mustEnv("GLM_FILE_PARSE_URL", glmBase+"/files/parse"),

		ProfileStorePath: mustEnv("DOC2MD_PROFILE_STORE_PATH", ""),

		MaxCompletedJobs: mustEnvInt("MAX_COMPLETED_JOBS", 1000),
		PollInterval:     time.Duration(mustEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,

		MetricsAddr: mustEnv("METRICS_ADDR", ""),
	}
}

func trimRightSlash(v string) string {
	for len(v) > 0 && v[len(v)-1] == '/' {
		v = v[:len(v)-1]
	}
	return v
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
