// Package config loads runtime configuration from environment variables
// with sane defaults for local use.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings for a pipeline run.
type Config struct {
	DataDir      string
	CriteriaPath string
	SourcesPath  string
	ReportsDir   string

	OllamaBaseURL  string
	ScoringModel   string
	EmbeddingModel string

	// ScoreTopN bounds how many annotated jobs reach the LLM scorer.
	ScoreTopN int
	// ScoreWorkers bounds concurrent scoring calls. The repair retry for a
	// single job always stays sequential regardless of this value.
	ScoreWorkers int
	// FetchWorkers bounds concurrent source fetches.
	FetchWorkers int
	// SemanticThreshold is the cosine-similarity bound at or above which a
	// job counts as a semantic duplicate.
	SemanticThreshold float64
	// RunTimeout is the wall-clock budget for one full pipeline run.
	RunTimeout time.Duration

	SearxURL     string
	SearxEnabled bool

	SMTPHost      string
	SMTPPort      int
	EmailFrom     string
	EmailPassword string
	EmailTo       string
}

// Load reads configuration from the environment.
func Load() Config {
	cfg := Config{
		DataDir:      getEnv("JOBAGENT_DATA_DIR", "./data"),
		CriteriaPath: getEnv("JOBAGENT_CRITERIA", "criteria.md"),
		SourcesPath:  getEnv("JOBAGENT_SOURCES", "sources.yaml"),
		ReportsDir:   getEnv("JOBAGENT_REPORTS_DIR", "reports"),

		OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		ScoringModel:   getEnv("OLLAMA_MODEL", "llama3"),
		EmbeddingModel: getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		ScoreTopN:         getEnvInt("SCORE_TOP_N", 40),
		ScoreWorkers:      getEnvInt("SCORE_WORKERS", 1),
		FetchWorkers:      getEnvInt("FETCH_WORKERS", 5),
		SemanticThreshold: getEnvFloat("SEMANTIC_DEDUP_THRESHOLD", 0.92),
		RunTimeout:        getEnvDuration("RUN_TIMEOUT", 30*time.Minute),

		SearxURL:     getEnv("SEARXNG_URL", "http://localhost:8888"),
		SearxEnabled: getEnvBool("SEARXNG_ENABLED", false),

		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		EmailFrom:     getEnv("GMAIL_ADDRESS", ""),
		EmailPassword: getEnv("GMAIL_APP_PASSWORD", ""),
		EmailTo:       getEnv("RECIPIENT_EMAIL", ""),
	}
	if cfg.EmailTo == "" {
		cfg.EmailTo = cfg.EmailFrom
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
