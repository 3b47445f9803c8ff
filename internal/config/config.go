package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/ai"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port           string
	DBPath         string
	AllowedOrigins []string
	RequireAuth    bool

	DefaultModel     string
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	ReasoningTimeout time.Duration

	Strict               bool
	MaxBatchItemsPerList int
	BatchChunkSize       int
	BatchChunkDelay      time.Duration
	LexiconPath          string

	LogLevel  string
	LogFormat string
}

// Defaults applied when a variable is unset or unparsable.
const (
	DefaultPort                 = "2000"
	DefaultDBPath               = "data/trademark.db"
	DefaultMaxBatchItemsPerList = 5
	DefaultReasoningTimeout     = 60 * time.Second
)

var defaultOrigins = []string{"http://localhost:8080", "http://127.0.0.1:8080"}

// LoadDotenv reads .env files into the environment when present. Missing files are not an error.
func LoadDotenv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}
}

// Load reads the configuration from the current environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Port:             getenv("PORT", DefaultPort),
		DBPath:           getenv("TRADEMARK_DB_PATH", DefaultDBPath),
		AllowedOrigins:   getenvList("ALLOWED_ORIGINS", defaultOrigins),
		RequireAuth:      getenvBool("REQUIRE_AUTH", true),
		DefaultModel:     getenv("MODEL_OVERRIDE", ai.DefaultModel),
		OpenAIKey:        getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getenv("OPENAI_BASE_URL", ""),
		AnthropicKey:     getenv("ANTHROPIC_API_KEY", ""),
		ReasoningTimeout: getenvDuration("REASONING_TIMEOUT", DefaultReasoningTimeout),

		Strict:               getenvBool("STRICT_FAILURE_MODE", getenvBool("TEST_RAISE_EXCEPTIONS", false)),
		MaxBatchItemsPerList: getenvInt("MAX_BATCH_ITEMS_PER_LIST", DefaultMaxBatchItemsPerList),
		BatchChunkSize:       getenvInt("BATCH_CHUNK_SIZE", 3),
		BatchChunkDelay:      getenvDuration("BATCH_CHUNK_DELAY", time.Second),
		LexiconPath:          getenv("LEXICON_PATH", ""),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "text")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if !ai.IsSupported(c.DefaultModel) {
		return fmt.Errorf("MODEL_OVERRIDE %q is not supported (supported: %s)", c.DefaultModel, strings.Join(ai.SupportedModels(), ", "))
	}
	if c.MaxBatchItemsPerList <= 0 {
		return fmt.Errorf("MAX_BATCH_ITEMS_PER_LIST must be positive, got %d", c.MaxBatchItemsPerList)
	}
	if c.BatchChunkSize <= 0 {
		return fmt.Errorf("BATCH_CHUNK_SIZE must be positive, got %d", c.BatchChunkSize)
	}
	if c.BatchChunkDelay < 0 {
		return fmt.Errorf("BATCH_CHUNK_DELAY must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c Config) ConfigureLogging() {
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		logrus.WithField("key", key).Warn("ignoring non-integer environment value")
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
		logrus.WithField("key", key).Warn("ignoring non-boolean environment value")
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		logrus.WithField("key", key).Warn("ignoring invalid duration environment value")
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
