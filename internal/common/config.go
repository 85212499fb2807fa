package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/proposal-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Batch  BatchConfig  `yaml:"batch"`
	Gemini GeminiConfig `yaml:"gemini"`
	Retry  RetryConfig  `yaml:"retry"`
}

// BatchConfig holds register and proposals-directory configuration
type BatchConfig struct {
	InputPath    string `yaml:"input_path"`
	OutputPath   string `yaml:"output_path"`   // empty means overwrite the input
	ProposalsDir string `yaml:"proposals_dir"`
	SheetName    string `yaml:"sheet_name"` // empty means the active sheet
	HeaderRow    int    `yaml:"header_row"`
	TPNHeader    string `yaml:"tpn_header"`
	SchemaPath   string `yaml:"schema_path"` // empty means the built-in schema
	Reprocess    bool   `yaml:"reprocess"`   // re-extract rows whose output columns are already filled
}

// GeminiConfig holds inference-service configuration
type GeminiConfig struct {
	APIKey            string   `yaml:"-"` // env only, never from file
	BaseURL           string   `yaml:"base_url"`
	Model             string   `yaml:"model"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// RetryConfig holds retry/backoff configuration for the two network calls
type RetryConfig struct {
	MaxRetries  int      `yaml:"max_retries"`
	BaseBackoff Duration `yaml:"base_backoff"`
	MaxBackoff  Duration `yaml:"max_backoff"`
	Jitter      bool     `yaml:"jitter"`
}

// Duration is a time.Duration that YAML decodes from strings like "45s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LoadConfig builds the configuration from defaults, an optional YAML file,
// and environment variables, in that order (env wins).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file", err)
		}
	}
	mergeWithEnv(cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Batch.HeaderRow == 0 {
		c.Batch.HeaderRow = constants.HeaderRow
	}
	if c.Batch.TPNHeader == "" {
		c.Batch.TPNHeader = constants.TPNHeader
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = Duration(120 * time.Second)
	}
	if c.Gemini.RequestsPerSecond == 0 {
		c.Gemini.RequestsPerSecond = 0.5
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 5
	}
	if c.Retry.BaseBackoff == 0 {
		c.Retry.BaseBackoff = Duration(time.Second)
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = Duration(30 * time.Second)
	}
}

func mergeWithEnv(c *Config) {
	c.Batch.InputPath = getEnv("BATCH_INPUT_PATH", c.Batch.InputPath)
	c.Batch.OutputPath = getEnv("BATCH_OUTPUT_PATH", c.Batch.OutputPath)
	c.Batch.ProposalsDir = getEnv("PROPOSALS_DIR", c.Batch.ProposalsDir)
	c.Batch.SheetName = getEnv("SHEET_NAME", c.Batch.SheetName)
	c.Batch.HeaderRow = getEnvAsInt("HEADER_ROW", c.Batch.HeaderRow)
	c.Batch.TPNHeader = getEnv("TPN_HEADER", c.Batch.TPNHeader)
	c.Batch.SchemaPath = getEnv("SCHEMA_PATH", c.Batch.SchemaPath)
	c.Batch.Reprocess = getEnvAsBool("REPROCESS", c.Batch.Reprocess)

	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", c.Gemini.BaseURL)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.Timeout = Duration(getEnvAsDuration("GEMINI_TIMEOUT", c.Gemini.Timeout.Std()))
	c.Gemini.RequestsPerSecond = getEnvAsFloat64("GEMINI_RPS", c.Gemini.RequestsPerSecond)

	c.Retry.MaxRetries = getEnvAsInt("RETRY_MAX_RETRIES", c.Retry.MaxRetries)
	c.Retry.BaseBackoff = Duration(getEnvAsDuration("RETRY_BASE_BACKOFF", c.Retry.BaseBackoff.Std()))
	c.Retry.MaxBackoff = Duration(getEnvAsDuration("RETRY_MAX_BACKOFF", c.Retry.MaxBackoff.Std()))
	c.Retry.Jitter = getEnvAsBool("RETRY_JITTER", c.Retry.Jitter)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrFatalSetup)
	}
	if c.Batch.InputPath == "" {
		return NewAppError("CONFIG_ERROR", "input workbook path is required", ErrFatalSetup)
	}
	if c.Batch.ProposalsDir == "" {
		return NewAppError("CONFIG_ERROR", "proposals directory is required", ErrFatalSetup)
	}
	if c.Batch.HeaderRow < 1 {
		return NewAppError("CONFIG_ERROR", "header row must be at least 1", ErrInvalidInput)
	}
	if c.Batch.TPNHeader == "" {
		return NewAppError("CONFIG_ERROR", "tpn header label is required", ErrInvalidInput)
	}
	if c.Retry.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "max retries cannot be negative", ErrInvalidInput)
	}
	if c.Retry.BaseBackoff.Std() <= 0 {
		return NewAppError("CONFIG_ERROR", "base backoff must be positive", ErrInvalidInput)
	}
	if c.Gemini.RequestsPerSecond < 0 {
		return NewAppError("CONFIG_ERROR", "requests per second cannot be negative", ErrInvalidInput)
	}
	return nil
}
