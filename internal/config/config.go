package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"docparse/internal/logger"
	"docparse/pkg/models"
)

// OCR engine names accepted by DOCPARSE_OCR_ENGINE.
const (
	OCREngineTesseract  = "tesseract"
	OCREngineVision     = "vision"
	OCREngineDocumentAI = "documentai"
	OCREngineNone       = "none"
)

type Config struct {
	// OCR engine selection
	OCREngine   string
	OCRLanguage string

	// Pipeline defaults, overridable per call
	ParseTimeout    time.Duration
	MaxPages        int
	MinQualityScore float64
	MinWordCount    int
	DisableOCR      bool

	// Batch processing
	BatchWorkers int

	// Google Cloud configuration, used by the vision and documentai engines
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// fileConfig is the optional docparse.yaml overlay. Environment variables
// always win over file values.
type fileConfig struct {
	OCREngine       string  `yaml:"ocr_engine"`
	OCRLanguage     string  `yaml:"ocr_language"`
	ParseTimeout    string  `yaml:"parse_timeout"`
	MaxPages        int     `yaml:"max_pages"`
	MinQualityScore float64 `yaml:"min_quality_score"`
	MinWordCount    int     `yaml:"min_word_count"`
	DisableOCR      bool    `yaml:"disable_ocr"`
	BatchWorkers    int     `yaml:"batch_workers"`
	LogLevel        string  `yaml:"log_level"`
	LogFormat       string  `yaml:"log_format"`
}

func Load() (*Config, error) {
	config := defaults()

	if err := config.applyFile(configFilePath()); err != nil {
		return nil, err
	}
	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func defaults() *Config {
	opts := models.DefaultParseOptions()
	return &Config{
		OCREngine:           OCREngineTesseract,
		OCRLanguage:         opts.OCRLanguage,
		ParseTimeout:        opts.Timeout,
		MaxPages:            opts.MaxPages,
		MinQualityScore:     opts.MinQualityScore,
		MinWordCount:        opts.MinWordCount,
		BatchWorkers:        4,
		GoogleCloudLocation: "us",
		LogLevel:            "info",
		LogFormat:           "console",
		LogTimeFormat:       "2006-01-02T15:04:05Z07:00",
		LogOutput:           "stderr",
	}
}

// configFilePath returns the overlay file path: DOCPARSE_CONFIG if set,
// otherwise ./docparse.yaml.
func configFilePath() string {
	if path := os.Getenv("DOCPARSE_CONFIG"); path != "" {
		return path
	}
	return "docparse.yaml"
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.OCREngine != "" {
		c.OCREngine = fc.OCREngine
	}
	if fc.OCRLanguage != "" {
		c.OCRLanguage = fc.OCRLanguage
	}
	if fc.ParseTimeout != "" {
		d, err := time.ParseDuration(fc.ParseTimeout)
		if err != nil {
			return fmt.Errorf("parsing parse_timeout in %s: %w", path, err)
		}
		c.ParseTimeout = d
	}
	if fc.MaxPages > 0 {
		c.MaxPages = fc.MaxPages
	}
	if fc.MinQualityScore > 0 {
		c.MinQualityScore = fc.MinQualityScore
	}
	if fc.MinWordCount > 0 {
		c.MinWordCount = fc.MinWordCount
	}
	if fc.DisableOCR {
		c.DisableOCR = true
	}
	if fc.BatchWorkers > 0 {
		c.BatchWorkers = fc.BatchWorkers
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	return nil
}

func (c *Config) applyEnv() {
	c.OCREngine = getEnv("DOCPARSE_OCR_ENGINE", c.OCREngine)
	c.OCRLanguage = getEnv("DOCPARSE_OCR_LANGUAGE", c.OCRLanguage)
	c.ParseTimeout = getEnvDuration("DOCPARSE_PARSE_TIMEOUT", c.ParseTimeout)
	c.MaxPages = getEnvInt("DOCPARSE_MAX_PAGES", c.MaxPages)
	c.MinQualityScore = getEnvFloat("DOCPARSE_MIN_QUALITY_SCORE", c.MinQualityScore)
	c.MinWordCount = getEnvInt("DOCPARSE_MIN_WORD_COUNT", c.MinWordCount)
	c.DisableOCR = getEnvBool("DOCPARSE_DISABLE_OCR", c.DisableOCR)
	c.BatchWorkers = getEnvInt("DOCPARSE_BATCH_WORKERS", c.BatchWorkers)
	c.GoogleCloudProject = getEnv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	c.GoogleCloudLocation = getEnv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	c.DocumentAIProcessorID = getEnv("DOCUMENT_AI_PROCESSOR_ID", c.DocumentAIProcessorID)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogTimeFormat = getEnv("LOG_TIME_FORMAT", c.LogTimeFormat)
	c.LogOutput = getEnv("LOG_OUTPUT", c.LogOutput)
}

func (c *Config) validate() error {
	switch c.OCREngine {
	case OCREngineTesseract, OCREngineVision, OCREngineDocumentAI, OCREngineNone:
	default:
		return fmt.Errorf("DOCPARSE_OCR_ENGINE must be one of tesseract, vision, documentai, none; got %q", c.OCREngine)
	}
	if c.ParseTimeout <= 0 {
		return fmt.Errorf("DOCPARSE_PARSE_TIMEOUT must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("DOCPARSE_MAX_PAGES must be positive")
	}
	if c.MinQualityScore <= 0 || c.MinQualityScore > 1 {
		return fmt.Errorf("DOCPARSE_MIN_QUALITY_SCORE must be in (0,1]")
	}
	if c.MinWordCount <= 0 {
		return fmt.Errorf("DOCPARSE_MIN_WORD_COUNT must be positive")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("DOCPARSE_BATCH_WORKERS must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetParseOptions returns the configured pipeline defaults
func (c *Config) GetParseOptions() models.ParseOptions {
	return models.ParseOptions{
		Timeout:         c.ParseTimeout,
		MaxPages:        c.MaxPages,
		DisableOCR:      c.DisableOCR,
		OCRLanguage:     c.OCRLanguage,
		MinQualityScore: c.MinQualityScore,
		MinWordCount:    c.MinWordCount,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
