// -----------------------------------------------------------------------
// Config - worker configuration: defaults -> TOML file -> environment
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root worker configuration. Priority, lowest to highest:
// built-in defaults -> TOML file(s) passed on the command line -> environment
// variables. The only CLI flag that overrides a config value is -name, applied
// by cmd/worker itself.
type Config struct {
	Environment string           `toml:"environment"`
	Coordinator Coordinator      `toml:"coordinator"`
	Worker      WorkerConfig     `toml:"worker"`
	Logging     LoggingConfig    `toml:"logging"`
	Crawler     CrawlerConfig    `toml:"crawler"`
	Ingredient  IngredientConfig `toml:"ingredient"`
	Video       VideoConfig      `toml:"video"`
	Claude      ClaudeConfig     `toml:"claude"`
}

// Coordinator holds the connection details for the central coordinator.
type Coordinator struct {
	URL       string        `toml:"url"`        // COORDINATOR_URL
	APIKey    string        `toml:"api_key"`    // API_KEY
	RateLimit float64       `toml:"rate_limit"` // requests/sec; 0 disables limiting
	RetryFor  time.Duration `toml:"retry_for"`
}

// WorkerConfig holds the worker identity and loop timing.
type WorkerConfig struct {
	Name              string   `toml:"name"`
	Capabilities      []string `toml:"capabilities"`       // job types this worker advertises
	PollIntervalSec   int      `toml:"poll_interval_sec"`  // POLL_INTERVAL_SECONDS
	JobTimeoutMinutes int      `toml:"job_timeout_minutes"` // JOB_TIMEOUT_MINUTES
	ItemsPerTick      ItemsPerTickConfig `toml:"items_per_tick"`
}

// ItemsPerTickConfig carries the per-type batch size default from spec.md §5.
type ItemsPerTickConfig struct {
	Crawl             int `toml:"crawl"`
	Discovery         int `toml:"discovery"`
	IngredientDiscovery int `toml:"ingredient_discovery"`
	VideoDiscovery    int `toml:"video_discovery"`
	VideoProcessing   int `toml:"video_processing"`
	Aggregation       int `toml:"aggregation"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // debug|info|warn|error
	Format string   `toml:"format"` // text|json
	Output []string `toml:"output"` // stdout, file
}

// CrawlerConfig configures the chromedp-backed crawl driver.
type CrawlerConfig struct {
	UserAgent      string        `toml:"user_agent"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxBodySize    int           `toml:"max_body_size"`
}

// ClaudeConfig configures the Anthropic client used by the video-processing
// and aggregation handlers' LLM-driven match functions.
type ClaudeConfig struct {
	APIKey    string        `toml:"api_key"`
	Model     string        `toml:"model"`
	MaxTokens int           `toml:"max_tokens"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit time.Duration `toml:"rate_limit"`
}

// IngredientConfig configures the ingredient-discovery driver's search target.
type IngredientConfig struct {
	BaseURL        string        `toml:"base_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// VideoConfig configures the video-discovery/video-processing drivers,
// including the external transcription pipeline's speech-to-text binary.
type VideoConfig struct {
	RequestTimeout  time.Duration `toml:"request_timeout"`
	SpeechToTextBin string        `toml:"speech_to_text_bin"` // SPEECH_TO_TEXT_BIN
	FullEnrich      bool          `toml:"full_enrich"`        // enrich every aggregation job, not only scope=full ones
}

// PollInterval returns the main loop's poll interval as a Duration.
func (w WorkerConfig) PollInterval() time.Duration {
	if w.PollIntervalSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.PollIntervalSec) * time.Second
}

// JobTimeout returns the lease freshness window as a Duration.
func (w WorkerConfig) JobTimeout() time.Duration {
	if w.JobTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(w.JobTimeoutMinutes) * time.Minute
}

// NewDefaultConfig returns the hardcoded defaults from spec.md §5.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Coordinator: Coordinator{
			URL:       "http://localhost:8080",
			RateLimit: 5,
			RetryFor:  20 * time.Second,
		},
		Worker: WorkerConfig{
			Name:              "",
			Capabilities:      []string{},
			PollIntervalSec:   10,
			JobTimeoutMinutes: 30,
			ItemsPerTick: ItemsPerTickConfig{
				Crawl:               10,
				Discovery:           10,
				IngredientDiscovery: 10,
				VideoDiscovery:      50,
				VideoProcessing:     1,
				Aggregation:         10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
		Crawler: CrawlerConfig{
			UserAgent:      "Mozilla/5.0 (compatible; workdispatch/1.0)",
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    10 * 1024 * 1024,
		},
		Ingredient: IngredientConfig{
			BaseURL:        "",
			RequestTimeout: 30 * time.Second,
		},
		Video: VideoConfig{
			RequestTimeout:  30 * time.Second,
			SpeechToTextBin: "whisper",
			FullEnrich:      false,
		},
		Claude: ClaudeConfig{
			Model:     "claude-haiku-3-5-20241022",
			MaxTokens: 4096,
			Timeout:   2 * time.Minute,
			RateLimit: time.Second,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2
// -> ... -> env. Later files override earlier ones; environment variables
// override every file. kvStorage-based key injection is not used here:
// the coordinator owns all durable state, so there is nothing analogous to
// inject from.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if config.Coordinator.APIKey == "" {
		return nil, fmt.Errorf("missing API_KEY: coordinator requires an API key")
	}
	if config.Coordinator.URL == "" {
		return nil, fmt.Errorf("missing COORDINATOR_URL")
	}

	return config, nil
}

// applyEnvOverrides applies the environment variables named in spec.md §6.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COORDINATOR_URL"); v != "" {
		config.Coordinator.URL = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		config.Coordinator.APIKey = v
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Worker.PollIntervalSec = n
		}
	}
	if v := os.Getenv("JOB_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Worker.JobTimeoutMinutes = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("WORKER_NAME"); v != "" {
		config.Worker.Name = v
	}
	if v := os.Getenv("CLAUDE_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("SPEECH_TO_TEXT_BIN"); v != "" {
		config.Video.SpeechToTextBin = v
	}
	if v := os.Getenv("INGREDIENT_BASE_URL"); v != "" {
		config.Ingredient.BaseURL = v
	}
}

// ApplyFlagOverrides applies CLI-flag overrides on top of file/env config.
// Currently only the worker name can be overridden this way; reserved for
// parity with the coordinator's own port/host flag pattern.
func ApplyFlagOverrides(config *Config, workerName string) {
	if workerName != "" {
		config.Worker.Name = workerName
	}
}
