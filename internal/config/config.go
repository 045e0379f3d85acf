package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "MYGOVPULSE_CONFIG"
	listenAddrEnv      = "LISTEN_ADDR"
	refreshIntervalEnv = "REFRESH_INTERVAL_SECONDS"
	maxPagesEnv        = "MAX_PAGES_PER_SCRAPE"
	requestTimeoutEnv  = "REQUEST_TIMEOUT_SECONDS"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	googleAPIKeyEnv    = "GOOGLE_API_KEY"
	geminiModelEnv     = "GEMINI_MODEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Refresh RefreshConfig `yaml:"refresh"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Sources []Source      `yaml:"sources"`
}

// ServerConfig describes the HTTP serving surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RefreshConfig governs staleness and scrape bounds.
type RefreshConfig struct {
	IntervalSeconds int `yaml:"intervalSeconds"`
	MaxPages        int `yaml:"maxPages"`
	TimeoutSeconds  int `yaml:"timeoutSeconds"`
}

// Interval returns the freshness window as a duration.
func (r RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// Timeout returns the per-request network timeout.
func (r RefreshConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// GeminiConfig defines how to contact the optional Gemini API. An
// empty APIKey disables the external tier without failing startup.
type GeminiConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// Enabled reports whether the external model tier can be used.
func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

// StorageConfig holds the corpus directories: OutputDir is the working
// and archival location, PublishDir is mirrored for the dashboard.
type StorageConfig struct {
	OutputDir  string `yaml:"outputDir"`
	PublishDir string `yaml:"publishDir"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Source describes one consultation page and its corpus filenames.
type Source struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	CSV    string `yaml:"csv"`
	RawCSV string `yaml:"rawCsv"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// SourceByID returns the configured source and whether it exists.
func (c Config) SourceByID(id string) (Source, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return Source{}, false
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := envInt(refreshIntervalEnv); v > 0 {
		c.Refresh.IntervalSeconds = v
	}
	if v := envInt(maxPagesEnv); v > 0 {
		c.Refresh.MaxPages = v
	}
	if v := envInt(requestTimeoutEnv); v > 0 {
		c.Refresh.TimeoutSeconds = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	} else if v := os.Getenv(googleAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, ignoring", name, v)
		return 0
	}
	return n
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Refresh.IntervalSeconds > 0 {
		base.Refresh.IntervalSeconds = override.Refresh.IntervalSeconds
	}
	if override.Refresh.MaxPages > 0 {
		base.Refresh.MaxPages = override.Refresh.MaxPages
	}
	if override.Refresh.TimeoutSeconds > 0 {
		base.Refresh.TimeoutSeconds = override.Refresh.TimeoutSeconds
	}

	if override.Gemini.Endpoint != "" {
		base.Gemini.Endpoint = override.Gemini.Endpoint
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}

	if override.Storage.OutputDir != "" {
		base.Storage.OutputDir = override.Storage.OutputDir
	}
	if override.Storage.PublishDir != "" {
		base.Storage.PublishDir = override.Storage.PublishDir
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:  ServerConfig{Addr: ":5000"},
		Refresh: RefreshConfig{IntervalSeconds: 5, MaxPages: 50, TimeoutSeconds: 30},
		Gemini: GeminiConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta/models",
			Model:    "gemini-1.5-flash",
		},
		Storage: StorageConfig{
			OutputDir:  "outputs",
			PublishDir: "dashboard/public/outputs",
		},
		Logging: LoggingConfig{Level: "info"},
		Sources: []Source{
			{
				ID:     "site1",
				Name:   "Mann Ki Baat (English)",
				URL:    "https://www.mygov.in/group-issue/inviting-ideas-mann-ki-baat-prime-minister-narendra-modi-28th-september-2025/",
				CSV:    "comments_processed_site1.csv",
				RawCSV: "comments_raw_site1.csv",
			},
			{
				ID:     "site2",
				Name:   "Akshar Hindi (Hindi)",
				URL:    "https://www.mygov.in/group-issue/inviting-comments-draft-indian-language-standard-akshar-hindi-language/",
				CSV:    "comments_processed_site2.csv",
				RawCSV: "comments_raw_site2.csv",
			},
		},
	}
}
