package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./newspulse.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesFile    string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file listing news sources"`
	Port           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey   string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WorkerCount    int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of concurrent source workers per ingestion run"`
	ScrapeInterval int    `long:"scrape-interval" env:"SCRAPE_INTERVAL" default:"7200" description:"Interval between scheduled ingestion runs in seconds"`
	RetentionDays  int    `long:"retention-days" env:"RETENTION_DAYS" default:"3" description:"Articles older than this many days are purged before each run"`

	// Embedding service configuration
	EmbeddingURL   string `long:"embedding-url" env:"EMBEDDING_URL" default:"http://localhost:8090/embed" description:"Embedding server endpoint"`
	EmbeddingModel string `long:"embedding-model" env:"EMBEDDING_MODEL" default:"all-MiniLM-L6-v2" description:"Embedding model name"`
	EmbeddingDim   int    `long:"embedding-dim" env:"EMBEDDING_DIM" default:"384" description:"Embedding vector dimension"`

	// Fetch behavior
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"NewsPulse/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-source fetch timeout in seconds"`
	SourceDelay  int    `long:"source-delay" env:"SOURCE_DELAY" default:"0" description:"Politeness delay between sources in milliseconds, applied per worker"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		SourcesFile:    raw.SourcesFile,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		WorkerCount:    raw.WorkerCount,
		ScrapeInterval: raw.ScrapeInterval,
		RetentionDays:  raw.RetentionDays,
		EmbeddingURL:   raw.EmbeddingURL,
		EmbeddingModel: raw.EmbeddingModel,
		EmbeddingDim:   raw.EmbeddingDim,
		UserAgent:      raw.UserAgent,
		FetchTimeout:   raw.FetchTimeout,
		SourceDelay:    raw.SourceDelay,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.EmbeddingDim)
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting replaces the global configuration. Test helper only.
func SetForTesting(c *Cfg) {
	globalCfg = c
}
