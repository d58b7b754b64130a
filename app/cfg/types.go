package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesFile    string
	Port           string
	APIAccessKey   string
	WorkerCount    int
	ScrapeInterval int
	RetentionDays  int

	// Embedding service configuration
	EmbeddingURL   string
	EmbeddingModel string
	EmbeddingDim   int

	// Fetch behavior
	UserAgent    string
	FetchTimeout int
	SourceDelay  int

	// Application metadata
	Debug   bool
	Version string
}
