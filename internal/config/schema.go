package config

import "time"

// Config holds wikibook configuration.
// Stored at: {home}/config.yaml
type Config struct {
	PDFService  PDFServiceConfig  `mapstructure:"pdf_service" yaml:"pdf_service"`
	WikiSources map[string]string `mapstructure:"wiki_sources" yaml:"wiki_sources"`
	Poll        PollConfig        `mapstructure:"poll" yaml:"poll"`
	RecordDB    RecordDBConfig    `mapstructure:"recorddb" yaml:"recorddb"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
}

// PDFServiceConfig configures the external PDF generation service.
type PDFServiceConfig struct {
	// BaseURL is the root URL of the PDF service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// APIKey authenticates requests (supports ${ENV_VAR} syntax).
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// FallbackTitle names the output file when a request has no title
	// and no pages to derive one from.
	FallbackTitle string `mapstructure:"fallback_title" yaml:"fallback_title"`
}

// PollConfig configures status polling against the PDF service.
type PollConfig struct {
	// Interval between status checks for an active task.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// MaxTransientFailures bounds consecutive transient poll failures
	// before a task is marked failed. Zero means poll forever.
	MaxTransientFailures int `mapstructure:"max_transient_failures" yaml:"max_transient_failures"`
}

// RecordDBConfig holds record database container configuration.
type RecordDBConfig struct {
	// ContainerName is the Docker container name (default: wikibook-recorddb)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
}

// AuthConfig configures sessions and the Google OAuth token proxy.
type AuthConfig struct {
	// GoogleClientID is the OAuth client ID (supports ${ENV_VAR} syntax).
	GoogleClientID string `mapstructure:"google_client_id" yaml:"google_client_id"`
	// GoogleClientSecret is the OAuth client secret (supports ${ENV_VAR} syntax).
	GoogleClientSecret string `mapstructure:"google_client_secret" yaml:"google_client_secret"`
	// SessionTTL is how long a login session stays valid.
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PDFService: PDFServiceConfig{
			BaseURL:       "https://pdf.test.hamichlol.org.il",
			APIKey:        "${WIKIBOOK_PDF_API_KEY}",
			FallbackTitle: "wiki_book",
		},
		WikiSources: map[string]string{
			"hamichlol": "https://dev.hamichlol.org.il",
			"shitufta":  "https://shitufta.org.il",
		},
		Poll: PollConfig{
			Interval:             2 * time.Second,
			MaxTransientFailures: 150,
		},
		RecordDB: RecordDBConfig{
			ContainerName: "wikibook-recorddb",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
		Auth: AuthConfig{
			GoogleClientID:     "${WIKIBOOK_GOOGLE_CLIENT_ID}",
			GoogleClientSecret: "${WIKIBOOK_GOOGLE_CLIENT_SECRET}",
			SessionTTL:         24 * time.Hour,
		},
	}
}

// SourceURL returns the base URL for a named wiki source.
func (c *Config) SourceURL(name string) (string, bool) {
	url, ok := c.WikiSources[name]
	return url, ok
}
