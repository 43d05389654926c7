package config

import "time"

// Config is the per-workspace configuration loaded from notepress.yaml.
type Config struct {
	Workspace    string             `yaml:"workspace,omitempty"` // content root; defaults to the config file's directory
	Site         SiteConfig         `yaml:"site"`
	Content      ContentRules       `yaml:"content"`
	Build        BuildConfig        `yaml:"build"`
	Deploy       TargetConfig       `yaml:"deploy"`
	Integrations IntegrationsConfig `yaml:"integrations,omitempty"`
	Watch        WatchConfig        `yaml:"watch,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
	Metrics      MetricsConfig      `yaml:"metrics,omitempty"`
}

// SiteConfig carries the build-tool options that end up in the generated
// site configuration.
type SiteConfig struct {
	Title          string            `yaml:"title"`
	BaseURL        string            `yaml:"base_url,omitempty"`
	Theme          string            `yaml:"theme,omitempty"`
	Locale         string            `yaml:"locale,omitempty"`
	EnabledPlugins []string          `yaml:"enabled_plugins,omitempty"`
	Customizations map[string]string `yaml:"customizations,omitempty"`
}

// ContentRules selects which workspace files are publishable.
type ContentRules struct {
	IncludeGlobs  []string `yaml:"include_globs,omitempty"`
	ExcludeGlobs  []string `yaml:"exclude_globs,omitempty"`
	ProcessImages bool     `yaml:"process_images"` // images are publishable only when set
	ValidateLinks bool     `yaml:"validate_links"`
	MaxFileSize   int64    `yaml:"max_file_size,omitempty"` // bytes; files above this produce warnings
}

// BuildConfig controls the external build tool invocation.
type BuildConfig struct {
	ToolCommand        string        `yaml:"tool_command,omitempty"`    // e.g. "npx quartz build"
	InstallCommand     string        `yaml:"install_command,omitempty"` // e.g. "npm ci"
	ToolTimeout        time.Duration `yaml:"tool_timeout,omitempty"`
	InstallTimeout     time.Duration `yaml:"install_timeout,omitempty"`
	BlockingValidation bool          `yaml:"blocking_validation"`
	DataDir            string        `yaml:"data_dir,omitempty"` // state, logs, staging
}

// ProviderID identifies a deployment provider. The set is deliberately closed.
type ProviderID string

const (
	ProviderGitHubPages  ProviderID = "github-pages"
	ProviderManualExport ProviderID = "manual-export"
)

// TargetConfig describes the deployment target.
type TargetConfig struct {
	Provider      ProviderID    `yaml:"provider"`
	Repository    string        `yaml:"repository,omitempty"` // owner/name for github-pages
	Branch        string        `yaml:"branch,omitempty"`
	CustomDomain  string        `yaml:"custom_domain,omitempty"`
	Token         string        `yaml:"token,omitempty"` // usually ${NOTEPRESS_GITHUB_TOKEN}
	ExportPath    string        `yaml:"export_path,omitempty"`
	ExportArchive bool          `yaml:"export_archive,omitempty"` // write .tar.gz instead of a directory copy
	PollTimeout   time.Duration `yaml:"poll_timeout,omitempty"`
}

// IntegrationsConfig locates the external JSON data stores.
type IntegrationsConfig struct {
	DataDir string `yaml:"data_dir,omitempty"` // defaults to <workspace>/.notepress/data
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	Schedule    string        `yaml:"schedule,omitempty"` // cron expression for periodic publishes
	NATSURL     string        `yaml:"nats_url,omitempty"`
	NATSSubject string        `yaml:"nats_subject,omitempty"`
}

// LoggingConfig controls slog setup.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // text|json
}

// MetricsConfig controls the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"` // host:port for /metrics in watch mode
}
