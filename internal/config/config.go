// Package config loads and validates per-workspace configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up inside a workspace.
const DefaultFileName = "notepress.yaml"

// Load reads, defaults and validates a configuration file. Environment
// variables referenced as ${VAR} in the YAML are expanded after .env files
// are loaded, so deploy tokens never need to live in the config itself.
func Load(configPath string) (*Config, error) {
	loadEnv(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg, filepath.Dir(configPath))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnv loads .env/.env.local next to the config file without overriding
// the process environment. Missing files are fine.
func loadEnv(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
	}
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(cfg *Config, configDir string) {
	if cfg.Workspace == "" {
		cfg.Workspace = configDir
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = "Notes"
	}
	if cfg.Site.Theme == "" {
		cfg.Site.Theme = "default"
	}
	if cfg.Site.Locale == "" {
		cfg.Site.Locale = "en-US"
	}
	if cfg.Content.MaxFileSize == 0 {
		cfg.Content.MaxFileSize = 10 << 20 // 10 MiB warning threshold
	}
	if cfg.Build.ToolCommand == "" {
		cfg.Build.ToolCommand = "npx quartz build"
	}
	if cfg.Build.InstallCommand == "" {
		cfg.Build.InstallCommand = "npm ci"
	}
	if cfg.Build.ToolTimeout == 0 {
		cfg.Build.ToolTimeout = 10 * time.Minute
	}
	if cfg.Build.InstallTimeout == 0 {
		cfg.Build.InstallTimeout = 5 * time.Minute
	}
	if cfg.Build.DataDir == "" {
		cfg.Build.DataDir = filepath.Join(cfg.Workspace, ".notepress")
	}
	if cfg.Deploy.Provider == "" {
		cfg.Deploy.Provider = ProviderManualExport
	}
	if cfg.Deploy.Branch == "" {
		cfg.Deploy.Branch = "main"
	}
	if cfg.Deploy.ExportPath == "" {
		cfg.Deploy.ExportPath = filepath.Join(cfg.Build.DataDir, "export")
	}
	if cfg.Deploy.PollTimeout == 0 {
		cfg.Deploy.PollTimeout = 5 * time.Minute
	}
	if cfg.Integrations.DataDir == "" {
		cfg.Integrations.DataDir = filepath.Join(cfg.Build.DataDir, "data")
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
	if cfg.Watch.NATSSubject == "" {
		cfg.Watch.NATSSubject = "notepress.builds"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Save writes the configuration back to disk.
func Save(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Site: SiteConfig{
			Title:          "My Notes",
			Theme:          "default",
			EnabledPlugins: []string{"collections", "archive"},
		},
		Content: ContentRules{
			ExcludeGlobs:  []string{"private/**", "drafts/**"},
			ProcessImages: true,
			ValidateLinks: true,
		},
		Build: BuildConfig{
			BlockingValidation: true,
		},
		Deploy: TargetConfig{
			Provider:   ProviderGitHubPages,
			Repository: "example/notes-site",
			Branch:     "main",
			Token:      "${NOTEPRESS_GITHUB_TOKEN}",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	slog.Info("Configuration created", "path", configPath)
	return nil
}
