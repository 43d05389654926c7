package config

import (
	"fmt"
	"strings"
)

// Validate checks structural validity. Glob patterns are compiled here so
// scans never encounter malformed patterns at runtime.
func (c *Config) Validate() error {
	if _, err := CompileGlobs(c.Content.IncludeGlobs); err != nil {
		return fmt.Errorf("content.include_globs: %w", err)
	}
	if _, err := CompileGlobs(c.Content.ExcludeGlobs); err != nil {
		return fmt.Errorf("content.exclude_globs: %w", err)
	}

	switch c.Deploy.Provider {
	case ProviderGitHubPages:
		if c.Deploy.Repository == "" {
			return fmt.Errorf("deploy.repository is required for provider %q", c.Deploy.Provider)
		}
		if parts := strings.Split(c.Deploy.Repository, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("deploy.repository must be owner/name, got %q", c.Deploy.Repository)
		}
	case ProviderManualExport:
		if c.Deploy.ExportPath == "" {
			return fmt.Errorf("deploy.export_path is required for provider %q", c.Deploy.Provider)
		}
	default:
		return fmt.Errorf("unknown deploy provider %q", c.Deploy.Provider)
	}

	if c.Build.ToolTimeout <= 0 || c.Build.InstallTimeout <= 0 {
		return fmt.Errorf("build timeouts must be positive")
	}
	if c.Content.MaxFileSize < 0 {
		return fmt.Errorf("content.max_file_size must not be negative")
	}
	return nil
}
