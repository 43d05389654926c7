package build

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/notepress/notepress/internal/config"
	apperrors "github.com/notepress/notepress/internal/errors"
)

// GeneratedConfigName is the site configuration file written into the staged
// site directory for the external build tool to consume.
const GeneratedConfigName = "site-config.yaml"

// toolConfig is the on-disk shape of the generated configuration. Field order
// and sorted slices keep the output byte-identical for identical inputs.
type toolConfig struct {
	Title          string            `yaml:"title"`
	BaseURL        string            `yaml:"baseUrl,omitempty"`
	Theme          string            `yaml:"theme,omitempty"`
	Locale         string            `yaml:"locale,omitempty"`
	Plugins        []string          `yaml:"plugins,omitempty"`
	IgnorePatterns []string          `yaml:"ignorePatterns,omitempty"`
	Customizations map[string]string `yaml:"customizations,omitempty"`
}

// WriteToolConfig renders the site configuration for the build tool from the
// configured site options and content rules.
func WriteToolConfig(siteDir string, site config.SiteConfig, rules config.ContentRules) error {
	tc := toolConfig{
		Title:          site.Title,
		BaseURL:        site.BaseURL,
		Theme:          site.Theme,
		Locale:         site.Locale,
		Plugins:        sortedCopy(site.EnabledPlugins),
		IgnorePatterns: sortedCopy(rules.ExcludeGlobs),
		Customizations: site.Customizations,
	}
	if tc.Title == "" {
		tc.Title = "Notes"
	}
	data, err := yaml.Marshal(&tc)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindSystem, "rendering site configuration failed").Build()
	}
	path := filepath.Join(siteDir, GeneratedConfigName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.KindResource, "writing site configuration failed").AtFile(path).Build()
	}
	return nil
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
