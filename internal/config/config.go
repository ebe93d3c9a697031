// Package config loads the analyzer configuration file. The file is YAML
// and is parsed strictly: unknown fields are an error, so a typo in a knob
// name cannot silently disable it.
package config

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v2"

	"github.com/lumen-lang/lumen/internal/diagnostics"
)

// Config is the on-disk analyzer configuration.
type Config struct {
	// LanguageVersion selects the language semantics to analyze under.
	// Empty means latest.
	LanguageVersion string `yaml:"language_version,omitempty"`

	// Suppress lists finding categories to drop from the report. Category
	// names match their diagnostic rendering: possibly-unassigned,
	// missing-return, dead-code.
	Suppress []string `yaml:"suppress,omitempty"`

	parsedVersion *semver.Version
	suppressed    []diagnostics.Category
}

var categoryNames = map[string]diagnostics.Category{
	"possibly-unassigned": diagnostics.CategoryPossiblyUnassigned,
	"missing-return":      diagnostics.CategoryMissingReturn,
	"dead-code":           diagnostics.CategoryDeadCode,
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse validates raw YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}

	if cfg.LanguageVersion != "" {
		v, err := semver.NewVersion(cfg.LanguageVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid language_version %q: %w", cfg.LanguageVersion, err)
		}

		cfg.parsedVersion = v
	}

	for _, name := range cfg.Suppress {
		cat, ok := categoryNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown suppress category %q", name)
		}

		cfg.suppressed = append(cfg.suppressed, cat)
	}

	return &cfg, nil
}

// Version returns the configured language version, or nil for latest.
func (c *Config) Version() *semver.Version { return c.parsedVersion }

// Suppressed returns the finding categories the report should drop.
func (c *Config) Suppressed() []diagnostics.Category { return c.suppressed }
