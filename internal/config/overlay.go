package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type DenylistFile struct {
	Filters struct {
		BlockedKeywords  []string `yaml:"blocked_keywords"`
		BlockedEmployers []string `yaml:"blocked_employers"`
	} `yaml:"filters"`
}

// OverlayDenylists merges an optional standalone denylist file into cfg.
// Keeping the lists in a separate file lets them grow without touching the
// main config.
func OverlayDenylists(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		// Missing denylist file should not kill startup
		return nil
	}

	var df DenylistFile
	if err := yaml.Unmarshal(b, &df); err != nil {
		return err
	}

	cfg.Filters.BlockedKeywords = append(cfg.Filters.BlockedKeywords, df.Filters.BlockedKeywords...)
	cfg.Filters.BlockedEmployers = append(cfg.Filters.BlockedEmployers, df.Filters.BlockedEmployers...)
	return nil
}
