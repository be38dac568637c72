package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate is the startup gate: a non-nil error here must halt the process
// before any session work begins.
func Validate(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Search.BaseURL) == "" {
		errs = append(errs, "search.base_url is required")
	}
	if cfg.Search.MaxPages <= 0 {
		errs = append(errs, "search.max_pages must be > 0")
	}
	if cfg.Limits.MaxApplications <= 0 {
		errs = append(errs, "limits.max_applications must be > 0")
	}
	if cfg.Limits.MinDelaySeconds > cfg.Limits.MaxDelaySeconds {
		errs = append(errs, "limits.min_delay_seconds must be <= limits.max_delay_seconds")
	}
	if cfg.Limits.LongPauseMinSeconds > cfg.Limits.LongPauseMaxSeconds {
		errs = append(errs, "limits.long_pause_min_seconds must be <= limits.long_pause_max_seconds")
	}

	if cfg.Letter.Enabled && cfg.Letter.MaxChars < 100 {
		errs = append(errs, "letter.max_chars must be >= 100 when letters are enabled")
	}

	if cfg.Letter.AI.Enabled {
		if len(cfg.Letter.AI.Providers) == 0 {
			errs = append(errs, "letter.ai.providers must have at least 1 entry when letter.ai.enabled=true")
		}
		for i, p := range cfg.Letter.AI.Providers {
			if strings.TrimSpace(p.Name) == "" {
				errs = append(errs, fmt.Sprintf("letter.ai.providers[%d].name is required", i))
			}
			if strings.TrimSpace(p.BaseURL) == "" {
				errs = append(errs, fmt.Sprintf("letter.ai.providers[%d].base_url is required", i))
			}
			if strings.TrimSpace(p.Model) == "" {
				errs = append(errs, fmt.Sprintf("letter.ai.providers[%d].model is required", i))
			}
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
