package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(strings.TrimSpace(c.Server))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server: %q must be an http or https URL", c.Server))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("server: %q has no host", c.Server))
	}

	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout: must not be negative, got %s", c.RequestTimeout))
	}
	if c.UI.Port < 1 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port: must be between 1 and 65535, got %d", c.UI.Port))
	}
	if c.UI.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("ui.idle_timeout: must not be negative, got %s", c.UI.IdleTimeout))
	}
	if c.UI.PreviewRows < 0 {
		errs = append(errs, fmt.Errorf("ui.preview_rows: must not be negative, got %d", c.UI.PreviewRows))
	}
	if c.UI.BasePath != "" && !strings.HasPrefix(c.UI.BasePath, "/") {
		errs = append(errs, fmt.Errorf("ui.base_path: %q must start with /", c.UI.BasePath))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
