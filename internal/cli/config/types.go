// Package config loads the budgetquery configuration.
//
// Values are layered from built-in defaults, a budgetquery.yaml file,
// BUDGETQUERY_ environment variables and explicitly set command-line flags,
// in increasing order of precedence.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Server         string        `koanf:"server"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	DownloadDir    string        `koanf:"download_dir"`
	HistoryFile    string        `koanf:"history_file"`
	NoColor        bool          `koanf:"no_color"`
	Verbose        bool          `koanf:"verbose"`
	UI             UIConfig      `koanf:"ui"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// UIConfig holds configuration for the browser chat.
type UIConfig struct {
	Port          int           `koanf:"port"`
	AutoOpen      bool          `koanf:"auto_open"`
	BasePath      string        `koanf:"base_path"`
	Title         string        `koanf:"title"`
	SessionSecret string        `koanf:"session_secret"`
	SecureCookies bool          `koanf:"secure_cookies"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	PreviewRows   int           `koanf:"preview_rows"`
}

// Default configuration values.
const (
	DefaultServer         = "http://localhost:5000"
	DefaultDownloadDir    = "."
	DefaultHistoryFile    = "~/.budgetquery_history"
	DefaultPort           = 8766
	DefaultTitle          = "Budget Query"
	DefaultSessionSecret  = "budgetquery-dev-secret-change-in-production" //nolint:gosec
	DefaultIdleTimeout    = 30 * time.Minute
	DefaultPreviewRows    = 10
	DefaultRequestTimeout = time.Duration(0)
)

// Config file names, in lookup order.
var fileNames = []string{"budgetquery.yaml", "budgetquery.yml"}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:         DefaultServer,
		RequestTimeout: DefaultRequestTimeout,
		DownloadDir:    DefaultDownloadDir,
		HistoryFile:    DefaultHistoryFile,
		UI: UIConfig{
			Port:          DefaultPort,
			AutoOpen:      true,
			Title:         DefaultTitle,
			SessionSecret: DefaultSessionSecret,
			IdleTimeout:   DefaultIdleTimeout,
			PreviewRows:   DefaultPreviewRows,
		},
	}
}

// defaultsMap is Defaults in koanf key form.
func defaultsMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"server":            d.Server,
		"request_timeout":   d.RequestTimeout.String(),
		"download_dir":      d.DownloadDir,
		"history_file":      d.HistoryFile,
		"no_color":          d.NoColor,
		"verbose":           d.Verbose,
		"ui.port":           d.UI.Port,
		"ui.auto_open":      d.UI.AutoOpen,
		"ui.base_path":      d.UI.BasePath,
		"ui.title":          d.UI.Title,
		"ui.session_secret": d.UI.SessionSecret,
		"ui.secure_cookies": d.UI.SecureCookies,
		"ui.idle_timeout":   d.UI.IdleTimeout.String(),
		"ui.preview_rows":   d.UI.PreviewRows,
	}
}
