package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content as budgetquery.yaml in dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "budgetquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server", "", "backend URL")
	flags.Duration("request-timeout", 0, "per-call timeout")
	flags.Bool("verbose", false, "verbose output")
	flags.Int("port", 0, "port")
	flags.String("base-path", "", "base path")
	flags.Bool("no-browser", false, "don't open the browser")
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultServer, cfg.Server)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Equal(t, DefaultPort, cfg.UI.Port)
	assert.True(t, cfg.UI.AutoOpen)
	assert.Equal(t, DefaultIdleTimeout, cfg.UI.IdleTimeout)
	assert.Equal(t, DefaultPreviewRows, cfg.UI.PreviewRows)
	assert.False(t, cfg.UI.SecureCookies)
	assert.Empty(t, cfg.File)
	assert.NotContains(t, cfg.HistoryFile, "~")
}

func TestLoad_FileSearchedUpward(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `server: https://budget.example.org/BudgetQuery
request_timeout: 45s
ui:
  port: 9000
  idle_timeout: 5m
  secure_cookies: true
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://budget.example.org/BudgetQuery", cfg.Server)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.Equal(t, 5*time.Minute, cfg.UI.IdleTimeout)
	assert.True(t, cfg.UI.SecureCookies)
	assert.True(t, cfg.UI.AutoOpen, "unset keys keep their defaults")
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeConfig(t, dir, `server: http://from-file:5000
ui:
  port: 9001
`)

	tests := []struct {
		name       string
		env        map[string]string
		setFlags   map[string]string
		wantServer string
		wantPort   int
	}{
		{
			name:       "file over defaults",
			wantServer: "http://from-file:5000",
			wantPort:   9001,
		},
		{
			name:       "env over file",
			env:        map[string]string{"BUDGETQUERY_SERVER": "http://from-env:5000", "BUDGETQUERY_UI__PORT": "9002"},
			wantServer: "http://from-env:5000",
			wantPort:   9002,
		},
		{
			name:       "flags over env",
			env:        map[string]string{"BUDGETQUERY_SERVER": "http://from-env:5000", "BUDGETQUERY_UI__PORT": "9002"},
			setFlags:   map[string]string{"server": "http://from-flag:5000", "port": "9003"},
			wantServer: "http://from-flag:5000",
			wantPort:   9003,
		},
		{
			name:       "unset flags fall back to env",
			env:        map[string]string{"BUDGETQUERY_SERVER": "http://from-env:5000"},
			wantServer: "http://from-env:5000",
			wantPort:   9001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := testFlags()
			for name, v := range tt.setFlags {
				require.NoError(t, flags.Set(name, v))
			}

			cfg, err := Load(path, flags)
			require.NoError(t, err)

			assert.Equal(t, tt.wantServer, cfg.Server)
			assert.Equal(t, tt.wantPort, cfg.UI.Port)
		})
	}
}

func TestLoad_FlagMappings(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := testFlags()
	require.NoError(t, flags.Set("no-browser", "true"))
	require.NoError(t, flags.Set("base-path", "/BudgetQuery/"))
	require.NoError(t, flags.Set("request-timeout", "2m"))
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.False(t, cfg.UI.AutoOpen)
	assert.Equal(t, "/BudgetQuery", cfg.UI.BasePath)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.True(t, cfg.Verbose)
}

func TestLoad_SessionSecretExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `ui:
  session_secret: ${BQ_TEST_SECRET}
`)

	t.Run("set", func(t *testing.T) {
		t.Setenv("BQ_TEST_SECRET", "s3cret")
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cfg.UI.SessionSecret)
	})

	t.Run("unset keeps the pattern", func(t *testing.T) {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, "${BQ_TEST_SECRET}", cfg.UI.SessionSecret)
	})
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "https server", mutate: func(c *Config) { c.Server = "https://example.org/BudgetQuery" }},
		{name: "ftp server", mutate: func(c *Config) { c.Server = "ftp://example.org" }, errSubstr: "http or https"},
		{name: "no host", mutate: func(c *Config) { c.Server = "http://" }, errSubstr: "no host"},
		{name: "negative timeout", mutate: func(c *Config) { c.RequestTimeout = -time.Second }, errSubstr: "request_timeout"},
		{name: "port zero", mutate: func(c *Config) { c.UI.Port = 0 }, errSubstr: "ui.port"},
		{name: "port too large", mutate: func(c *Config) { c.UI.Port = 70000 }, errSubstr: "ui.port"},
		{name: "relative base path", mutate: func(c *Config) { c.UI.BasePath = "BudgetQuery" }, errSubstr: "ui.base_path"},
		{name: "negative idle timeout", mutate: func(c *Config) { c.UI.IdleTimeout = -time.Minute }, errSubstr: "ui.idle_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestGetConfig_FallsBackToDefaults(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, DefaultServer, cfg.Server)

	want := &Config{Server: "http://other:1"}
	assert.Same(t, want, GetConfig(WithConfig(context.Background(), want)))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".budgetquery_history"), expandHome("~/.budgetquery_history"))
	assert.Equal(t, "/tmp/x", expandHome("/tmp/x"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
