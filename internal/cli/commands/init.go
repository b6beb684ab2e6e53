package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/budgetquery/internal/cli/config"
)

// configFileName is the file written by init.
const configFileName = "budgetquery.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter budgetquery.yaml",
		Long: `Write a commented budgetquery.yaml with every setting at its default.

The file is picked up by any budgetquery command run in that directory or
below it. Environment variables (BUDGETQUERY_SERVER, BUDGETQUERY_UI__PORT, ...)
and flags still take precedence over it.`,
		Example: `  # Initialize in current directory
  budgetquery init

  # Point the starter config at a deployed service
  budgetquery init --server https://budget.example.org/BudgetQuery

  # Force overwrite existing config
  budgetquery init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path, err := runInit(dir, config.GetConfig(cmd.Context()).Server, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(dir, server string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists. Use --force to overwrite", path)
	}

	data, err := starterConfig(server)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// starterConfig renders the defaults as commented YAML.
func starterConfig(server string) ([]byte, error) {
	d := config.Defaults()
	if server != "" {
		d.Server = server
	}

	uiMap := mapping(
		entry("port", intNode(d.UI.Port), "Port of the browser chat (budgetquery serve)."),
		entry("auto_open", boolNode(d.UI.AutoOpen), "Open the browser when the server starts."),
		entry("base_path", strNode(d.UI.BasePath), "Path prefix when served behind a proxy, e.g. /BudgetQuery."),
		entry("title", strNode(d.UI.Title), "Page title."),
		entry("session_secret", strNode(d.UI.SessionSecret), "Cookie signing secret. Write ${VAR} to read it from the environment."),
		entry("secure_cookies", boolNode(d.UI.SecureCookies), "Mark the session cookie Secure. Enable only when served over HTTPS."),
		entry("idle_timeout", strNode(d.UI.IdleTimeout.String()), "Conversations unused for this long are discarded."),
		entry("preview_rows", intNode(d.UI.PreviewRows), "Rows shown in a result preview."),
	)

	root := mapping(
		entry("server", strNode(d.Server), "Base URL of the Budget Query service, including any deployment path."),
		entry("request_timeout", strNode(d.RequestTimeout.String()), "Timeout for each service call. 0s waits indefinitely."),
		entry("download_dir", strNode(d.DownloadDir), "Where .download saves workbooks."),
		entry("history_file", strNode(d.HistoryFile), "Readline history of the terminal chat."),
		entry("no_color", boolNode(d.NoColor), "Disable colours in the terminal."),
		entry("ui", uiMap, "Browser chat."),
	)
	root.HeadComment = "budgetquery configuration"

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}

type yamlEntry struct {
	key, value *yaml.Node
}

func entry(key string, value *yaml.Node, comment string) yamlEntry {
	return yamlEntry{
		key:   &yaml.Node{Kind: yaml.ScalarNode, Value: key, HeadComment: comment},
		value: value,
	}
}

func mapping(entries ...yamlEntry) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		n.Content = append(n.Content, e.key, e.value)
	}
	return n
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func intNode(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(i)}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}
