package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/httpdebug/packages/core/config"
	"github.com/abdul-hamid-achik/httpdebug/packages/core/reqfile"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and an example request",
	Long: `Initialize httpdebug in the current directory.

This creates:
  - .httpdebug.yaml        - Configuration file with request defaults
  - example.request.yaml   - Example request file

Examples:
  httpdebug init
  httpdebug init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "example.request.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withExit(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	defaults := config.DefaultConfig()
	defaults.Headers = map[string]string{
		"User-Agent": "httpdebug/" + version,
	}
	defaults.Variables = map[string]string{
		"baseUrl": "https://httpbin.org",
	}
	if err := defaults.SaveConfig(configFile); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	example := &reqfile.File{
		Method: "POST",
		URL:    "{{baseUrl}}/post",
		Headers: http.Headers{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "X-Request-Id", Value: "{{uuid()}}"},
		},
		Body:    "{\n  \"name\": \"{{name}}\",\n  \"sentAt\": \"{{now()}}\"\n}\n",
		Timeout: "10s",
		Variables: map[string]any{
			"name": "httpdebug",
		},
		Extract: []string{"echoed=body.json.name"},
		Expect: []string{
			"status in 2xx",
			"body.json.name == 'httpdebug'",
		},
	}
	if err := example.Save(exampleFile); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhttpdebug initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'httpdebug send -f example.request.yaml -v' to send the example request.\n")

	return nil
}
