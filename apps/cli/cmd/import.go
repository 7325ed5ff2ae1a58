package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/import/curl"
	"github.com/spf13/cobra"
)

var (
	importOutputFlag  string
	importNoTestsFlag bool
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Convert requests from other tools into request files",
	Long: `Convert requests from other tools into httpdebug request files.

Supported formats:
  curl - curl command lines, inline or from a file

Examples:
  httpdebug import curl "curl -X POST https://example.com/users -d name=ada"
  httpdebug import curl commands.sh -o requests/`,
}

var importCurlCmd = &cobra.Command{
	Use:   "curl <command|file>",
	Short: "Import from curl command lines",
	Long: `Convert curl commands into YAML request files.

The source is either a file holding one or more curl commands (line
continuations and # comments are allowed) or the command itself.

A single request is written to --output, or to stdout. Several requests
need --output to name a directory; each one is written there as
<name>.request.yaml.

Examples:
  httpdebug import curl "curl https://example.com -H 'Accept: text/plain'"
  httpdebug import curl "curl -u ada:secret https://example.com" -o login.request.yaml
  httpdebug import curl commands.sh -o requests/
  httpdebug import curl commands.sh --no-tests`,
	Args: cobra.MinimumNArgs(1),
	RunE: importCurlCommand,
}

func init() {
	importCurlCmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file or directory (default: stdout)")
	importCurlCmd.Flags().BoolVar(&importNoTestsFlag, "no-tests", false, "Don't generate a status expectation")

	importCmd.AddCommand(importCurlCmd)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	converter := curl.NewConverter(curl.WithAssertions(!importNoTestsFlag))

	var requests []curl.Named
	source := strings.Join(args, " ")
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		requests, err = converter.ConvertFile(source)
		if err != nil {
			return withExit(ExitConfigError, fmt.Errorf("failed to convert %s: %w", source, err))
		}
	} else {
		requests, err = converter.ConvertReader(strings.NewReader(source))
		if err != nil {
			return withExit(ExitUsageError, fmt.Errorf("failed to convert curl command: %w", err))
		}
	}
	if len(requests) == 0 {
		return withExit(ExitUsageError, fmt.Errorf("no curl commands found"))
	}

	if importOutputFlag == "" {
		return printRequests(cmd, requests)
	}

	if len(requests) == 1 && !isDirTarget(importOutputFlag) {
		return writeRequest(cmd, importOutputFlag, requests[0])
	}

	if err := os.MkdirAll(importOutputFlag, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	for _, r := range requests {
		path := filepath.Join(importOutputFlag, r.Name+".request.yaml")
		if err := writeRequest(cmd, path, r); err != nil {
			return err
		}
	}
	return nil
}

// isDirTarget reports whether path names a directory, existing or marked
// by a trailing separator.
func isDirTarget(path string) bool {
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func writeRequest(cmd *cobra.Command, path string, r curl.Named) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := r.File.Save(path); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s to %s\n", r.Name, path)
	return nil
}

// printRequests writes every request to stdout as a YAML stream.
func printRequests(cmd *cobra.Command, requests []curl.Named) error {
	var buf bytes.Buffer
	for i, r := range requests {
		data, err := r.File.Marshal()
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.Name, err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		fmt.Fprintf(&buf, "# %s\n", r.Name)
		buf.Write(data)
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
