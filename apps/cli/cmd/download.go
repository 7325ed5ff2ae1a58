package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/spf13/cobra"
)

var downloadFlags requestFlags

var downloadCmd = &cobra.Command{
	Use:   "download <url> [file]",
	Short: "Download a URL to a file",
	Long: `Download a URL with GET. With a file name the body is saved there, with
an extension taken from the Content-Type when the name lacks one. Without a
file name the body is written to stdout.

Any status other than 200 is an error.

Examples:
  httpdebug download https://example.com/logo logo
  httpdebug download https://example.com/data.json > data.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: downloadCommand,
}

func init() {
	downloadFlags.register(downloadCmd.Flags())
}

func downloadCommand(cmd *cobra.Command, args []string) error {
	saveFile := ""
	if len(args) == 2 {
		saveFile = args[1]
	}

	file, resolver, err := downloadFlags.build(args[:1])
	if err != nil {
		return err
	}
	if file.Method != "" && file.Method != "GET" {
		return withExit(ExitUsageError, fmt.Errorf("download only supports GET, got %s", file.Method))
	}
	provider, err := downloadFlags.tokenProvider(resolver)
	if err != nil {
		return err
	}
	if err := authorize(cmd.Context(), provider, file); err != nil {
		return err
	}

	req := file.Build(resolver.Resolve)
	if err := req.Err(); err != nil {
		return withExit(ExitRequestError, err)
	}

	opts := file.Options
	opts["header"] = req.Headers().String()
	if c := req.Cookie(); c != "" {
		opts["cookie"] = c
	}
	if user, pass, ok := req.BasicAuth(); ok {
		opts["auth_username"] = user
		opts["auth_password"] = pass
	}
	if t := req.Timeout(); t > 0 {
		opts["timeout"] = t
	}

	var data any
	if params := req.Params(); len(params) > 0 {
		data = params
	}

	logger.Debug("downloading", "url", req.URL(), "file", saveFile)
	result, err := http.Download(cmd.Context(), req.URL(), saveFile, data, opts)
	if err != nil {
		var xerr *http.ExchangeError
		if errors.As(err, &xerr) {
			return withExit(exitCodeFor(xerr), xerr)
		}
		return withExit(ExitRequestError, err)
	}

	if saveFile == "" {
		_, err := cmd.OutOrStdout().Write(result.Body)
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes to %s\n", result.Bytes, result.Path)
	return nil
}
