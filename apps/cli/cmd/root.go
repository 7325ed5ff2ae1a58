package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/abdul-hamid-achik/httpdebug/packages/core/config"
	"github.com/abdul-hamid-achik/httpdebug/packages/logging"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
	noColorFlag  bool

	cfg    = config.DefaultConfig()
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "httpdebug",
	Short: "Send hand-built HTTP requests and inspect every byte that comes back.",
	Long: `httpdebug issues one HTTP/1.x request at a time and shows the status
line, headers, body and transport diagnostics of the response.

Requests are sent through a client library by default, or over a raw
socket when --transport socket is given.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and maps the outcome onto an exit code.
func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Run '%s --help' for usage.\n", rootCmd.CommandPath())
	return ExitUsageError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HTTPDEBUG_CONFIG", ""), "Path to config file (env: HTTPDEBUG_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString(logging.EnvLevel, ""), "Log level: debug, info, warn, error (env: HTTPDEBUG_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HTTPDEBUG_NO_COLOR", false), "Disable colored output (env: HTTPDEBUG_NO_COLOR)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(repeatCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the config file and builds the logger before any command
// runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	cfg = loaded
	if noColorFlag {
		cfg.NoColor = config.BoolPtr(true)
	}

	level := logLevelFlag
	if level == "" {
		level = cfg.LogLevel
	}
	l, err := logging.New(logging.Options{Level: level, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	logger = l
	slog.SetDefault(logger)
	logger.Debug("config loaded", "path", configFlag, "transport", cfg.Transport)
	return nil
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
