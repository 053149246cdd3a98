// Package cli implements the showcase command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/config"
	"github.com/showcase-dev/showcase/internal/logging"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	nonInteractive bool
	jsonOutput     bool
	noProgress     bool

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "showcase",
	Short: "Scripted multi-agent replays and a tax chat demo in your terminal",
	Long: `showcase replays canned multi-agent conversations and talks to a demo
tax assistant. Run "showcase ui" for the interactive view or "showcase serve"
to host the demo chat endpoint locally.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Close()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./showcase.yaml or ~/.config/showcase/showcase.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt or open the TUI")
	flags.BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")
	flags.BoolVar(&noProgress, "no-progress", false, "hide progress output")
}

func initRuntime(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return &PreflightError{
			Message:  err.Error(),
			Hint:     "Fix the config file or SHOWCASE_* environment variables",
			NextStep: "showcase --config <path> scripts",
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return err
	}
	appConfig = cfg
	logger := logging.Component("cli")
	logger.Debug().Str("command", cmd.Name()).Msg("config loaded")
	return nil
}

// GetConfig returns the loaded configuration, or defaults before load.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// PreflightError describes an environment problem with a suggested fix.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		return 1
	}
	return 0
}

func printError(out io.Writer, err error) {
	var preflight *PreflightError
	if errors.As(err, &preflight) {
		fmt.Fprintf(out, "Error: %s\n", preflight.Message)
		if strings.TrimSpace(preflight.Hint) != "" {
			fmt.Fprintf(out, "Hint: %s\n", preflight.Hint)
		}
		if strings.TrimSpace(preflight.NextStep) != "" {
			fmt.Fprintf(out, "Next: %s\n", preflight.NextStep)
		}
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
