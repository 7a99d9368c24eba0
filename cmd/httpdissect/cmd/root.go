// Package cmd provides the CLI commands for httpdissect.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/httpdissect/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "httpdissect",
	Short: "httpdissect - HTTP/1.x message dissector",
	Long: `httpdissect splits raw HTTP/1.x messages into a start line, named header
slots, overflow headers and an opaque body, and rebuilds them byte for byte.

Quick start:
  printf 'GET / HTTP/1.1\r\nHost: example.com\r\n\r\n' | httpdissect dissect
  httpdissect serve

Configuration:
  Config is loaded from httpdissect.yaml in the current directory,
  $HOME/.httpdissect/, or /etc/httpdissect/.

  Environment variables can override config values with the HTTPDISSECT_ prefix.
  Example: HTTPDISSECT_SERVER_HTTP_ADDR=:9090

Commands:
  classify    Report whether payloads are requests or responses
  dissect     Dissect a payload into a message document
  build       Serialize a message document to wire bytes
  serve       Run the inspection API
  query       List stored captures
  hash-key    Generate an argon2id hash for an API key
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./httpdissect.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// newLogger builds the stderr text logger. DevMode forces debug.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// readInput reads the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
