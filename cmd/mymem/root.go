package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	jsonOut  bool
	logLevel string
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var rootCmd = &cobra.Command{
	Use:   "mymem",
	Short: "Simulate heap placement strategies over a fixed-size pool",
	Long: `mymem drives a simulated heap allocator that places blocks in a single
fixed-size pool using first, best, worst, or next fit. It can run the randomized
stress suite and compare strategies, or replay a short demonstration sequence.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, or error")
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newLogger builds the text logger shared by every command, writing to w
func newLogger(w io.Writer) (*slog.Logger, error) {
	level, ok := logLevels[strings.ToLower(logLevel)]
	if !ok {
		return nil, errors.Newf("unknown log level %q", logLevel)
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w)), nil
}
