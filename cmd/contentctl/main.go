// Command contentctl runs content maintenance tasks outside the API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studyhub/content-service/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "contentctl",
	Short:         "Content service maintenance tool",
	Long:          `Convert documents to outlines, derive asset URLs and maintain the content database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// setup loads configuration and returns a logger writing to the command's
// error stream.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return config.Load(), logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
