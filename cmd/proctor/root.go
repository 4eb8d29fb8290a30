package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/edtools/proctor/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "proctor",
	Short: "Conversational essay grading assistant",
	Long: `proctor routes a teacher's chat messages to task-specific grading
agents and coordinates the multi-phase essay grading workflow against
the grading service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; credentials may come from the shell.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(toolsCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}
