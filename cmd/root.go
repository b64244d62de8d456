package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ransacfit/internal/config"
)

var (
	logLevel   string
	configPath string
	logger     *slog.Logger

	// cfg holds the file configuration; flags set on the command line
	// override it.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "ransacfit",
	Short: "Robust model fitting with RANSAC",
	Long: `ransacfit finds the model supported by the most inliers in noisy data
using random sample consensus. It fits lines, affine maps, homographies
and fundamental matrices, and can run fits as jobs behind an HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		// stdout carries results
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
}
