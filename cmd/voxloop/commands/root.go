package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lovrenc-k/voxloop/core/config"
)

var rootCmd = &cobra.Command{
	Use:   "voxloop",
	Short: "Voice dialogue loop over the LemonFox APIs",
	Long: `voxloop - a push-to-talk voice assistant loop.

It listens for speech, transcribes it, streams a chat reply and speaks the
reply back sentence by sentence. All endpoints, models and voices are set
through environment variables (LEMONFOX_API_KEY is required for the hosted
defaults).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment and installs the default logger so client
// warnings land in the log file instead of the terminal.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := setupLogging(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) error {
	var level slog.Level
	switch cfg.LogLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", cfg.LogLevel)
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}
