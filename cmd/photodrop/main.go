package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/photodrop/pkg/photodrop/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "photodrop",
		Short: "Anonymous photo upload relay",
		Long: `photodrop lets guests upload photos to an event without an account.

Uploads are gated by time limited HMAC tokens minted with "photodrop token issue"
or the admin endpoints, and are stored in memory, on disk or in S3.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("failed to load %s: %w", envFile, err)
				}
				return nil
			}
			_ = godotenv.Load()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env when present)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewTokenCommand())

	return rootCmd
}

// loadConfig reads the environment and configures the default logger
func loadConfig(opts ...config.Option) (*config.ServerConfig, error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := setupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}
