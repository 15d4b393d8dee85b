package cmd

import (
	"fmt"

	"github.com/psds-microservice/support-bot/internal/config"
	"github.com/psds-microservice/support-bot/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "support-bot",
	Short:         "Telegram support relay bot: tickets for users, replies from a single admin",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(ticketsCmd)
}

// loadConfig загружает конфиг и настраивает логгер; общая часть всех команд.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Setup(cfg.LogLevel, cfg.AppEnv)
	return cfg, nil
}
