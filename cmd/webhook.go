package cmd

import (
	"fmt"

	"github.com/psds-microservice/support-bot/internal/telegram"
	"github.com/spf13/cobra"
)

var dropPending bool

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set URL",
	Short: "Point the bot's webhook at URL (the public address of POST /)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := newBot()
		if err != nil {
			return err
		}
		if err := bot.SetWebhook(args[0], dropPending); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "webhook set: %s\n", args[0])
		return nil
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := newBot()
		if err != nil {
			return err
		}
		if err := bot.DeleteWebhook(dropPending); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
		return nil
	},
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := newBot()
		if err != nil {
			return err
		}
		info, err := bot.WebhookInfo()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "url:              %s\n", info.URL)
		fmt.Fprintf(out, "pending updates:  %d\n", info.PendingUpdateCount)
		if info.LastErrorMessage != "" {
			fmt.Fprintf(out, "last error:       %s\n", info.LastErrorMessage)
		}
		return nil
	},
}

func init() {
	webhookCmd.PersistentFlags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued by Telegram")
	webhookCmd.AddCommand(webhookSetCmd, webhookDeleteCmd, webhookInfoCmd)
}

func newBot() (*telegram.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateBot(); err != nil {
		return nil, err
	}
	return telegram.New(cfg.BotToken, cfg.TelegramAPIEndpoint)
}
