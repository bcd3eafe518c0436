package cli

import (
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCommand = &cobra.Command{
	Use:          "nas-snapsentry",
	Aliases:      []string{"snapsentry"},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1. Allow 'version' (and 'help') to run without configuration
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// 2. Defaults < config file < NAS_SNAPSENTRY_* env < flags
		loaded, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	Short: "NAS SnapSentry: snapshot housekeeping for NAS shares",
	Long: `NAS SnapSentry keeps every listed NAS share covered by recent snapshots.
For each share it creates a snapshot while fewer than two exist, and deletes
the snapshots older than 14 days once two or more are present.

Author: Aravindh Murugesan`,
}

func Execute() error {
	return rootCommand.Execute()
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "snapsentry", Title: "Snapsentry"})

	// Global persistent flags; every one of them can also be set through the
	// config file or a NAS_SNAPSENTRY_* environment variable.
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.Int("timeout", 0, "Global execution timeout in seconds (0 = run indefinitely)")
	flags.String("log-level", "", "Logging level (debug, info, warn, error)")
	flags.String("log-file", "", "Write JSON logs to this rotating file instead of stderr")

	flags.String("base-url", "", "Base URL of the cloud API (default https://api.ucloudbiz.olleh.com/gd1)")
	flags.String("domain-id", "", "Identity domain of the account (default \"default\")")
	flags.String("timezone", "", "Zone of naive snapshot timestamps (default Asia/Seoul)")
	flags.Duration("delete-interval", 0, "Pause between two snapshot deletions (default 1s)")

	flags.String("webhook-url", "", "Webhook URL for alerting")
	flags.String("webhook-username", "", "Webhook username for alerting")
	flags.String("webhook-password", "", "Webhook password for alerting")
	flags.String("telegram-token", "", "Telegram bot token for alerting")
	flags.String("telegram-chat-id", "", "Telegram chat id for alerting")
}
