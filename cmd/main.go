package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"infinixai/internal/config"
)

var (
	envFile string
	v       *viper.Viper
)

// flagKeys maps command-line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"addr":         "http_addr",
	"database-url": "database_url",
	"log-level":    "log_level",
}

var rootCmd = &cobra.Command{
	Use:           "infinixai",
	Short:         "AI sales assistant for small businesses",
	Long:          "Answers customer messages from the web chat, WhatsApp and Telegram with a prompt built from each business's settings and catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v = config.New(envFile)
		for flag, key := range flagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before reading the environment")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string (DATABASE_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, migrateCmd, promptCmd)
}

// loadConfig reads the configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	cfg.ConfigureLogging()
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
