package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"infinixai/internal/infrastructure"
)

var promptTenant string

// promptCmd prints the prompt a tenant's assistant would receive, without
// calling the model.
var promptCmd = &cobra.Command{
	Use:   "prompt [message]",
	Short: "Render the prompt for a tenant and a customer message",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tenantID := promptTenant
		if tenantID == "" {
			tenantID = cfg.Chat.DefaultTenantID
		}
		if tenantID == "" {
			return errors.New("--tenant or DEFAULT_USER_ID is required")
		}

		pg, err := infrastructure.NewPostgresClient(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pg.Close()

		a, err := newStorage(cfg, pg.DB)
		if err != nil {
			return err
		}
		prompt, err := a.dashboard.PreviewPrompt(cmd.Context(), tenantID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return err
	},
}

func init() {
	promptCmd.Flags().StringVar(&promptTenant, "tenant", "", "tenant id (defaults to DEFAULT_USER_ID)")
}
