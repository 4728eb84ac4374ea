package main

import (
	"fmt"
	"time"

	"github.com/bwise1/barrier_reports/internal/client"
	api "github.com/bwise1/barrier_reports/internal/http/rest"
	"github.com/spf13/cobra"
)

var listOpts client.ListOptions

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		reports, err := c.ListReports(cmd.Context(), listOpts)
		if err != nil {
			return err
		}
		return printJSON(cmd, reports)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteReport(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var (
	tokenSecret  string
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for destructive routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		signed, expiresAt, err := api.SignAdminToken(tokenSecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listOpts.Category, "category", "", "only this category")
	listCmd.Flags().StringVar(&listOpts.Severity, "severity", "", "only this severity")
	listCmd.Flags().StringVar(&listOpts.Status, "status", "", "only this status")
	listCmd.Flags().StringVar(&listOpts.AreaID, "area", "", "only reports routed to this area")
	listCmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "maximum number of reports")

	tokenCmd.Flags().StringVar(&tokenSecret, "secret", envOr("ADMIN_JWT_SECRET", ""), "admin signing secret")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "intake-cli", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
