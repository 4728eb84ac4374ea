// Command intake is the field client: it walks a report draft through
// selection, location, analysis and submission against a running server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/bwise1/barrier_reports/internal/client"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
	token     string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Submit and manage accessibility barrier reports",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.Init(level, "text")
		logger.Log.SetOutput(os.Stderr)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("BARRIER_SERVER", "http://localhost:8080"), "report server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "timeout for each server call")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("BARRIER_TOKEN"), "admin bearer token for destructive commands")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log state transitions")

	rootCmd.AddCommand(submitCmd, listCmd, deleteCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	c, err := client.New(serverURL, timeout)
	if err != nil {
		return nil, err
	}
	c.Token = token
	return c, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
