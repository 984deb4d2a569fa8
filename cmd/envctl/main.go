package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/client"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	apiTimeout time.Duration

	rootCmd = &cobra.Command{
		Use:           "envctl",
		Short:         "Manage experiment data and compare new runs against historical envelopes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	defaultURL := os.Getenv("ENVELOPE_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "base URL of the envelope API (env ENVELOPE_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "timeout", client.DefaultTimeout, "per-request timeout")

	rootCmd.AddCommand(typesCmd, dataCmd, settingsCmd, envelopeCmd, compareCmd, sessionCmd)
}

// cleanupTimeout bounds the delete of staged data when a command exits
const cleanupTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", client.Message(err))
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(apiURL, client.WithTimeout(apiTimeout))
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openFile(path string) (client.File, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return client.File{}, nil, err
	}
	return client.File{Name: filepath.Base(path), Content: f}, f.Close, nil
}
