// Command convoskills runs the conversational order-skills engine from
// the terminal. The demo subcommand drives a scripted cancel-order
// conversation against in-memory providers, which is useful for smoke
// testing message catalogs and session stores.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	sessionDB string
	messages  string
	verbose   bool
}

func main() {
	// A missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "convoskills",
		Short:         "Dependent slot-filling engine for conversational order skills",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.sessionDB, "session-db",
		os.Getenv("CONVOSKILLS_SESSION_DB"),
		"path to a SQLite session store (empty: in-memory)")
	cmd.PersistentFlags().StringVar(&opts.messages, "messages",
		os.Getenv("CONVOSKILLS_MESSAGES"),
		"path to a YAML message catalog (empty: echo message keys)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"enable debug logging")

	cmd.AddCommand(newDemoCmd(opts))
	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
