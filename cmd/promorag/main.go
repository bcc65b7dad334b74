// Package main implements the promorag CLI: document ingestion, indexing,
// question answering and the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "promorag",
		Short: "Question answering over promo-campaign documents",
		Long: `promorag turns PDF, DOCX and Excel documents into a searchable index
and answers questions about them with a language model.

Typical flow:
  promorag process   # parse documents into chunks.json
  promorag index     # embed chunks into the vector index
  promorag ask "Какой SLA на выплату?"
  promorag serve     # HTTP API on server.host:server.port`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env", ".env", "dotenv file loaded before PROMORAG_* overrides")

	root.AddCommand(
		newProcessCmd(flags),
		newIndexCmd(flags),
		newAskCmd(flags),
		newClassifyCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "promorag\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
