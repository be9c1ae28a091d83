// Command callrag-index creates the retrieval indexes and loads JSONL corpora into them.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/callrag/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "callrag-index",
		Short:         "Manage callrag retrieval indexes",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("env", "", "config environment (defaults to $ENV or local)")

	root.AddCommand(newEnsureCmd(), newLoadCmd())
	return root
}
