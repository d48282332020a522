package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receiptwise",
		Short: "Receipt reconciliation tool with LLM-powered field extraction",
		Long: `Receiptwise extracts structured order fields from receipt images using
vision-capable LLMs, reconciles them against a local order database, and
tracks which orders have been physically collected.

It also ships a batch evaluator for measuring extraction accuracy against
a ground-truth table.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newCollectCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
