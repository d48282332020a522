package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receiptwise/receiptwise/internal/similarity"
)

func newCompareCmd() *cobra.Command {
	var referencePath string

	cmd := &cobra.Command{
		Use:   "compare CODE",
		Short: "Score a code against the reference row",
		Long: `Compares a candidate code against every column of the reference CSV's
first data row and prints the per-column similarity ratios.`,
		Example: `  receiptwise compare A123 --reference data/reference.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comparator, err := similarity.LoadReference(referencePath)
			if err != nil {
				return fmt.Errorf("failed to load reference data: %w", err)
			}

			return printJSON(comparator.Compare(args[0]))
		},
	}

	cmd.Flags().StringVar(&referencePath, "reference", "", "Path to the reference CSV")
	_ = cmd.MarkFlagRequired("reference")

	return cmd
}
