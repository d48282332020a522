package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/receiptwise/receiptwise/internal/extraction"
	"github.com/receiptwise/receiptwise/internal/fieldmap"
	"github.com/receiptwise/receiptwise/internal/reconcile"
	"github.com/receiptwise/receiptwise/internal/store"
)

func newScanCmd() *cobra.Command {
	var (
		dbPath     string
		fieldsPath string
		provider   string
		model      string
		confirm    bool
	)

	cmd := &cobra.Command{
		Use:   "scan IMAGE",
		Short: "Extract fields from a receipt image and reconcile them",
		Long: `Extracts structured order fields from a receipt image and reconciles
them against the order database.

New orders are inserted immediately. When the extracted fields disagree
with a stored record the conflict is printed with a proposed token;
pass --confirm to commit the proposed values in the same invocation.`,
		Example: `  # Scan a receipt
  receiptwise scan receipt.jpg

  # Scan and auto-commit conflicting fields
  receiptwise scan receipt.jpg --confirm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]
			if _, err := os.Stat(imagePath); err != nil {
				return fmt.Errorf("cannot read image: %w", err)
			}

			cfg, err := fieldmap.LoadConfig(fieldsPath)
			if err != nil {
				return fmt.Errorf("failed to load field config: %w", err)
			}
			mapper := fieldmap.NewMapper(cfg)

			st, err := store.Open(dbPath, mapper.FieldNames())
			if err != nil {
				return fmt.Errorf("failed to open order database: %w", err)
			}
			defer st.Close()

			pipeline, err := extraction.NewLLM(provider, model, mapper.FieldNames())
			if err != nil {
				return err
			}

			raw, err := pipeline.Extract(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			engine := reconcile.NewEngine(st, mapper)
			outcome, err := engine.Reconcile(cmd.Context(), mapper.Map(raw), filepath.Base(imagePath))
			if err != nil {
				return err
			}

			if confirm && outcome.State == reconcile.StateConflictPending {
				outcome, err = engine.Confirm(cmd.Context(), outcome.Record.OrderID, outcome.ProposedToken)
				if err != nil {
					return err
				}
			}

			return printJSON(outcome)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "orders.db", "Path to the SQLite order database")
	cmd.Flags().StringVar(&fieldsPath, "fields", "", "Path to a YAML field mapping config (default built-in fields)")
	cmd.Flags().StringVar(&provider, "provider", "", "Extraction provider: ollama, openai, or gemini (default $EXTRACTION_PROVIDER or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default per provider)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Commit proposed values when a conflict is found")

	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
