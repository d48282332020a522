package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/receiptwise/receiptwise/internal/barcode"
	"github.com/receiptwise/receiptwise/internal/collect"
	"github.com/receiptwise/receiptwise/internal/fieldmap"
	"github.com/receiptwise/receiptwise/internal/store"
)

func newCollectCmd() *cobra.Command {
	var (
		dbPath     string
		fieldsPath string
		imagePath  string
	)

	cmd := &cobra.Command{
		Use:   "collect [ORDER_ID]",
		Short: "Mark an order as collected",
		Long: `Marks an order as physically collected. Pass the order id directly,
or --image with a barcode photo to decode the id with zbarimg.

Marking is idempotent: collecting an already-collected order reports
its original collection state without modifying it.`,
		Example: `  # Mark by order id
  receiptwise collect A123

  # Mark by barcode image
  receiptwise collect --image barcode.jpg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			}

			if identifier == "" && imagePath == "" {
				return fmt.Errorf("pass an order id or --image")
			}

			if identifier == "" {
				image, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("cannot read image: %w", err)
				}
				codes, err := barcode.NewZbarDecoder().Decode(cmd.Context(), image)
				if err != nil {
					return err
				}
				if len(codes) == 0 {
					return fmt.Errorf("no barcode found in %s", imagePath)
				}
				identifier = codes[0]
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

			outcome, err := collect.NewWorkflow(st).MarkCollected(cmd.Context(), identifier)
			if err != nil {
				return err
			}

			return printJSON(outcome)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "orders.db", "Path to the SQLite order database")
	cmd.Flags().StringVar(&fieldsPath, "fields", "", "Path to a YAML field mapping config (default built-in fields)")
	cmd.Flags().StringVar(&imagePath, "image", "", "Barcode image to decode for the order id")

	return cmd
}
