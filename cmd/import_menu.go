package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yeremiapane/fuji-pos/database"
	"github.com/yeremiapane/fuji-pos/menuimport"
)

func importMenuCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import-menu <file.csv>",
		Short: "Upsert menu items from a CSV sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open menu sheet: %w", err)
			}
			defer f.Close()

			if batchSize <= 0 {
				batchSize = cfg.Settings.ImportBatchSize
			}
			result, err := menuimport.NewImporter(db, batchSize).Import(cmd.Context(), f)
			if result != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(result)
			}
			if err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d rows rejected", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per transaction (default from settings)")
	return cmd
}
