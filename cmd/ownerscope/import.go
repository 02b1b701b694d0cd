package main

import (
	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/config"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import change records from a JSON file into the history store",
	Long: `Import reads a JSON array of change records:

  [{"id": 42, "file_paths": ["core/a.go"], "approvers": ["alice"],
    "author": "bob", "additions": 10, "deletions": 2,
    "title": "Fix race", "created_at": "2024-03-01T10:00:00Z"}]

Records whose id is already stored are replaced. Run 'ownerscope train'
afterwards to learn from them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validate(config.ValidationContextTrain); err != nil {
			return err
		}

		history, err := openHistory()
		if err != nil {
			return err
		}
		defer history.Close()

		n, err := importFile(cmd.Context(), history, importFilePath)
		if err != nil {
			return err
		}
		total, err := history.Count(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d new record(s); %d stored\n", n, total)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFilePath, "file", "f", "", "JSON file of change records")
	_ = importCmd.MarkFlagRequired("file")
}
