package main

import (
	"github.com/spf13/cobra"
)

var (
	resetHistory bool
	resetYes     bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete trained models and the processed-record ledger",
	Long: `Reset clears the model store so the next 'ownerscope train' retrains from
scratch. With --history the stored change records are deleted too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if !resetYes {
			cmd.Println("Refusing to reset without --yes")
			return nil
		}

		store, err := openModels()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Reset(ctx); err != nil {
			return err
		}
		cmd.Println("✅ Models and ledger cleared")

		if !resetHistory {
			return nil
		}
		history, err := openHistory()
		if err != nil {
			return err
		}
		defer history.Close()
		if err := history.DeleteAll(ctx); err != nil {
			return err
		}
		cmd.Println("✅ Change history cleared")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetHistory, "history", false, "also delete stored change records")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "confirm the reset")
}
