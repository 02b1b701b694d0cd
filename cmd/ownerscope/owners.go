package main

import (
	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
)

var ownersFile string

var ownersCmd = &cobra.Command{
	Use:   "owners FILE...",
	Short: "Show which ownership rule owns each file",
	Long: `Owners applies last-match-wins resolution and prints the winning rule and
owners for each file. Rules come from --ownership, ownership.file, or the
rules the current models were trained with.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := rulesFor(cmd.Context(), ownersFile)
		if err != nil {
			return err
		}
		return printer.Ownership(codeowners.NewResolver(rules).Explain(args))
	},
}

func init() {
	ownersCmd.Flags().StringVar(&ownersFile, "ownership", "", "ownership file to resolve against")
}
