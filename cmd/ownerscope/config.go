package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/ownerscope/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Ownerscope configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.GitHub.Token != "" {
			shown.GitHub.Token = maskToken(shown.GitHub.Token)
		}
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		fmt.Fprintf(cmd.OutOrStdout(), "# environment overrides: %s\n", strings.Join(config.EnvVars(), ", "))
		return nil
	},
}

var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			path = filepath.Join(config.Home(), "config.yaml")
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		cmd.Printf("✅ Wrote %s\n", path)
		cmd.Println("Set GITHUB_TOKEN in your environment or in a .env file to collect pull requests.")
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for every command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := cfg.Validate(config.ValidationContextAll)
		if result.HasErrors() {
			return result.Err()
		}
		for _, w := range result.Warnings {
			cmd.Printf("⚠️  %s\n", w)
		}
		cmd.Println("✅ Configuration is valid")
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "where to write the file (default: ~/.ownerscope/config.yaml)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
