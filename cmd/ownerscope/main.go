package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/config"
	"github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/logging"
	"github.com/rohankatakam/ownerscope/internal/metrics"
	"github.com/rohankatakam/ownerscope/internal/output"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile    string
	verbose    bool
	formatFlag string

	logger  *logrus.Logger
	cfg     *config.Config
	printer *output.Printer
	metric  *metrics.Manager
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ownerscope",
	Short: "Ownerscope - predict who will approve a code change",
	Long: `Ownerscope learns, per CODEOWNERS group and per team, who actually approves
changes from a repository's merged pull requests, and ranks the most likely
approvers for a new set of changed files.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Storage layer logs through logrus
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			if cfgFile != "" {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to load config")
			}
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		logFile := cfg.Logging.File
		if strings.HasSuffix(logFile, "/") {
			logFile = logging.TimestampedFile(logFile)
		}
		logCfg := logging.DefaultConfig(verbose, logFile)
		if !verbose {
			logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
		}
		logCfg.JSONFormat = cfg.Logging.JSON
		if err := logging.Initialize(logCfg); err != nil {
			return err
		}

		format, err := output.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		printer = output.NewPrinter(format, cmd.OutOrStdout())
		metric = metrics.NewManager()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .ownerscope/config.yaml or ~/.ownerscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "o", "text", "output format: text, json or yaml")

	rootCmd.SetVersionTemplate(`Ownerscope {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(ownersCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
}
