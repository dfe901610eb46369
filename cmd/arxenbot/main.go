// Command arxenbot runs the Arxen Construction chat assistant and estimate
// service, and provides knowledge-base maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arxenbot/internal/config"
	"arxenbot/internal/logging"
)

type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "arxenbot",
		Short: "Arxen Construction chat assistant and estimate service",
		Long: `arxenbot answers website chat messages from a curated knowledge base and
accepts free-estimate requests, delivering them to the office by email and a
form relay.

Configuration is read from the --config YAML file, then .env, then ARXEN_*
environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Log.Level = "debug"
				cfg.Log.Format = "console"
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "arxenbot.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to the console")

	root.AddCommand(a.serveCmd(), a.askCmd(), a.kbCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
