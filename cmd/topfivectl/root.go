package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/pkg/config"
	"github.com/noah-isme/topfive-api/pkg/logger"
)

// cliEnv is filled by the root command before any subcommand runs.
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func rootCommand() *cobra.Command {
	rt := &cliEnv{}

	root := &cobra.Command{
		Use:           "topfivectl",
		Short:         "Operator tooling for the Top Five API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		l, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		rt.cfg = cfg
		rt.logger = l
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if rt.logger != nil {
			_ = rt.logger.Sync()
		}
	}

	root.AddCommand(
		migrateCommand(rt),
		syncCommand(rt),
		promoteCommand(rt),
	)
	return root
}
