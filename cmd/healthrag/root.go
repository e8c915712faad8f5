package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/config"
	logpkg "github.com/kailas-cloud/healthrag/internal/logger"
)

// app holds what every command needs once flags are parsed.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

type rootOptions struct {
	env        string
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "healthrag",
		Short: "Grounded question answering over trusted health documents",
		Long: `healthrag answers health questions strictly from a fixed corpus of trusted
documents and refuses when the corpus has nothing relevant.

Typical workflow:
  healthrag ingest      # documents -> corpus_chunks.json
  healthrag build       # chunks -> embedding index
  healthrag serve       # HTTP API
  healthrag ask "What is hypertension?"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(opts)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.env, "env", "", "environment name (default: $ENV or local)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (overrides --env lookup)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before config")

	cmd.AddCommand(
		newIngestCmd(a),
		newBuildCmd(a),
		newServeCmd(a),
		newAskCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init(opts *rootOptions) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}

	a.env = opts.env
	if a.env == "" {
		a.env = config.GetEnv()
	}

	var err error
	if opts.configPath != "" {
		a.cfg, err = config.LoadFile(opts.configPath)
	} else {
		a.cfg, err = config.Load(a.env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a.logger, err = logpkg.NewLogger(a.env, a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}
