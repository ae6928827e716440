package main

import (
	"context"
	"fmt"

	"github.com/newthinker/parley/internal/config"
	"github.com/newthinker/parley/internal/credential"
	"github.com/newthinker/parley/internal/llm"
	"github.com/newthinker/parley/internal/llm/factory"
	"github.com/newthinker/parley/internal/logger"
	"github.com/newthinker/parley/internal/metrics"
	"github.com/newthinker/parley/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sessionFlags are shared by the commands that talk to a model.
type sessionFlags struct {
	model           string
	system          string
	metricsTextfile string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model key from config (omit for a dry run)")
	cmd.Flags().StringVarP(&f.system, "system", "s", "", "system prompt seeding the transcript")
	cmd.Flags().StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
}

// loadConfig loads and validates the config file, or falls back to defaults.
func loadConfig() (*config.Config, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if debug {
		return logger.New(true, "debug")
	}
	return logger.New(cfg.Log.Development, cfg.Log.Level)
}

// withSession handles common config, logger, provider and metrics setup.
func withSession(ctx context.Context, flags sessionFlags, fn func(s *session.Session, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}

	var provider llm.Provider
	if flags.model != "" {
		// resolve the model before any credential prompt
		if _, err := cfg.ModelID(flags.model); err != nil {
			return err
		}
		creds, err := credential.NewFromConfig(cfg.Credentials, credential.NewTerminalPrompter(), log)
		if err != nil {
			return err
		}
		provider, err = factory.New(ctx, cfg, creds)
		if err != nil {
			return fmt.Errorf("creating provider: %w", err)
		}
	}

	reg := metrics.NewRegistry()
	s, err := session.New(cfg, provider, flags.model, flags.system,
		session.WithLogger(log),
		session.WithMetrics(reg),
	)
	if err != nil {
		return err
	}

	log.Debug("session ready",
		zap.String("session", s.ID()),
		zap.Bool("dry_run", s.DryRun()),
		zap.String("model", s.Model()),
	)

	runErr := fn(s, log)

	textfile := flags.metricsTextfile
	if textfile == "" {
		textfile = cfg.Metrics.Textfile
	}
	if textfile != "" {
		if err := reg.WriteTextfile(textfile); err != nil {
			log.Error("failed to write metrics", zap.Error(err))
		}
	}

	return runErr
}
