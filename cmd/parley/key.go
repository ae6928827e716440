package main

import (
	"fmt"

	"github.com/newthinker/parley/internal/credential"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var keyReset bool

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Ensure an API key is stored",
	Long: `Reads the API key from the configured credential source, prompting
for it (hidden input) and storing it when none is present yet.`,
	Args: cobra.NoArgs,
	RunE: runKey,
}

func init() {
	keyCmd.Flags().BoolVar(&keyReset, "reset", false, "forget the stored key and prompt for a new one")
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	creds, err := credential.NewFromConfig(cfg.Credentials, credential.NewTerminalPrompter(), log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	location := "environment variable " + cfg.Credentials.Env
	if sp, ok := creds.(*credential.StoreProvider); ok {
		location = sp.Location()
		if keyReset {
			if err := sp.Reset(ctx); err != nil {
				return err
			}
			log.Info("stored API key removed", zap.String("location", location))
		}
	} else if keyReset {
		return fmt.Errorf("--reset only applies to stored keys")
	}

	secret, err := creds.Secret(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "API key:  %s\n", credential.Mask(secret))
	fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\n", location)
	return nil
}
