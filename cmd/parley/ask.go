package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/parley/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	askFlags sessionFlags
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt...]",
	Short: "Send one or more prompts in a single conversation",
	Long: `Each prompt is sent in order as a user message on the same transcript,
so later prompts see earlier answers. One result is printed per prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askFlags.register(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print results as JSON lines")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withSession(ctx, askFlags, func(s *session.Session, log *zap.Logger) error {
		out := cmd.OutOrStdout()
		for i, prompt := range args {
			res, err := s.Query(ctx, prompt)
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i+1, err)
			}
			if err := printResult(out, res, askJSON); err != nil {
				return err
			}
		}
		log.Info("prompts answered", zap.Int("count", len(args)))
		return nil
	})
}

func printResult(w io.Writer, res *session.Result, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(res)
	}
	fmt.Fprintln(w, res.Response)
	fmt.Fprintf(w, "-- tokens=%d latency=%dms at %s\n",
		res.CompletionTokens, res.LatencyMS, res.Timestamp.Format(time.RFC3339))
	return nil
}
