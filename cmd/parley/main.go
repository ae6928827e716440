package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "parley - conversation bookkeeping for chat-completion APIs",
	Long: `parley keeps a conversation transcript, sends it to a chat-completion
endpoint, retries on timeout and reports latency and token usage per query.
Without --model it runs dry, producing synthetic responses offline.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
