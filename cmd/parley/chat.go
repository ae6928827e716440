package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/newthinker/parley/internal/llm"
	"github.com/newthinker/parley/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatFlags sessionFlags

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation on stdin",
	Long: `Reads one prompt per line. /history prints the transcript,
/quit or end of input ends the conversation.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatFlags.register(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withSession(ctx, chatFlags, func(s *session.Session, log *zap.Logger) error {
		return chatLoop(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s, func(prompt string) (*session.Result, error) {
			return s.Query(ctx, prompt)
		})
	})
}

// chatLoop runs the read-query-print loop until /quit or EOF.
func chatLoop(in io.Reader, out, status io.Writer, s *session.Session, query func(string) (*session.Result, error)) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(status, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(status)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			printTranscript(out, s.Transcript())
			continue
		}

		res, err := query(line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Response)
		fmt.Fprintf(status, "-- tokens=%d latency=%dms\n", res.CompletionTokens, res.LatencyMS)
	}
}

func printTranscript(w io.Writer, msgs []llm.Message) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tROLE\tCONTENT\t")
	fmt.Fprintln(tw, "-\t----\t-------\t")
	for i, m := range msgs {
		content := strings.ReplaceAll(m.Content, "\n", " ")
		if r := []rune(content); len(r) > 80 {
			content = string(r[:77]) + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", i+1, m.Role, content)
	}
	tw.Flush()
}
