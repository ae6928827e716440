package credential

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for a secret.
type Prompter interface {
	Prompt(message string) (string, error)
}

// TerminalPrompter reads the secret with echo disabled when In is a
// terminal, and as a plain line otherwise (piped input).
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Prompt prints message and reads one secret.
func (p *TerminalPrompter) Prompt(message string) (string, error) {
	fmt.Fprintln(p.Out, message)
	fmt.Fprint(p.Out, "API key: ")

	fd := int(p.In.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out) // newline after hidden input
		if err != nil {
			return "", err
		}
		return normalizeSecret(string(b)), nil
	}

	line, err := readLine(p.In)
	if err != nil {
		return "", err
	}
	return normalizeSecret(line), nil
}

// readLine reads up to a newline one byte at a time, so nothing past the
// line is consumed from a shared stdin.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", io.ErrUnexpectedEOF
			}
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}
