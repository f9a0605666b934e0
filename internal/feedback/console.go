package feedback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Console is a terminal-backed Notifier used by the CLI. Notifications go
// to the output stream and the structured log; confirmations read a y/N
// answer from the input stream.
type Console struct {
	logger *zap.Logger
	in     io.Reader
	out    io.Writer
}

// NewConsole creates a console notifier over the given streams
func NewConsole(logger *zap.Logger, in io.Reader, out io.Writer) *Console {
	return &Console{logger: logger, in: in, out: out}
}

// Notify prints the message with its severity tag
func (c *Console) Notify(kind Kind, message string) {
	fmt.Fprintf(c.out, "[%s] %s\n", strings.ToUpper(string(kind)), message)

	switch kind {
	case KindError:
		c.logger.Error(message)
	case KindWarning:
		c.logger.Warn(message)
	default:
		c.logger.Info(message)
	}
}

// Confirm prompts for a y/N answer. Anything but "y"/"yes" declines.
func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		if !scanner.Scan() {
			ch <- answer{err: scanner.Err()}
			return
		}
		ch <- answer{text: scanner.Text()}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.text)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
