package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
)

// Console reads utterances from a line based input and prints replies.
// Markdown replies are rendered when the output is a terminal.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	Prompt   string
	renderer *glamour.TermRenderer

	start sync.Once
	lines chan line
	err   error
}

type line struct {
	text string
	err  error
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out, Prompt: "You: ", lines: make(chan line)}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			c.renderer = r
		}
	}
	return c
}

// Listen waits for the next line or for ctx to be done. A line still being
// read when ctx ends is delivered to the next call.
func (c *Console) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.err != nil {
		return "", c.err
	}
	c.start.Do(func() { go c.read() })
	fmt.Fprint(c.out, c.Prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-c.lines:
		if l.err != nil {
			c.err = l.err
			if l.text == "" {
				return "", l.err
			}
		}
		return strings.TrimSpace(l.text), nil
	}
}

func (c *Console) read() {
	for {
		text, err := c.in.ReadString('\n')
		c.lines <- line{text: text, err: err}
		if err != nil {
			return
		}
	}
}

func (c *Console) Speak(text string) error {
	if c.renderer != nil {
		if md, err := c.renderer.Render(text); err == nil {
			_, err = fmt.Fprintf(c.out, "Jarvis:\n%s", md)
			return err
		}
	}
	_, err := fmt.Fprintf(c.out, "Jarvis: %s\n", text)
	return err
}

// Stream prints chunks as they arrive and returns the full reply.
func (c *Console) Stream(chunks iter.Seq[string]) (string, error) {
	var sb strings.Builder
	if _, err := fmt.Fprint(c.out, "Jarvis: "); err != nil {
		return "", err
	}
	for chunk := range chunks {
		sb.WriteString(chunk)
		if _, err := fmt.Fprint(c.out, chunk); err != nil {
			return sb.String(), err
		}
	}
	_, err := fmt.Fprintln(c.out)
	return sb.String(), err
}
