package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jarvis/internal/ipc"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		socket  string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           "jarvis-ctl",
		Short:         "Control a running jarvis daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&socket, "socket", ipc.SocketPath, "Daemon control socket")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait for the reply")

	send := func(cmd *cobra.Command, msg ipc.ControlMessage) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		r, err := ipc.Send(ctx, socket, msg)
		if err != nil {
			return fmt.Errorf("jarvis daemon not running: %w", err)
		}
		if r.Error != "" {
			return errors.New(r.Error)
		}
		fmt.Fprintln(out, r.Text)
		return nil
	}

	var persona string
	ask := &cobra.Command{
		Use:   "ask <utterance...>",
		Short: "Send an utterance and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, ipc.ControlMessage{Cmd: ipc.CmdAsk, Text: strings.Join(args, " "), Persona: persona})
		},
	}
	ask.Flags().StringVarP(&persona, "persona", "p", "", "Persona for this utterance")

	simple := func(name, short string) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, ipc.ControlMessage{Cmd: name})
			},
		}
	}

	root.AddCommand(
		ask,
		simple(ipc.CmdTrigger, "Listen on the daemon microphone and answer aloud"),
		simple(ipc.CmdClear, "Clear the conversation history"),
		simple(ipc.CmdExport, "Export the conversation to a timestamped file"),
		simple(ipc.CmdHistory, "Print the conversation history as JSON"),
	)
	return root
}
