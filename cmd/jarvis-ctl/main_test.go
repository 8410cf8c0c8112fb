package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/ipc"
)

func startDaemon(t *testing.T) (string, <-chan ipc.ControlMessage) {
	t.Helper()
	dir, err := os.MkdirTemp("", "jctl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "d.sock")

	srv, err := ipc.Listen(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	got := make(chan ipc.ControlMessage, 16)
	go srv.Serve(ctx, func(_ context.Context, msg ipc.ControlMessage) ipc.Reply {
		got <- msg
		if msg.Cmd == ipc.CmdTrigger {
			return ipc.Reply{Error: "voice support not compiled in"}
		}
		return ipc.Reply{Text: "ok " + msg.Cmd}
	})
	return path, got
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAsk(t *testing.T) {
	path, got := startDaemon(t)

	out, err := run(t, "--socket", path, "ask", "-p", "Tutor", "what", "is", "go")
	require.NoError(t, err)
	assert.Equal(t, "ok ask\n", out)
	assert.Equal(t, ipc.ControlMessage{Cmd: ipc.CmdAsk, Text: "what is go", Persona: "Tutor"}, <-got)
}

func TestSimpleCommands(t *testing.T) {
	path, _ := startDaemon(t)

	for _, c := range []string{ipc.CmdClear, ipc.CmdExport, ipc.CmdHistory} {
		out, err := run(t, "--socket", path, c)
		require.NoError(t, err, c)
		assert.Equal(t, "ok "+c+"\n", out)
	}

	_, err := run(t, "--socket", path, ipc.CmdTrigger)
	assert.EqualError(t, err, "voice support not compiled in")
}

func TestDaemonNotRunning(t *testing.T) {
	_, err := run(t, "--socket", filepath.Join(t.TempDir(), "none.sock"), "clear")
	assert.ErrorContains(t, err, "not running")
}

func TestAskNeedsText(t *testing.T) {
	_, err := run(t, "ask")
	assert.Error(t, err)
}
