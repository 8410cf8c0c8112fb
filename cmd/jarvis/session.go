package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
	"time"

	"jarvis/internal/assistant"
	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/ipc"
	"jarvis/internal/memory"
	"jarvis/internal/prompt"
	"jarvis/internal/voice"
)

const (
	cueFile = "beep.mp3"
	goodbye = "Goodbye, have a nice day!"
)

type session struct {
	asst    *assistant.Assistant
	store   *memory.Store
	catalog *prompt.Catalog
	persona prompt.Persona
	cfg     config.Config
	player  *audio.Player
	now     func() time.Time

	listener voice.Listener
}

func (s *session) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func greeting(hour int) string {
	switch {
	case hour < 12:
		return "Good Morning Sir! How are you doing?"
	case hour < 18:
		return "Good Afternoon Sir! How are you doing?"
	default:
		return "Good Evening Sir! How are you doing?"
	}
}

func isExit(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(q, "exit") || strings.Contains(q, "quit") || strings.Contains(q, "stop")
}

func (s *session) runText(ctx context.Context, in io.Reader, out io.Writer) error {
	c := voice.NewConsole(in, out)
	return s.loop(ctx, c, c, c)
}

func (s *session) runVoice(ctx context.Context) error {
	l, err := s.openListener()
	if err != nil {
		return err
	}
	defer l.Close()

	return s.loop(ctx, l, s.speaker(), nil)
}

// loop greets, then answers utterances until an exit word or the end of
// input. With a console, replies can be streamed and meta commands are
// available.
func (s *session) loop(ctx context.Context, l voice.Listener, sp voice.Speaker, c *voice.Console) error {
	say := func(text string) {
		if err := sp.Speak(text); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
	}

	say(greeting(s.clock().Hour()))
	say("I am Jarvis. How may I help you today?")

	for {
		query, err := l.Listen(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if query == "" {
			continue
		}

		if isExit(query) {
			say(goodbye)
			return nil
		}

		if c != nil && strings.HasPrefix(query, "/") {
			say(s.meta(query))
			continue
		}

		if c != nil && s.cfg.Stream {
			if _, err := c.Stream(s.asst.RespondStream(ctx, query, s.persona)); err != nil {
				return err
			}
			continue
		}
		say(s.asst.Respond(ctx, query, s.persona))
	}
}

// meta runs a slash command of the terminal front end.
func (s *session) meta(line string) string {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "clear":
		if err := s.asst.Clear(); err != nil {
			log.Warn("Failed to persist cleared history", "err", err)
		}
		return "Conversation history cleared."
	case "export":
		path, err := s.store.ExportFile(s.cfg.ExportDir, s.clock())
		if err != nil {
			log.Error("Export failed", "err", err)
			return "Sorry, I couldn't export the conversation."
		}
		return "Conversation exported to " + path
	case "persona":
		if arg == "" {
			return fmt.Sprintf("Current persona: %s. Available: %s", s.persona, s.personaList())
		}
		p, ok := s.catalog.Lookup(arg)
		if !ok {
			return fmt.Sprintf("Unknown persona %q. Available: %s", arg, s.personaList())
		}
		s.persona = p
		return fmt.Sprintf("Persona set to %s.", p)
	case "history":
		h := s.asst.History()
		if len(h) == 0 {
			return "The conversation is empty."
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d turns:", len(h))
		for _, t := range h {
			fmt.Fprintf(&sb, "\n[%s] %s", t.Role, t.Text())
		}
		return sb.String()
	default:
		return "Unknown command. Try /clear, /export, /persona <name> or /history."
	}
}

func (s *session) personaList() string {
	names := make([]string, 0)
	for _, p := range s.catalog.Personas() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

type closingListener interface {
	voice.Listener
	Close() error
}

func (s *session) openListener() (closingListener, error) {
	if len(s.cfg.Inputs) > 0 {
		return voice.NewFileListener(s.cfg.WhisperModel, s.cfg.Inputs)
	}
	return voice.NewMic(s.cfg.WhisperModel, s.cue, log.Default())
}

func (s *session) cue() {
	if _, err := os.Stat(cueFile); err != nil {
		return
	}
	if err := s.player.Cue(cueFile); err != nil {
		log.Warn("Failed to play cue", "err", err)
	}
}

// speaker prefers speech synthesis and falls back to printing.
func (s *session) speaker() voice.Speaker {
	sp, err := voice.NewEspeak()
	if err != nil {
		log.Warn("Speech synthesis unavailable, printing replies", "err", err)
		return voice.NewConsole(strings.NewReader(""), os.Stdout)
	}
	if !s.cfg.Duck {
		return sp
	}
	return voice.NewDuckingSpeaker(sp, audio.NewDucker([]string{"jarvis", "espeak-ng"}, 10))
}

func (s *session) runDaemon(ctx context.Context) error {
	srv, err := ipc.Listen(s.cfg.Socket, nil)
	if err != nil {
		return err
	}
	defer srv.Close()

	log.Info("Daemon listening", "socket", s.cfg.Socket)
	defer func() {
		if c, ok := s.listener.(closingListener); ok {
			c.Close()
		}
	}()
	return srv.Serve(ctx, s.control)
}

func (s *session) control(ctx context.Context, msg ipc.ControlMessage) ipc.Reply {
	persona := s.persona
	if msg.Persona != "" {
		p, ok := s.catalog.Lookup(msg.Persona)
		if !ok {
			return ipc.Reply{Error: fmt.Sprintf("unknown persona %q", msg.Persona)}
		}
		persona = p
	}

	switch msg.Cmd {
	case ipc.CmdAsk:
		return ipc.Reply{Text: s.asst.Respond(ctx, msg.Text, persona)}
	case ipc.CmdTrigger:
		return s.trigger(ctx, persona)
	case ipc.CmdClear:
		if err := s.asst.Clear(); err != nil {
			return ipc.Reply{Error: err.Error()}
		}
		return ipc.Reply{Text: "Conversation history cleared."}
	case ipc.CmdExport:
		path, err := s.store.ExportFile(s.cfg.ExportDir, s.clock())
		if err != nil {
			return ipc.Reply{Error: err.Error()}
		}
		return ipc.Reply{Text: path}
	case ipc.CmdHistory:
		data, err := s.asst.Export()
		if err != nil {
			return ipc.Reply{Error: err.Error()}
		}
		return ipc.Reply{Text: string(data)}
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Reply{Error: "unknown command " + msg.Cmd}
	}
}

// trigger listens once on the microphone, answers and speaks the answer.
func (s *session) trigger(ctx context.Context, persona prompt.Persona) ipc.Reply {
	if s.listener == nil {
		l, err := s.openListener()
		if err != nil {
			return ipc.Reply{Error: err.Error()}
		}
		s.listener = l
	}

	query, err := s.listener.Listen(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return ipc.Reply{Error: err.Error()}
	}
	if query == "" {
		return ipc.Reply{Text: "Sorry, I could not understand the audio."}
	}

	reply := s.asst.Respond(ctx, query, persona)
	if err := s.speaker().Speak(reply); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
	return ipc.Reply{Text: reply}
}
