// Package assistant routes utterances either to a deterministic command or
// to the generation engine, keeping the conversation history for the latter.
package assistant

import (
	"context"
	"errors"
	"iter"
	log "log/slog"
	"strings"
	"time"

	"jarvis/internal/engine"
	"jarvis/internal/memory"
	"jarvis/internal/prompt"
)

// Apology is returned (and stored as the model turn) whenever the engine
// fails or refuses to answer.
const Apology = "Sorry, I encountered an error while generating a response. Please try again."

// Store is the part of the conversation store the assistant mutates.
type Store interface {
	Add(role memory.Role, text string) error
	History() []memory.Turn
	Clear() error
	Export() ([]byte, error)
}

type Assistant struct {
	store   Store
	builder *prompt.Builder
	engine  engine.Engine
	rules   []Rule
	now     func() time.Time
	log     *log.Logger
}

type Option func(*Assistant)

// WithRules replaces the default command table.
func WithRules(rules []Rule) Option {
	return func(a *Assistant) {
		a.rules = rules
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Assistant) {
		a.log = l
	}
}

// New wires the assistant. It fails when the rule table is invalid.
func New(store Store, builder *prompt.Builder, eng engine.Engine, actions Actions, opts ...Option) (*Assistant, error) {
	a := &Assistant{
		store:   store,
		builder: builder,
		engine:  eng,
		now:     time.Now,
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rules == nil {
		a.rules = DefaultRules(actions, func() time.Time { return a.now() })
	}
	if err := ValidateRules(a.rules); err != nil {
		return nil, err
	}
	return a, nil
}

// Respond answers one utterance. Command replies leave the history untouched;
// anything else is sent to the engine with the full history. Blank
// utterances are ignored.
func (a *Assistant) Respond(ctx context.Context, utterance string, persona prompt.Persona) string {
	if strings.TrimSpace(utterance) == "" {
		return ""
	}

	query := strings.ToLower(utterance)
	if r, ok := Match(a.rules, query); ok {
		a.log.Info("Command", "rule", r.Name)
		return r.Handle(ctx, query)
	}

	payload := a.begin(utterance, persona)

	text, err := a.engine.Generate(ctx, payload)
	if err != nil {
		a.logEngineError(err)
		a.commit(Apology)
		return Apology
	}
	if text == "" {
		a.log.Warn("Engine returned empty text, dropping model turn")
		return Apology
	}

	a.commit(text)
	return text
}

// RespondStream is the streaming form of Respond. Chunks are forwarded as
// the engine produces them; the model turn is stored once, after the engine
// is exhausted, even if the caller stops ranging early. The sequence can be
// ranged over only once.
func (a *Assistant) RespondStream(ctx context.Context, utterance string, persona prompt.Persona) iter.Seq[string] {
	used := false
	return func(yield func(string) bool) {
		if used {
			return
		}
		used = true

		if strings.TrimSpace(utterance) == "" {
			return
		}

		query := strings.ToLower(utterance)
		if r, ok := Match(a.rules, query); ok {
			a.log.Info("Command", "rule", r.Name)
			yield(r.Handle(ctx, query))
			return
		}

		payload := a.begin(utterance, persona)

		var (
			sb      strings.Builder
			open    = true
			failed  bool
			blocked int
		)
		emit := func(s string) {
			sb.WriteString(s)
			if open {
				open = yield(s)
			}
		}

		for chunk, err := range a.engine.GenerateStream(ctx, payload) {
			if errors.Is(err, engine.ErrBlocked) {
				blocked++
				a.log.Warn("Skipping blocked chunk", "err", err)
				continue
			}
			if err != nil {
				a.logEngineError(err)
				failed = true
				break
			}
			emit(chunk)
		}

		switch {
		case failed:
			emit(Apology)
		case sb.Len() == 0 && blocked > 0:
			emit(Apology)
		case sb.Len() == 0:
			a.log.Warn("Engine stream was empty, dropping model turn")
			if open {
				yield(Apology)
			}
			return
		}

		a.commit(sb.String())
	}
}

func (a *Assistant) Clear() error {
	return a.store.Clear()
}

func (a *Assistant) Export() ([]byte, error) {
	return a.store.Export()
}

func (a *Assistant) History() []memory.Turn {
	return a.store.History()
}

func (a *Assistant) begin(utterance string, persona prompt.Persona) prompt.Payload {
	if err := a.store.Add(memory.RoleUser, utterance); err != nil {
		a.log.Warn("Failed to store user turn", "err", err)
	}
	return a.builder.Build(a.store.History(), persona)
}

func (a *Assistant) commit(text string) {
	if err := a.store.Add(memory.RoleModel, text); err != nil {
		a.log.Warn("Failed to store model turn", "err", err)
	}
}

func (a *Assistant) logEngineError(err error) {
	var se *engine.ServiceError
	switch {
	case errors.As(err, &se):
		a.log.Error("Engine call failed", "provider", se.Provider, "err", se.Err)
	case errors.Is(err, engine.ErrBlocked):
		a.log.Warn("Engine refused to answer", "err", err)
	default:
		a.log.Error("Engine call failed", "err", err)
	}
}
