package assistant

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/engine"
	"jarvis/internal/memory"
	"jarvis/internal/prompt"
)

type step struct {
	text string
	err  error
}

type stubEngine struct {
	text     string
	err      error
	chunks   []step
	calls    int
	payloads []prompt.Payload
}

func (e *stubEngine) Generate(_ context.Context, p prompt.Payload) (string, error) {
	e.calls++
	e.payloads = append(e.payloads, p)
	return e.text, e.err
}

func (e *stubEngine) GenerateStream(_ context.Context, p prompt.Payload) iter.Seq2[string, error] {
	e.calls++
	e.payloads = append(e.payloads, p)
	return func(yield func(string, error) bool) {
		for _, c := range e.chunks {
			if !yield(c.text, c.err) {
				return
			}
			var se *engine.ServiceError
			if errors.As(c.err, &se) {
				return
			}
		}
	}
}

type fakeActions struct {
	calls []string
}

func (f *fakeActions) PlayMusic(context.Context) string {
	f.calls = append(f.calls, "music")
	return "Now playing: song.mp3"
}

func (f *fakeActions) OpenWebsite(_ context.Context, url, name string) string {
	f.calls = append(f.calls, "site "+url)
	return "Opening " + name + "..."
}

func (f *fakeActions) SearchReference(_ context.Context, q string) string {
	f.calls = append(f.calls, "ref "+q)
	return "summary of " + q
}

func (f *fakeActions) OpenApplication(_ context.Context, name string) string {
	f.calls = append(f.calls, "open "+name)
	return "Opening " + name + "..."
}

func (f *fakeActions) CloseApplication(_ context.Context, name string) string {
	f.calls = append(f.calls, "close "+name)
	return "Closing " + name + "..."
}

func newAssistant(t *testing.T, eng *stubEngine) (*Assistant, *memory.Store, *fakeActions) {
	t.Helper()
	store := memory.Open(memory.NewFileBackend(filepath.Join(t.TempDir(), "history.json")))
	actions := &fakeActions{}
	a, err := New(store, prompt.NewBuilder(nil), eng, actions,
		WithClock(func() time.Time { return time.Date(2024, 1, 2, 9, 8, 7, 0, time.Local) }))
	require.NoError(t, err)
	return a, store, actions
}

func collect(seq iter.Seq[string]) []string {
	var out []string
	for s := range seq {
		out = append(out, s)
	}
	return out
}

func TestRespond_TimeCommand(t *testing.T) {
	eng := &stubEngine{}
	a, store, _ := newAssistant(t, eng)

	out := a.Respond(context.Background(), "What time is it", prompt.Default)
	assert.Regexp(t, regexp.MustCompile(`^Sir, the time is \d{2}:\d{2}:\d{2}$`), out)
	assert.Equal(t, "Sir, the time is 09:08:07", out)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, eng.calls)
}

func TestRespond_CommandsLeaveHistoryUntouched(t *testing.T) {
	cases := []struct {
		in   string
		want string
		call string
	}{
		{"please PLAY MUSIC", "Now playing: song.mp3", "music"},
		{"open youtube", "Opening YouTube...", "site https://www.youtube.com/"},
		{"open youtube lo-fi beats", "Opening YouTube for lo-fi beats...", "site https://www.youtube.com/results?search_query=lo-fi+beats"},
		{"open github", "Opening GitHub...", "site https://github.com/"},
		{"open my calendar", "Opening Calendar...", "open Calendar"},
		{"close calculator", "Closing Calculator...", "close Calculator"},
		{"search wikipedia for alan turing", "summary of alan turing", "ref alan turing"},
		{"wikipedia", "Please tell me what you want to search on Wikipedia.", ""},
		{"what is your name", "My name is Jarvis, your personal assistant. How can I help you today?", ""},
		{"thank you", "It's my pleasure, sir. Always happy to help.", ""},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			eng := &stubEngine{}
			a, store, actions := newAssistant(t, eng)
			require.NoError(t, store.Add(memory.RoleUser, "earlier"))

			assert.Equal(t, tc.want, a.Respond(context.Background(), tc.in, prompt.Default))
			assert.Equal(t, 1, store.Len())
			assert.Equal(t, 0, eng.calls)
			if tc.call != "" {
				assert.Equal(t, []string{tc.call}, actions.calls)
			} else {
				assert.Empty(t, actions.calls)
			}
		})
	}
}

func TestRespond_FallsThroughToEngine(t *testing.T) {
	eng := &stubEngine{text: "Why did..."}
	a, store, _ := newAssistant(t, eng)

	out := a.Respond(context.Background(), "Tell me a joke", prompt.Tutor)
	assert.Equal(t, "Why did...", out)

	assert.Equal(t, []memory.Turn{
		memory.NewTurn(memory.RoleUser, "Tell me a joke"),
		memory.NewTurn(memory.RoleModel, "Why did..."),
	}, store.History())

	require.Len(t, eng.payloads, 1)
	p := eng.payloads[0]
	assert.Equal(t, []memory.Turn{memory.NewTurn(memory.RoleUser, "Tell me a joke")}, p.Turns)
	assert.Contains(t, p.System, "patient tutor")
}

func TestRespond_ReplaysFullHistory(t *testing.T) {
	eng := &stubEngine{text: "ok"}
	a, _, _ := newAssistant(t, eng)

	a.Respond(context.Background(), "first question", prompt.Default)
	a.Respond(context.Background(), "second question", prompt.Default)

	require.Len(t, eng.payloads, 2)
	assert.Len(t, eng.payloads[1].Turns, 3)
	assert.Equal(t, "second question", eng.payloads[1].Turns[2].Text())
}

func TestRespond_EngineFailuresStoreApology(t *testing.T) {
	cases := map[string]error{
		"blocked": engine.ErrBlocked,
		"service": &engine.ServiceError{Provider: "gemini", Err: errors.New("quota")},
		"other":   errors.New("boom"),
	}

	for name, failure := range cases {
		t.Run(name, func(t *testing.T) {
			eng := &stubEngine{err: failure}
			a, store, _ := newAssistant(t, eng)

			out := a.Respond(context.Background(), "tell me a joke", prompt.Default)
			assert.Equal(t, Apology, out)

			h := store.History()
			require.Len(t, h, 2)
			assert.Equal(t, memory.NewTurn(memory.RoleModel, Apology), h[1])
		})
	}
}

func TestRespond_EmptyEngineTextIsDropped(t *testing.T) {
	eng := &stubEngine{text: ""}
	a, store, _ := newAssistant(t, eng)

	assert.Equal(t, Apology, a.Respond(context.Background(), "tell me a joke", prompt.Default))
	assert.Equal(t, 1, store.Len())
}

func TestRespond_BlankUtteranceIgnored(t *testing.T) {
	eng := &stubEngine{text: "x"}
	a, store, _ := newAssistant(t, eng)

	assert.Equal(t, "", a.Respond(context.Background(), "   ", prompt.Default))
	assert.Empty(t, collect(a.RespondStream(context.Background(), "", prompt.Default)))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, eng.calls)
}

func TestRespondStream_ForwardsAndCommitsOnce(t *testing.T) {
	eng := &stubEngine{chunks: []step{{text: "Why "}, {text: "did "}, {text: "..."}}}
	a, store, _ := newAssistant(t, eng)

	var seen []string
	for chunk := range a.RespondStream(context.Background(), "tell me a joke", prompt.Default) {
		seen = append(seen, chunk)
		assert.Equal(t, 1, store.Len(), "model turn must not be stored per chunk")
	}

	assert.Equal(t, []string{"Why ", "did ", "..."}, seen)
	assert.Equal(t, []memory.Turn{
		memory.NewTurn(memory.RoleUser, "tell me a joke"),
		memory.NewTurn(memory.RoleModel, "Why did ..."),
	}, store.History())
}

func TestRespondStream_MatchesRespond(t *testing.T) {
	pieces := []string{"Why did ", "the gopher ", "cross the road?"}
	full := strings.Join(pieces, "")

	var steps []step
	for _, p := range pieces {
		steps = append(steps, step{text: p})
	}

	blocking, _, _ := newAssistant(t, &stubEngine{text: full})
	streaming, _, _ := newAssistant(t, &stubEngine{chunks: steps})

	want := blocking.Respond(context.Background(), "tell me a joke", prompt.Default)
	got := strings.Join(collect(streaming.RespondStream(context.Background(), "tell me a joke", prompt.Default)), "")
	assert.Equal(t, want, got)

	assert.Equal(t, blocking.History(), streaming.History())
}

func TestRespondStream_SkipsBlockedChunks(t *testing.T) {
	eng := &stubEngine{chunks: []step{{text: "Hello"}, {err: engine.ErrBlocked}, {text: " world"}}}
	a, store, _ := newAssistant(t, eng)

	assert.Equal(t, []string{"Hello", " world"}, collect(a.RespondStream(context.Background(), "hi", prompt.Default)))
	assert.Equal(t, "Hello world", store.History()[1].Text())
}

func TestRespondStream_AllBlocked(t *testing.T) {
	eng := &stubEngine{chunks: []step{{err: engine.ErrBlocked}}}
	a, store, _ := newAssistant(t, eng)

	assert.Equal(t, []string{Apology}, collect(a.RespondStream(context.Background(), "hi", prompt.Default)))
	h := store.History()
	require.Len(t, h, 2)
	assert.Equal(t, Apology, h[1].Text())
}

func TestRespondStream_ServiceErrorMidStream(t *testing.T) {
	eng := &stubEngine{chunks: []step{
		{text: "Partial"},
		{err: &engine.ServiceError{Provider: "openai", Err: errors.New("reset")}},
		{text: "never"},
	}}
	a, store, _ := newAssistant(t, eng)

	chunks := collect(a.RespondStream(context.Background(), "hi", prompt.Default))
	assert.Equal(t, []string{"Partial", Apology}, chunks)
	assert.Equal(t, "Partial"+Apology, store.History()[1].Text())
}

func TestRespondStream_EmptyStreamIsDropped(t *testing.T) {
	eng := &stubEngine{}
	a, store, _ := newAssistant(t, eng)

	assert.Equal(t, []string{Apology}, collect(a.RespondStream(context.Background(), "hi", prompt.Default)))
	assert.Equal(t, 1, store.Len())
}

func TestRespondStream_EarlyStopStillCommits(t *testing.T) {
	eng := &stubEngine{chunks: []step{{text: "one "}, {text: "two "}, {text: "three"}}}
	a, store, _ := newAssistant(t, eng)

	for range a.RespondStream(context.Background(), "count", prompt.Default) {
		break
	}

	h := store.History()
	require.Len(t, h, 2)
	assert.Equal(t, "one two three", h[1].Text())
}

func TestRespondStream_NotRestartable(t *testing.T) {
	eng := &stubEngine{chunks: []step{{text: "once"}}}
	a, store, _ := newAssistant(t, eng)

	seq := a.RespondStream(context.Background(), "hi", prompt.Default)
	assert.Equal(t, []string{"once"}, collect(seq))
	assert.Empty(t, collect(seq))
	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, 2, store.Len())
}

func TestRespondStream_Command(t *testing.T) {
	eng := &stubEngine{}
	a, store, _ := newAssistant(t, eng)

	assert.Equal(t, []string{"Sir, the time is 09:08:07"}, collect(a.RespondStream(context.Background(), "time please", prompt.Default)))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, eng.calls)
}

func TestClearAndExport(t *testing.T) {
	eng := &stubEngine{text: "answer"}
	a, _, _ := newAssistant(t, eng)

	a.Respond(context.Background(), "question", prompt.Default)

	data, err := a.Export()
	require.NoError(t, err)
	turns, err := memory.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, a.History(), turns)

	require.NoError(t, a.Clear())
	assert.Empty(t, a.History())

	data, err = a.Export()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	store := memory.Open(memory.NewFileBackend(filepath.Join(t.TempDir(), "h.json")))
	_, err := New(store, prompt.NewBuilder(nil), &stubEngine{}, &fakeActions{},
		WithRules([]Rule{{Name: "empty", Phrases: []string{""}, Handle: reply("x")}}))
	assert.Error(t, err)
}
