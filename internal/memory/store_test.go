package memory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	data     []byte
	failRead bool
	failNext bool
}

func (b *failingBackend) Read(context.Context) ([]byte, error) {
	if b.failRead {
		return nil, errors.New("disk on fire")
	}
	if b.data == nil {
		return nil, ErrNotFound
	}
	return b.data, nil
}

func (b *failingBackend) Write(_ context.Context, data []byte) error {
	if b.failNext {
		return errors.New("disk full")
	}
	b.data = append([]byte(nil), data...)
	return nil
}

func newFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history", "conversation_history.json")
	return Open(NewFileBackend(path)), path
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s, path := newFileStore(t)

	assert.Empty(t, s.History())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	cases := map[string]string{
		"malformed json": `[{"role": "user", "parts": [`,
		"unknown role":   `[{"role": "system", "parts": ["hi"]}]`,
		"empty parts":    `[{"role": "user", "parts": []}]`,
		"not an array":   `{"role": "user"}`,
		"model first":    `[{"role": "model", "parts": ["hi"]}, {"role": "user", "parts": ["x"]}]`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "h.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			s := Open(NewFileBackend(path))
			assert.Empty(t, s.History())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(data))
		})
	}
}

func TestOpen_LoadsExistingHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	content := `[
    {"role": "user", "parts": ["hello"]},
    {"role": "model", "parts": ["hi there"]}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := Open(NewFileBackend(path))
	assert.Equal(t, []Turn{
		NewTurn(RoleUser, "hello"),
		NewTurn(RoleModel, "hi there"),
	}, s.History())
}

func TestAdd_PersistsPrettyJSON(t *testing.T) {
	s, path := newFileStore(t)

	require.NoError(t, s.Add(RoleUser, "tell me a joke"))
	require.NoError(t, s.Add(RoleModel, "Why did..."))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `[
    {
        "role": "user",
        "parts": [
            "tell me a joke"
        ]
    },
    {
        "role": "model",
        "parts": [
            "Why did..."
        ]
    }
]`
	assert.Equal(t, want, string(data))

	reopened := Open(NewFileBackend(path))
	assert.Equal(t, s.History(), reopened.History())
}

func TestAdd_RejectsInvalidTurns(t *testing.T) {
	s, _ := newFileStore(t)

	assert.ErrorIs(t, s.Add(RoleUser, ""), ErrEmptyContent)
	assert.ErrorIs(t, s.Add(Role("system"), "hi"), ErrInvalidRole)
	assert.Equal(t, 0, s.Len())
}

func TestAdd_PersistFailureKeepsMemory(t *testing.T) {
	b := &failingBackend{}
	s := Open(b)
	b.failNext = true

	err := s.Add(RoleUser, "hello")
	require.ErrorIs(t, err, ErrStoreIO)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "[]", string(b.data))

	b.failNext = false
	require.NoError(t, s.Add(RoleModel, "hi"))

	turns, err := Decode(b.data)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestOpen_ReadFailureStartsEmpty(t *testing.T) {
	s := Open(&failingBackend{failRead: true})
	assert.Empty(t, s.History())
}

func TestHistory_IsSnapshot(t *testing.T) {
	s, _ := newFileStore(t)
	require.NoError(t, s.Add(RoleUser, "one"))

	first := s.History()
	first[0].Parts[0] = "mutated"
	first[0].Role = RoleModel

	second := s.History()
	assert.Equal(t, []Turn{NewTurn(RoleUser, "one")}, second)
	assert.Equal(t, second, s.History())

	require.NoError(t, s.Add(RoleModel, "two"))
	assert.Len(t, second, 1)
}

func TestClear(t *testing.T) {
	s, path := newFileStore(t)
	require.NoError(t, s.Add(RoleUser, "one"))
	require.NoError(t, s.Add(RoleModel, "two"))

	require.NoError(t, s.Clear())
	assert.Empty(t, s.History())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExport_MatchesPersistedBytes(t *testing.T) {
	s, path := newFileStore(t)
	require.NoError(t, s.Add(RoleUser, "one"))
	require.NoError(t, s.Add(RoleModel, "two"))

	exported, err := s.Export()
	require.NoError(t, err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, onDisk, exported)

	var parsed []Turn
	require.NoError(t, json.Unmarshal(exported, &parsed))
	assert.Equal(t, s.History(), parsed)
}

func TestExportFile(t *testing.T) {
	s, _ := newFileStore(t)
	require.NoError(t, s.Add(RoleUser, "one"))

	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)

	path, err := s.ExportFile(dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "conversation_export_20240309_070501.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	exported, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, exported, data)
}

func TestExport_ReadFailure(t *testing.T) {
	b := &failingBackend{}
	s := Open(b)
	b.failRead = true

	_, err := s.Export()
	assert.ErrorIs(t, err, ErrStoreIO)
}

func TestHistory_AllowsConsecutiveUserTurns(t *testing.T) {
	s, _ := newFileStore(t)
	require.NoError(t, s.Add(RoleUser, "first"))
	require.NoError(t, s.Add(RoleUser, "second"))

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, RoleUser, h[0].Role)
	assert.Equal(t, RoleUser, h[1].Role)
}

func TestDecode_RequiresUserFirst(t *testing.T) {
	_, err := Decode([]byte(`[{"role": "model", "parts": ["hi"]}]`))
	assert.ErrorIs(t, err, ErrModelFirst)

	turns, err := Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, turns)
}
