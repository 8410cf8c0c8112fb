package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

var (
	ErrInvalidRole  = errors.New("invalid role")
	ErrEmptyContent = errors.New("empty turn content")
	ErrModelFirst   = errors.New("history must start with a user turn")
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	*r = role
	return nil
}

// Turn is one role-tagged message of the conversation. Parts holds the text
// segments in order; the assistant always writes exactly one.
type Turn struct {
	Role  Role     `json:"role"`
	Parts []string `json:"parts"`
}

func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []string{text}}
}

// Text joins the parts of the turn.
func (t Turn) Text() string {
	return strings.Join(t.Parts, "")
}

func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, t.Role)
	}
	for _, p := range t.Parts {
		if p != "" {
			return nil
		}
	}
	return ErrEmptyContent
}

func (t Turn) clone() Turn {
	return Turn{Role: t.Role, Parts: append([]string(nil), t.Parts...)}
}

func cloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t.clone()
	}
	return out
}

// Encode renders turns the way they are persisted: a pretty-printed JSON
// array, "[]" when empty.
func Encode(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	return json.MarshalIndent(turns, "", "    ")
}

// Decode parses a persisted history and validates every turn. A non-empty
// history must open with a user turn.
func Decode(data []byte) ([]Turn, error) {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	for i, t := range turns {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
	}
	if len(turns) > 0 && turns[0].Role != RoleUser {
		return nil, ErrModelFirst
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}
