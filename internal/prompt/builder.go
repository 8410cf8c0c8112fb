// Package prompt turns the conversation history and a persona into the
// payload sent to the generation engine.
package prompt

import (
	"strings"

	"jarvis/internal/memory"
)

// Payload is what an engine receives: the system instruction travels on the
// provider's system channel, Turns is replayed as the conversation.
type Payload struct {
	System string
	Turns  []memory.Turn
}

type Builder struct {
	catalog *Catalog
}

func NewBuilder(c *Catalog) *Builder {
	if c == nil {
		c = NewCatalog()
	}
	return &Builder{catalog: c}
}

func (b *Builder) SystemInstruction(p Persona) string {
	return strings.TrimSpace(b.catalog.Base + " " + b.catalog.Instruction(p))
}

// Build is pure: it copies history and performs no I/O.
func (b *Builder) Build(history []memory.Turn, p Persona) Payload {
	turns := make([]memory.Turn, len(history))
	for i, t := range history {
		turns[i] = memory.Turn{Role: t.Role, Parts: append([]string(nil), t.Parts...)}
	}
	return Payload{
		System: b.SystemInstruction(p),
		Turns:  turns,
	}
}
