package prompt

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type Persona string

const (
	Default Persona = "Default"
	Tutor   Persona = "Tutor"
	Coder   Persona = "Coding assistant"
	Career  Persona = "Career helper"
)

const BaseInstruction = "Your name is Jarvis, a personal assistant created by Anwar, a Data Science Learner. Answer the user's question."

var builtin = map[Persona]string{
	Default: "",
	Tutor:   "You are a helpful and patient tutor. Explain concepts clearly with examples.",
	Coder:   "You are an expert coding assistant. Provide clean, efficient, and well-commented code. Explain your reasoning.",
	Career:  "You are a knowledgeable career helper. Offer advice on resumes, interviews, and career development.",
}

// Catalog maps personas to their instruction strings.
type Catalog struct {
	Base         string
	instructions map[Persona]string
}

func NewCatalog() *Catalog {
	c := &Catalog{
		Base:         BaseInstruction,
		instructions: make(map[Persona]string, len(builtin)),
	}
	for p, s := range builtin {
		c.instructions[p] = s
	}
	return c
}

type catalogFile struct {
	Base     string            `yaml:"base"`
	Personas map[string]string `yaml:"personas"`
}

// LoadCatalog reads persona overrides from a YAML file on top of the
// built-in set:
//
//	base: "Your name is Jarvis..."
//	personas:
//	  Chef: "You are a chef."
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse personas %s: %w", path, err)
	}

	if strings.TrimSpace(f.Base) != "" {
		c.Base = strings.TrimSpace(f.Base)
	}
	for name, instr := range f.Personas {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.instructions[Persona(name)] = strings.TrimSpace(instr)
	}
	return c, nil
}

// Instruction returns the persona's instruction, empty for unknown personas.
func (c *Catalog) Instruction(p Persona) string {
	return c.instructions[p]
}

func (c *Catalog) Has(p Persona) bool {
	_, ok := c.instructions[p]
	return ok
}

// Personas lists the known personas, Default first, the rest sorted.
func (c *Catalog) Personas() []Persona {
	out := make([]Persona, 0, len(c.instructions))
	for p := range c.instructions {
		if p != Default {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return append([]Persona{Default}, out...)
}

// Lookup resolves a persona name case-insensitively.
func (c *Catalog) Lookup(name string) (Persona, bool) {
	name = strings.TrimSpace(name)
	for p := range c.instructions {
		if strings.EqualFold(string(p), name) {
			return p, true
		}
	}
	return "", false
}
