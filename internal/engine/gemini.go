package engine

import (
	"context"
	"fmt"
	"iter"
	log "log/slog"

	"google.golang.org/genai"

	"jarvis/internal/memory"
	"jarvis/internal/prompt"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type Gemini struct {
	client *genai.Client
	model  string
	log    *log.Logger
}

func NewGemini(ctx context.Context, o Options) (*Gemini, error) {
	model := o.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     o.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.HTTPClient,
	}
	if o.BaseURL != "" {
		cc.HTTPOptions.BaseURL = o.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model, log: o.logger()}, nil
}

func (g *Gemini) Generate(ctx context.Context, p prompt.Payload) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(p.Turns), geminiConfig(p))
	if err != nil {
		return "", &ServiceError{Provider: "gemini", Err: err}
	}

	text, err := geminiText(resp)
	if err != nil {
		return "", err
	}
	g.log.Debug("Generated", "model", g.model, "chars", len(text))
	return text, nil
}

func (g *Gemini) GenerateStream(ctx context.Context, p prompt.Payload) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, geminiContents(p.Turns), geminiConfig(p)) {
			if err != nil {
				yield("", &ServiceError{Provider: "gemini", Err: err})
				return
			}
			if err := geminiBlocked(resp); err != nil {
				if !yield("", err) {
					return
				}
				continue
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

func geminiContents(turns []memory.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		parts := make([]*genai.Part, 0, len(t.Parts))
		for _, s := range t.Parts {
			parts = append(parts, genai.NewPartFromText(s))
		}
		out = append(out, &genai.Content{Role: string(t.Role), Parts: parts})
	}
	return out
}

func geminiConfig(p prompt.Payload) *genai.GenerateContentConfig {
	if p.System == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	}
}

func geminiBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return ErrBlocked
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return fmt.Errorf("%w: prompt %s", ErrBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil
	}

	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII,
		genai.FinishReasonRecitation:
		return fmt.Errorf("%w: %s", ErrBlocked, reason)
	}
	return nil
}

// geminiText extracts the reply text; a reply without text counts as blocked.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if err := geminiBlocked(resp); err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", ErrBlocked
	}
	return text, nil
}
