package engine

import (
	"context"
	"fmt"
	"iter"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"jarvis/internal/memory"
	"jarvis/internal/prompt"
)

const DefaultOpenAIModel = openai.ChatModelGPT5Nano

type OpenAI struct {
	client openai.Client
	model  string
	log    *log.Logger
}

func NewOpenAI(o Options) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(o.APIKey)}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}

	model := o.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		log:    o.logger(),
	}
}

func (o *OpenAI) Generate(ctx context.Context, p prompt.Payload) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(p))
	if err != nil {
		return "", &ServiceError{Provider: "openai", Err: fmt.Errorf("chat completion: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrBlocked)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" || choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, choice.FinishReason)
	}
	if choice.Message.Content == "" {
		return "", fmt.Errorf("%w: empty message content", ErrBlocked)
	}

	o.log.Debug("Generated", "model", o.model, "chars", len(choice.Message.Content))
	return choice.Message.Content, nil
}

func (o *OpenAI) GenerateStream(ctx context.Context, p prompt.Payload) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(p))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if choice.Delta.Refusal != "" || choice.FinishReason == "content_filter" {
				if !yield("", fmt.Errorf("%w: %s", ErrBlocked, choice.FinishReason)) {
					return
				}
				continue
			}
			if choice.Delta.Content == "" {
				continue
			}
			if !yield(choice.Delta.Content, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield("", &ServiceError{Provider: "openai", Err: fmt.Errorf("chat stream: %w", err)})
		}
	}
}

func (o *OpenAI) params(p prompt.Payload) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.Turns)+1)
	if p.System != "" {
		msgs = append(msgs, openai.SystemMessage(p.System))
	}
	for _, t := range p.Turns {
		switch t.Role {
		case memory.RoleModel:
			msgs = append(msgs, openai.AssistantMessage(t.Text()))
		default:
			msgs = append(msgs, openai.UserMessage(t.Text()))
		}
	}

	return openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    o.model,
	}
}
