package mantra

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You write a single gentle affirmation for someone who just journaled.
Speak to them in the second person. Use at most 20 words. No quotes, no emoji.`

// OpenAI generates mantras with any OpenAI-compatible chat endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a generator. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAI {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: openai.NewClient(all...), model: model}
}

func (g *OpenAI) Generate(ctx context.Context, mood string, responses []string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(mood, responses)),
		},
		MaxTokens:   openai.Int(60),
		Temperature: openai.Float(0.8),
	})
	if err != nil {
		return "", fmt.Errorf("mantra: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmpty
	}
	text := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// Prompt renders the user message. Unanswered prompts are skipped.
func Prompt(mood string, responses []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mood: %s\n", strings.TrimSpace(mood))
	answered := 0
	for _, r := range responses {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if answered == 0 {
			b.WriteString("What they wrote:\n")
		}
		answered++
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}
