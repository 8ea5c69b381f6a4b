package agent

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// OpenAIGateway talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGateway struct {
	client       *openai.Client
	model        string
	systemPrompt string
	memory       *ThreadMemory
}

func NewOpenAIGateway(opts Options) *OpenAIGateway {
	clientCfg := openai.DefaultConfig(opts.APIKey)
	if strings.TrimSpace(opts.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		clientCfg.HTTPClient = opts.HTTPClient
	}
	return &OpenAIGateway{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		memory:       NewThreadMemory(opts.HistoryLimit),
	}
}

func (g *OpenAIGateway) Invoke(ctx context.Context, req Request, cfg Config) (Response, error) {
	threadID := cfg.Configurable.ThreadID
	history := g.memory.History(threadID)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+len(req.Messages)+1)
	if g.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.systemPrompt,
		})
	}
	for _, msg := range history {
		messages = append(messages, toOpenAIMessage(msg))
	}
	for _, msg := range req.Messages {
		messages = append(messages, toOpenAIMessage(msg))
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: wireTemperature(cfg.Configurable.Temperature),
	})
	if err != nil {
		return Response{}, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		log.Warn().Str("thread_id", threadID).Str("model", g.model).Msg("openai returned no choices")
		return Response{}, nil
	}

	reply := resp.Choices[0].Message.Content
	g.memory.Append(threadID, req.Messages...)
	g.memory.Append(threadID, Message{Role: RoleAssistant, Content: reply})
	return TextResponse(reply), nil
}

func toOpenAIMessage(msg Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	switch msg.Role {
	case RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case RoleSystem:
		role = openai.ChatMessageRoleSystem
	}
	return openai.ChatCompletionMessage{Role: role, Content: ContentText(msg.Content)}
}

// wireTemperature maps 0 to the smallest positive float32 because the client
// drops a zero temperature from the request body.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
