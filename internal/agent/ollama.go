package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// OllamaGateway calls the native Ollama /api/chat endpoint without streaming.
type OllamaGateway struct {
	baseURL      string
	model        string
	systemPrompt string
	client       *http.Client
	memory       *ThreadMemory
}

func NewOllamaGateway(opts Options) *OllamaGateway {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaGateway{
		baseURL:      strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		client:       client,
		memory:       NewThreadMemory(opts.HistoryLimit),
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
	Options  map[string]any  `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

func (g *OllamaGateway) Invoke(ctx context.Context, req Request, cfg Config) (Response, error) {
	threadID := cfg.Configurable.ThreadID
	messages := make([]ollamaMessage, 0, len(req.Messages)+8)
	if g.systemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: RoleSystem, Content: g.systemPrompt})
	}
	for _, msg := range g.memory.History(threadID) {
		messages = append(messages, ollamaMessage{Role: msg.Role, Content: ContentText(msg.Content)})
	}
	for _, msg := range req.Messages {
		messages = append(messages, ollamaMessage{Role: msg.Role, Content: ContentText(msg.Content)})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    g.model,
		Stream:   false,
		Messages: messages,
		Options:  map[string]any{"temperature": cfg.Configurable.Temperature},
	})
	if err != nil {
		return Response{}, errors.Wrap(err, "encode ollama request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, errors.Wrap(err, "build ollama request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, errors.Wrap(err, "ollama request failed on /api/chat")
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, errors.Wrap(err, "read ollama response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("ollama http %d: %s", resp.StatusCode, compactSingleLine(string(payload), 240))
	}
	var parsed ollamaChatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Response{}, errors.New("ollama returned non-json payload")
	}

	reply := parsed.Message.Content
	g.memory.Append(threadID, req.Messages...)
	g.memory.Append(threadID, Message{Role: RoleAssistant, Content: reply})
	return TextResponse(reply), nil
}
