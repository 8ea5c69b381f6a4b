// Package agent is the gateway to the external conversational agent. The
// agent is a black box: one request carrying the user utterance and a
// per-turn configuration goes in, one complete response comes out.
package agent

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	DefaultThreadID = "thread-1"
)

// Message is a wire message. Content is usually a string but agents may
// return structured content, so it is kept untyped.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type Request struct {
	Messages []Message `json:"messages"`
}

// UserRequest builds the request sent on every turn.
func UserRequest(text string) Request {
	return Request{Messages: []Message{{Role: RoleUser, Content: text}}}
}

// UserText returns the concatenated text of the user messages in r.
func (r Request) UserText() string {
	parts := make([]string, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == RoleUser {
			parts = append(parts, ContentText(msg.Content))
		}
	}
	return strings.Join(parts, "\n")
}

type Configurable struct {
	ThreadID    string  `json:"thread_id"`
	Temperature float64 `json:"temperature"`
}

type Config struct {
	Configurable Configurable `json:"configurable"`
}

func NewConfig(threadID string, temperature float64) Config {
	return Config{Configurable: Configurable{ThreadID: threadID, Temperature: temperature}}
}

type Response struct {
	Messages []Message `json:"messages"`
}

// TextResponse wraps a plain assistant reply.
func TextResponse(text string) Response {
	return Response{Messages: []Message{{Role: RoleAssistant, Content: text}}}
}

// LastText returns the content of the last message as text. A response with
// no messages or with null content yields "".
func (r Response) LastText() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return ContentText(r.Messages[len(r.Messages)-1].Content)
}

// ContentText flattens message content into text. Strings are returned as
// is, a list of content parts is reduced to its text parts, and anything
// else is rendered as JSON.
func ContentText(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		texts := make([]string, 0, len(v))
		allText := true
		for _, part := range v {
			switch p := part.(type) {
			case string:
				texts = append(texts, p)
			case map[string]any:
				text, ok := p["text"].(string)
				if !ok {
					allText = false
					continue
				}
				texts = append(texts, text)
			default:
				allText = false
			}
		}
		if allText || len(texts) > 0 {
			return strings.Join(texts, "")
		}
	}
	buf, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	return string(buf)
}

// Gateway invokes the agent once per turn. Errors are returned unchanged to
// the caller; gateways never retry.
type Gateway interface {
	Invoke(ctx context.Context, req Request, cfg Config) (Response, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req Request, cfg Config) (Response, error)

func (f GatewayFunc) Invoke(ctx context.Context, req Request, cfg Config) (Response, error) {
	return f(ctx, req, cfg)
}
