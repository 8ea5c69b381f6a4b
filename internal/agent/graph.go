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

// GraphGateway posts the turn to a remote agent graph that keeps its own
// thread state. The body is {"input": Request, "config": Config} and the
// reply is decoded as a Response.
type GraphGateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewGraphGateway(opts Options) *GraphGateway {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &GraphGateway{
		endpoint: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/") + "/invoke",
		apiKey:   opts.APIKey,
		client:   client,
	}
}

type graphInvocation struct {
	Input  Request `json:"input"`
	Config Config  `json:"config"`
}

func (g *GraphGateway) Invoke(ctx context.Context, req Request, cfg Config) (Response, error) {
	body, err := json.Marshal(graphInvocation{Input: req, Config: cfg})
	if err != nil {
		return Response{}, errors.Wrap(err, "encode graph request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, errors.Wrap(err, "build graph request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, errors.Wrap(err, "graph invoke failed")
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, errors.Wrap(err, "read graph response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("graph http %d: %s", resp.StatusCode, compactSingleLine(string(payload), 240))
	}

	var out Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return Response{}, errors.Wrap(err, "decode graph response")
	}
	return out, nil
}

func compactSingleLine(text string, limit int) string {
	compact := []rune(strings.Join(strings.Fields(text), " "))
	if limit <= 0 || len(compact) <= limit {
		return string(compact)
	}
	if limit <= 3 {
		return string(compact[:limit])
	}
	return string(compact[:limit-3]) + "..."
}
