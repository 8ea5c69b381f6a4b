package agent

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
	BackendGraph  = "graph"
	BackendEcho   = "echo"
)

var Backends = []string{BackendOpenAI, BackendOllama, BackendGraph, BackendEcho}

type Options struct {
	Backend      string
	BaseURL      string
	Model        string
	APIKey       string
	SystemPrompt string
	// HistoryLimit bounds the per-thread memory of stateless backends.
	HistoryLimit int
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// New builds the gateway for opts.Backend. Every gateway is wrapped so that
// calls are bounded by opts.Timeout and logged.
func New(opts Options) (Gateway, error) {
	var gw Gateway
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendOpenAI:
		gw = NewOpenAIGateway(opts)
	case BackendOllama:
		gw = NewOllamaGateway(opts)
	case BackendGraph:
		if strings.TrimSpace(opts.BaseURL) == "" {
			return nil, errors.New("graph backend requires a base url")
		}
		gw = NewGraphGateway(opts)
	case BackendEcho:
		gw = EchoGateway{}
	default:
		return nil, errors.Errorf("unknown backend %q (want one of %s)", opts.Backend, strings.Join(Backends, ", "))
	}
	return WithLogging(WithTimeout(gw, opts.Timeout), opts.Backend), nil
}

// WithTimeout bounds every call by d. A non-positive d leaves gw unchanged.
func WithTimeout(gw Gateway, d time.Duration) Gateway {
	if d <= 0 {
		return gw
	}
	return GatewayFunc(func(ctx context.Context, req Request, cfg Config) (Response, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return gw.Invoke(ctx, req, cfg)
	})
}

func WithLogging(gw Gateway, backend string) Gateway {
	return GatewayFunc(func(ctx context.Context, req Request, cfg Config) (Response, error) {
		started := time.Now()
		resp, err := gw.Invoke(ctx, req, cfg)
		ev := log.Debug()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Str("backend", backend).
			Str("thread_id", cfg.Configurable.ThreadID).
			Float64("temperature", cfg.Configurable.Temperature).
			Dur("latency", time.Since(started)).
			Int("reply_chars", len(resp.LastText())).
			Msg("agent invoke")
		return resp, err
	})
}

// EchoGateway answers with the user text. It needs no network access.
type EchoGateway struct{}

func (EchoGateway) Invoke(_ context.Context, req Request, _ Config) (Response, error) {
	return TextResponse(req.UserText()), nil
}
