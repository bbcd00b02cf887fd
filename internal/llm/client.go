// Package llm implements the shared LLM client: one go-openai client per
// API key and a cache of Handles keyed by (model, temperature), so every
// specialist agent reuses one handle per configuration instead of
// constructing a new client per call, plus a Complete operation wrapping openai.CreateChatCompletion
// with layered API-key resolution and retry on transient failure.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/retry"
)

// Usage mirrors the token accounting go-openai returns, surfaced so
// monitoring can record LLM cost without importing the SDK directly.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the result of a Complete call.
type Response struct {
	Content string
	Model   string
	Usage   Usage
	Latency time.Duration
}

// Message is one chat turn.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Config configures the Client cache.
type Config struct {
	// APIKey is the default key used when neither a call-site nor
	// context-supplied key is given (priority: call-site > context >
	// default).
	APIKey string
	Retry  retry.Policy
	Log    zerolog.Logger
}

type apiKeyCtxKey struct{}

// WithAPIKey attaches a request-scoped API key override to ctx, the
// middle tier of the three-tier key resolution.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyCtxKey{}, key)
}

func apiKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyCtxKey{}).(string)
	return key, ok && key != ""
}

// Client owns one go-openai client per resolved API key and hands out
// Handles cached by (model, temperature). Agents ask for a Handle once
// per configuration and reuse it across every call they make; the handle
// cache is unbounded since its cardinality is tiny.
type Client struct {
	cfg Config

	mu      sync.Mutex
	clients map[string]*openai.Client
	handles map[string]*Handle
}

// New constructs a Client.
func New(cfg Config) *Client {
	if cfg.Retry.MaxAttempts == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = retry.Default()
	}
	return &Client{
		cfg:     cfg,
		clients: make(map[string]*openai.Client),
		handles: make(map[string]*Handle),
	}
}

// Completer is the capability a Handle provides. Agents depend on this
// interface rather than the concrete Handle type so tests can substitute
// a fake completion without a network double.
type Completer interface {
	Complete(ctx context.Context, messages []Message, apiKeyOverride string) (Response, error)
}

// Handle binds a model and temperature to the shared Client, so agents
// reuse one handle across every call at that configuration instead of
// passing model/temperature on every request.
type Handle struct {
	client      *Client
	model       string
	temperature float32
}

// Handle returns the cached Handle for (model, temperature), creating one
// on first use.
func (c *Client) Handle(model string, temperature float32) *Handle {
	key := handleKey(model, temperature)

	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[key]; ok {
		return h
	}
	h := &Handle{client: c, model: model, temperature: temperature}
	c.handles[key] = h
	return h
}

func handleKey(model string, temperature float32) string {
	return fmt.Sprintf("%s@%.2f", model, temperature)
}

// Complete runs a chat completion on this handle's (model, temperature).
func (h *Handle) Complete(ctx context.Context, messages []Message, apiKeyOverride string) (Response, error) {
	return h.client.Complete(ctx, CompleteRequest{
		Model:       h.model,
		Temperature: h.temperature,
		Messages:    messages,
		APIKey:      apiKeyOverride,
	})
}

// resolveAPIKey resolves in priority order: call-site override >
// context variable > default configured key.
func (c *Client) resolveAPIKey(ctx context.Context, callSiteKey string) (string, error) {
	if callSiteKey != "" {
		return callSiteKey, nil
	}
	if key, ok := apiKeyFromContext(ctx); ok {
		return key, nil
	}
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}
	return "", domain.NewError(domain.KindToolMisconfigured, "llm_client", "no API key configured", nil)
}

func (c *Client) clientFor(apiKey string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[apiKey]; ok {
		return cl
	}
	cl := openai.NewClient(apiKey)
	c.clients[apiKey] = cl
	return cl
}

// CompleteRequest is one chat-completion call.
type CompleteRequest struct {
	Model       string
	Temperature float32
	Messages    []Message
	MaxTokens   int
	APIKey      string // call-site override, highest priority
}

// Complete runs a chat completion, retrying transient upstream failures
// with exponential backoff (internal/retry).
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (Response, error) {
	apiKey, err := c.resolveAPIKey(ctx, req.APIKey)
	if err != nil {
		return Response{}, err
	}
	client := c.clientFor(apiKey)

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	orReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Messages:    messages,
	}
	if req.MaxTokens > 0 {
		orReq.MaxTokens = req.MaxTokens
	}

	shouldRetry := func(err error) bool { return domain.KindOf(err) == domain.KindUpstreamUnavailable }
	resp, err := retry.Do(ctx, c.cfg.Retry, shouldRetry, func(ctx context.Context) (Response, error) {
		start := time.Now()
		out, err := client.CreateChatCompletion(ctx, orReq)
		latency := time.Since(start)
		if err != nil {
			c.cfg.Log.Debug().Err(err).Str("model", req.Model).Dur("latency", latency).Msg("llm completion failed")
			return Response{}, domain.NewError(domain.KindUpstreamUnavailable, "llm_complete", "openai API error", err)
		}
		if len(out.Choices) == 0 {
			return Response{}, domain.NewError(domain.KindInternalInvariantBreach, "llm_complete", "openai returned no choices", nil)
		}
		return Response{
			Content: out.Choices[0].Message.Content,
			Model:   out.Model,
			Usage: Usage{
				PromptTokens:     out.Usage.PromptTokens,
				CompletionTokens: out.Usage.CompletionTokens,
				TotalTokens:      out.Usage.TotalTokens,
			},
			Latency: latency,
		}, nil
	})
	if err != nil {
		return Response{}, err
	}
	c.cfg.Log.Debug().Str("model", req.Model).Int("tokens", resp.Usage.TotalTokens).Dur("latency", resp.Latency).Msg("llm completion")
	return resp, nil
}
