package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/metrics"
)

// maxStopSequences is the upstream limit on stop sequences per request.
// Extra sequences are applied client-side.
const maxStopSequences = 4

// ChatConfig holds the chat model settings.
type ChatConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
}

// Chat implements domain.ChatModel over chat completions.
type Chat struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewChat creates a chat model client. A non-positive RequestsPerSecond disables rate limiting.
func NewChat(cfg *ChatConfig) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Chat{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: limiter,
		logger:  log,
	}
}

// Chat sends one completion request and returns the first choice's content.
func (c *Chat) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "rate_limited").Inc()
		return "", fmt.Errorf("chat limiter: %v: %w", err, domain.ErrRateLimited)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	creq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if len(req.Stop) > 0 {
		creq.Stop = req.Stop[:min(len(req.Stop), maxStopSequences)]
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", parseAPIError(err, domain.ErrChatProviderError)
	}
	metrics.ChatRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.model, "empty").Inc()
		return "", fmt.Errorf("empty chat response: %w", domain.ErrChatProviderError)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ChatTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ChatTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	content := cutAtStop(resp.Choices[0].Message.Content, req.Stop)
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)))
	return content, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Chat) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func toMessages(msgs []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// cutAtStop truncates s at the earliest stop sequence.
func cutAtStop(s string, stop []string) string {
	cut := len(s)
	for _, st := range stop {
		if st == "" {
			continue
		}
		if i := strings.Index(s, st); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}
