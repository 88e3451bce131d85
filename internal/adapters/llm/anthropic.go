package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"cofind/internal/domain"
)

type Anthropic struct {
	client anthropic.Client
	model  string
}

func NewAnthropic(apiKey, model, baseURL string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{client: anthropic.NewClient(opts...), model: model}
}

func (a *Anthropic) Generate(ctx context.Context, req domain.CompletionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	// The Messages API rejects temperature and top_p together; a requested
	// nucleus cutoff replaces the temperature.
	if req.TopP > 0 && req.TopP < 1 {
		params.TopP = anthropic.Float(req.TopP)
	} else {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		status, kind := classifyAnthropic(err)
		observe(ProviderAnthropic, status, start)
		log.Warn().Err(err).Int("status", status).Str("model", a.model).Msg("anthropic completion failed")
		return "", wrap(ProviderAnthropic, kind, err)
	}
	observe(ProviderAnthropic, http.StatusOK, start)
	log.Debug().
		Int64("tokens_in", msg.Usage.InputTokens).
		Int64("tokens_out", msg.Usage.OutputTokens).
		Str("stop_reason", string(msg.StopReason)).
		Msg("anthropic completion")

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", wrap(ProviderAnthropic, domain.ErrLLM, errEmptyCompletion)
	}
	return b.String(), nil
}

func classifyAnthropic(err error) (int, error) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apiErr.StatusCode, domain.ErrUnauthorized
		case http.StatusPaymentRequired:
			return apiErr.StatusCode, domain.ErrQuotaExceeded
		case http.StatusTooManyRequests:
			return apiErr.StatusCode, domain.ErrRateLimited
		}
		return apiErr.StatusCode, domain.ErrLLM
	}
	return 0, domain.ClassifyLLMError(err)
}
