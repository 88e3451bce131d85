package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"cofind/internal/domain"
)

// LangChain drives any langchaingo chat model. OpenAI-compatible endpoints
// are the configured case.
type LangChain struct {
	model   llms.Model
	service string
}

func NewLangChain(model llms.Model, service string) *LangChain {
	return &LangChain{model: model, service: service}
}

func NewOpenAI(apiKey, model, baseURL string) (*LangChain, error) {
	if model == "" {
		model = defaultOpenAIModel
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: openai client: %w", err)
	}
	return NewLangChain(m, ProviderOpenAI), nil
}

func (l *LangChain) Generate(ctx context.Context, req domain.CompletionRequest) (string, error) {
	var msgs []llms.MessageContent
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}

	start := time.Now()
	resp, err := l.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		kind := domain.ClassifyLLMError(err)
		observe(l.service, statusOf(kind), start)
		log.Warn().Err(err).Str("service", l.service).Msg("completion failed")
		return "", wrap(l.service, kind, err)
	}
	observe(l.service, http.StatusOK, start)

	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", wrap(l.service, domain.ErrLLM, errEmptyCompletion)
	}
	return resp.Choices[0].Content, nil
}

// statusOf recovers a status label for metrics; langchaingo does not expose
// the HTTP status on its errors.
func statusOf(kind error) int {
	switch kind {
	case domain.ErrQuotaExceeded:
		return http.StatusPaymentRequired
	case domain.ErrRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return 0
	}
}
