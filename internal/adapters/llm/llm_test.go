package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"cofind/internal/adapters/llm"
	"cofind/internal/domain"
)

func anthropicServer(t *testing.T, status int, body string, hits *int32, seen *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if seen != nil {
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

const okMessage = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
"content":[{"type":"text","text":"1. **Kopi Senja**"}],
"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":5}}`

func TestAnthropic_Generate(t *testing.T) {
	var hits int32
	var sent map[string]any
	ts := anthropicServer(t, http.StatusOK, okMessage, &hits, &sent)

	gen := llm.NewAnthropic("test-key", "claude-test", ts.URL)
	out, err := gen.Generate(context.Background(), domain.CompletionRequest{
		System: "sys", User: "halo", MaxTokens: 256, Temperature: 0, TopP: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "1. **Kopi Senja**", out)
	assert.EqualValues(t, 1, hits)

	assert.Equal(t, "claude-test", sent["model"])
	assert.EqualValues(t, 256, sent["max_tokens"])
	assert.EqualValues(t, 0.9, sent["top_p"])
	assert.NotContains(t, sent, "temperature")
	require.Len(t, sent["system"], 1)
}

func TestAnthropic_SendsOneSamplingParameter(t *testing.T) {
	cases := []struct {
		name      string
		req       domain.CompletionRequest
		wantKey   string
		wantValue float64
		absentKey string
	}{
		{"default temperature", domain.CompletionRequest{Temperature: 0.3}, "temperature", 0.3, "top_p"},
		{"top_p of one is no cutoff", domain.CompletionRequest{Temperature: 0.3, TopP: 1}, "temperature", 0.3, "top_p"},
		{"explicit top_p wins", domain.CompletionRequest{Temperature: 0.3, TopP: 0.9}, "top_p", 0.9, "temperature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			var sent map[string]any
			ts := anthropicServer(t, http.StatusOK, okMessage, &hits, &sent)

			tc.req.User, tc.req.MaxTokens = "wifi kencang", 1024
			_, err := llm.NewAnthropic("k", "", ts.URL).Generate(context.Background(), tc.req)
			require.NoError(t, err)
			assert.InDelta(t, tc.wantValue, sent[tc.wantKey], 1e-9)
			assert.NotContains(t, sent, tc.absentKey)
		})
	}
}

func TestAnthropic_ClassifiesWithoutRetry(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusPaymentRequired, domain.ErrQuotaExceeded},
		{http.StatusInternalServerError, domain.ErrLLM},
	}
	for _, tc := range cases {
		var hits int32
		ts := anthropicServer(t, tc.status, `{"type":"error","error":{"type":"api_error","message":"nope"}}`, &hits, nil)

		_, err := llm.NewAnthropic("k", "", ts.URL).Generate(context.Background(), domain.CompletionRequest{User: "x", MaxTokens: 10})
		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.want), "status %d: %v", tc.status, err)
		assert.EqualValues(t, 1, hits, "status %d must not be retried", tc.status)
	}
}

func TestAnthropic_EmptyContent(t *testing.T) {
	var hits int32
	ts := anthropicServer(t, http.StatusOK, `{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`, &hits, nil)

	_, err := llm.NewAnthropic("k", "m", ts.URL).Generate(context.Background(), domain.CompletionRequest{User: "x", MaxTokens: 10})
	assert.ErrorIs(t, err, domain.ErrLLM)
}

type fakeModel struct {
	resp *llms.ContentResponse
	err  error
	msgs []llms.MessageContent
	opts llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.msgs = msgs
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChain_Generate(t *testing.T) {
	m := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "wifi, colokan"}}}}
	gen := llm.NewLangChain(m, "openai")

	out, err := gen.Generate(context.Background(), domain.CompletionRequest{
		System: "sys", User: "usr", MaxTokens: 100, Temperature: 0.2, TopP: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "wifi, colokan", out)

	require.Len(t, m.msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.msgs[1].Role)
	assert.Equal(t, 100, m.opts.MaxTokens)
	assert.InDelta(t, 0.2, m.opts.Temperature, 1e-9)
	assert.InDelta(t, 1.0, m.opts.TopP, 1e-9)
}

func TestLangChain_Errors(t *testing.T) {
	gen := llm.NewLangChain(&fakeModel{err: errors.New("API returned unexpected status code: 429: slow down")}, "openai")
	_, err := gen.Generate(context.Background(), domain.CompletionRequest{User: "x"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	gen = llm.NewLangChain(&fakeModel{resp: &llms.ContentResponse{}}, "openai")
	_, err = gen.Generate(context.Background(), domain.CompletionRequest{User: "x"})
	assert.ErrorIs(t, err, domain.ErrLLM)
}

func TestNew(t *testing.T) {
	_, err := llm.New(llm.Config{Provider: "anthropic"})
	assert.Error(t, err, "missing key")

	_, err = llm.New(llm.Config{Provider: "bard", APIKey: "k"})
	assert.Error(t, err)

	g, err := llm.New(llm.Config{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &llm.Anthropic{}, g)

	g, err = llm.New(llm.Config{Provider: "openai", APIKey: "k", BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	assert.IsType(t, &llm.LangChain{}, g)
}
