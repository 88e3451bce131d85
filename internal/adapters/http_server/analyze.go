package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"cofind/internal/domain"
	"cofind/internal/recommend"
)

const codeInvalidRequest = "INVALID_REQUEST"

type analyzeRequest struct {
	Text     string `json:"text"`
	Task     string `json:"task"`
	Location string `json:"location"`
}

type analyzeResponse struct {
	Status             string   `json:"status"`
	Task               string   `json:"task"`
	Analysis           string   `json:"analysis"`
	ExtractedKeywords  []string `json:"extracted_keywords"`
	IrrelevantKeywords []string `json:"irrelevant_keywords"`
	ExpandedKeywords   []string `json:"expanded_keywords,omitempty"`
	NoMatch            bool     `json:"no_match"`
}

type analyzeError struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAnalyzeError(w, http.StatusBadRequest, codeInvalidRequest, "body must be a JSON object with a text field")
		return
	}

	res, err := h.Rec.Analyze(r.Context(), recommendRequest(req))
	if err != nil {
		status, code, msg := analyzeFailure(err)
		if status >= 500 {
			log.Error().Err(err).Str("code", code).Msg("analyze failed")
		} else {
			log.Warn().Err(err).Str("code", code).Msg("analyze rejected")
		}
		writeAnalyzeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Status:             "success",
		Task:               string(res.Task),
		Analysis:           res.Analysis,
		ExtractedKeywords:  nonNil(res.Keywords),
		IrrelevantKeywords: nonNil(res.Removed),
		ExpandedKeywords:   res.Expanded,
		NoMatch:            res.NoMatch,
	})
}

// analyzeFailure picks the status, wire code and user-facing message for err.
func analyzeFailure(err error) (int, string, string) {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest, codeInvalidRequest, "text is required"
	}
	// Only errors the pipeline already classified carry a provider code;
	// source failures fall through to API_ERROR.
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusPaymentRequired, domain.CodeQuotaExceeded, "LLM quota exhausted, please try again later"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, domain.CodeRateLimit, "too many requests to the LLM provider, please retry shortly"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, domain.CodeUnauthorized, "LLM provider rejected the configured API key"
	default:
		return http.StatusInternalServerError, domain.CodeAPIError, "failed to produce a recommendation"
	}
}

func recommendRequest(req analyzeRequest) recommend.Request {
	return recommend.Request{Text: req.Text, Task: req.Task, Location: req.Location}
}

func writeAnalyzeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, analyzeError{Status: "error", ErrorCode: code, Message: msg})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
