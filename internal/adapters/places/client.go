// internal/adapters/places/client.go
package places

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cofind/internal/adapters/observability"
	"cofind/internal/domain"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// detailFields is what ingestion stores; anything else costs quota for nothing.
const detailFields = "place_id,name,rating,user_ratings_total,formatted_address,reviews"

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

// TextSearch runs a free-text place search, e.g. "coffee shop in Pontianak".
// Only the first result page is returned.
func (c *Client) TextSearch(ctx context.Context, query string) ([]map[string]any, error) {
	var env envelope
	if err := c.get(ctx, "textsearch", url.Values{"query": {query}}, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

func (c *Client) Details(ctx context.Context, placeID string) (map[string]any, error) {
	var env envelope
	q := url.Values{"place_id": {placeID}, "fields": {detailFields}}
	if err := c.get(ctx, "details", q, &env); err != nil {
		return nil, err
	}
	if env.Result == nil {
		return nil, ErrNotFound
	}
	return env.Result, nil
}

// ---- Internals ----

var (
	ErrNotFound     = fmt.Errorf("places: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("places: request denied")
	ErrOverQuota    = errors.New("places: over query limit")
)

// envelope is the shape shared by every legacy Places JSON endpoint.
type envelope struct {
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message"`
	Results      []map[string]any `json:"results"`
	Result       map[string]any   `json:"result"`
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429, transient 5xx, OVER_QUERY_LIMIT and UNKNOWN_ERROR, honoring
// Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out *envelope) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	q.Set("key", c.key)
	u := fmt.Sprintf("%s/%s/json?%s", c.base, endpoint, q.Encode())

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "cofind/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("places", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			*out = envelope{}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("places: decode %s: %w", endpoint, err)
			}
			retry, err := checkStatus(out)
			if !retry {
				return err
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// checkStatus maps the body-level status. retry reports a transient failure.
func checkStatus(env *envelope) (retry bool, err error) {
	switch env.Status {
	case "OK", "ZERO_RESULTS":
		return false, nil
	case "NOT_FOUND", "INVALID_REQUEST":
		return false, ErrNotFound
	case "REQUEST_DENIED":
		return false, fmt.Errorf("%w: %s", ErrUnauthorized, env.ErrorMessage)
	case "OVER_QUERY_LIMIT":
		return true, ErrOverQuota
	case "UNKNOWN_ERROR":
		return true, errors.New("places: unknown server error")
	default:
		return false, fmt.Errorf("places: status %q: %s", env.Status, env.ErrorMessage)
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
