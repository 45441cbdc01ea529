package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"theshelf/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultRateBurst = 20

	// Retry configuration
	maxRetries   = 1
	initialDelay = 100 * time.Millisecond

	// Breaker configuration
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	breakerInterval = time.Minute
)

// ClientConfig configures the HTTP embedding client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Dimensions int           // expected vector length, 0 disables the check
	Timeout    time.Duration // per Embed call, including retries
	RateLimit  float64       // requests per second
	Cache      *Cache
	Logger     *slog.Logger
}

// Client calls an HTTP embedding endpoint: POST {BaseURL}/embed {"input": "..."} -> {"embedding": [...]}.
// Concurrent requests for the same text share one upstream call.
type Client struct {
	baseURL     string
	apiKey      string
	dimensions  int
	timeout     time.Duration
	retryDelay  time.Duration
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]float32]
	group       singleflight.Group
	cache       *Cache
	logger      *slog.Logger
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewClient creates a new embedding client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedding_client")

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		dimensions:  cfg.Dimensions,
		timeout:     cfg.Timeout,
		retryDelay:  initialDelay,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), defaultRateBurst),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache:  cfg.Cache,
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        "embedding",
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// a caller walking away is not the service's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EmbeddingBreakerState.Set(float64(to))
			logger.Warn("embedding_breaker_state_change", "from", from.String(), "to", to.String())
		},
	})

	return c
}

func (c *Client) breakerState() string {
	return c.breaker.State().String()
}

// Embed returns the embedding of text. Empty text yields nil, nil.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if vec, err := c.cache.Get(ctx, text); err != nil {
		c.logger.Debug("embedding_cache_get_failed", "error", err)
	} else if vec != nil {
		metrics.RecordEmbedding("cache_hit")
		return vec, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// the shared call runs detached from any single caller's cancellation
	ch := c.group.DoChan(cacheKey(text), func() (interface{}, error) {
		callCtx, callCancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer callCancel()
		return c.breaker.Execute(func() ([]float32, error) {
			return c.doRequest(callCtx, text)
		})
	})

	select {
	case <-ctx.Done():
		metrics.RecordEmbedding("error")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, gobreaker.ErrOpenState) || errors.Is(res.Err, gobreaker.ErrTooManyRequests) {
				metrics.RecordEmbedding("breaker_open")
			} else {
				metrics.RecordEmbedding("error")
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, res.Err)
		}
		vec := res.Val.([]float32)
		metrics.RecordEmbedding("ok")
		if !res.Shared {
			if err := c.cache.Set(ctx, text, vec); err != nil {
				c.logger.Debug("embedding_cache_set_failed", "error", err)
			}
		}
		return vec, nil
	}
}

// doRequest performs an HTTP request with rate limiting and retry logic
func (c *Client) doRequest(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "TheShelf/1.0")
		if c.apiKey != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries && ctx.Err() == nil {
				c.logger.Debug("embedding_request_retry", "attempt", attempt+1, "error", err)
				if err := sleepCtx(ctx, delay); err != nil {
					return nil, fmt.Errorf("request failed: %w", err)
				}
				delay *= 2
				continue
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}

		vec, retry, err := c.readResponse(resp)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if retry && attempt < maxRetries {
			c.logger.Debug("embedding_request_retry", "attempt", attempt+1, "error", err)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, fmt.Errorf("retry aborted: %w", err)
			}
			delay *= 2
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (c *Client) readResponse(resp *http.Response) ([]float32, bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, shouldRetry(resp.StatusCode), fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(out.Embedding) == 0 {
		return nil, false, fmt.Errorf("%w: empty vector", ErrBadResponse)
	}
	if c.dimensions > 0 && len(out.Embedding) != c.dimensions {
		return nil, false, fmt.Errorf("%w: got %d dimensions, want %d", ErrBadResponse, len(out.Embedding), c.dimensions)
	}
	return out.Embedding, false, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// shouldRetry determines if an HTTP status code warrants a retry
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || // 429
		statusCode >= 500
}
