// Package loyalty talks to the external miles program. The service is a
// soft dependency: calls are rate limited and retried with backoff, and
// exhausting the retry budget surfaces ErrDependencyUnavailable so callers
// can decide whether the operation may proceed without it.
package loyalty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skyvia/flightcore/config"
	"github.com/skyvia/flightcore/internal/domain"
)

type Client interface {
	Balance(ctx context.Context, memberID string) (int64, error)
	Credit(ctx context.Context, req CreditRequest) error
	Redeem(ctx context.Context, req RedeemRequest) error
}

// CreditRequest awards points earned by a completed booking.
type CreditRequest struct {
	MemberID         string `json:"member_id"`
	BookingReference string `json:"booking_reference"`
	Points           int64  `json:"points"`
}

// RedeemRequest deducts points spent on a miles-paid booking.
type RedeemRequest struct {
	MemberID         string `json:"member_id"`
	BookingReference string `json:"booking_reference"`
	Points           int64  `json:"points"`
}

type balanceResponse struct {
	MemberID string `json:"member_id"`
	Points   int64  `json:"points"`
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

func NewHTTPClient(cfg config.LoyaltyConfig, logger *zap.Logger) *HTTPClient {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps)
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries: retries,
		logger:     logger,
	}
}

func (c *HTTPClient) Balance(ctx context.Context, memberID string) (int64, error) {
	if memberID == "" {
		return 0, fmt.Errorf("%w: member id is required", domain.ErrInvalidInput)
	}

	var out balanceResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/miles/balance/"+memberID, nil, &out)
	if err != nil {
		return 0, err
	}
	return out.Points, nil
}

func (c *HTTPClient) Credit(ctx context.Context, req CreditRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/miles/credit-booking", req, nil)
}

func (c *HTTPClient) Redeem(ctx context.Context, req RedeemRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/miles/redeem", req, nil)
}

// do runs one rate-limited request with retries on transport errors and
// 5xx responses. 4xx responses are never retried.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("loyalty request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("loyalty request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("loyalty request failed", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("%w: loyalty member", domain.ErrNotFound)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			resp.Body.Close()
			return fmt.Errorf("%w: loyalty rejected request with status %d", domain.ErrValidation, resp.StatusCode)
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("loyalty returned status %d", resp.StatusCode)
			c.logger.Warn("loyalty server error", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			continue
		}

		if out != nil {
			err = json.NewDecoder(resp.Body).Decode(out)
		}
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("loyalty response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: loyalty service: %v", domain.ErrDependencyUnavailable, lastErr)
}

// Noop serves deployments without a loyalty integration: balances are
// always zero and writes succeed silently.
type Noop struct{}

func (Noop) Balance(context.Context, string) (int64, error) { return 0, nil }
func (Noop) Credit(context.Context, CreditRequest) error    { return nil }
func (Noop) Redeem(context.Context, RedeemRequest) error    { return nil }

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = Noop{}
)
