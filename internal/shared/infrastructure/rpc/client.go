// Package rpc calls the hosted backend's JSON functions with a bearer
// credential and classifies every failure into the resilience taxonomy.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// FunctionsPath is the prefix under which backend functions are served.
const FunctionsPath = "/functions/v1/"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config configures the client.
type Config struct {
	BaseURL string
	// APIKey is sent as the apikey header when set.
	APIKey string
	// HTTPTimeout bounds a single request at the transport level.
	HTTPTimeout time.Duration
}

// Client invokes backend functions.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  oauth2.TokenSource
	logger  *slog.Logger
}

// NewClient creates a client. tokens supplies the bearer credential; a nil
// source makes every call fail with AuthenticationRequired.
func NewClient(cfg Config, tokens oauth2.TokenSource, logger *slog.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  observability.ForComponent(logger, "rpc"),
	}
}

// SessionTokenSource wraps a static session token. An empty token yields a
// source that always fails.
func SessionTokenSource(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.ReuseTokenSource(nil, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// CallOption customizes a single call.
type CallOption func(*callOptions)

type callOptions struct {
	idempotencyKey string
}

// WithIdempotencyKey sets the Idempotency-Key header. The same key must be
// reused for every attempt of one logical call.
func WithIdempotencyKey(key string) CallOption {
	return func(o *callOptions) {
		o.idempotencyKey = key
	}
}

// Invoke POSTs body as JSON to the named function and decodes the response
// into out when out is non-nil.
func (c *Client) Invoke(ctx context.Context, function string, body any, out any, opts ...CallOption) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return resilience.WrapError(resilience.KindValidation, function, err)
	}
	return c.do(ctx, function, http.MethodPost, FunctionsPath+function, bytes.NewReader(payload), out, opts)
}

// Get issues a GET for path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	op := strings.TrimPrefix(path, FunctionsPath)
	return c.do(ctx, op, http.MethodGet, path, nil, out, opts)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any, opts []CallOption) error {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}

	if c.tokens == nil {
		return resilience.NewError(resilience.KindAuthenticationRequired, op, "no session")
	}
	token, err := c.tokens.Token()
	if err != nil {
		return resilience.WrapError(resilience.KindAuthenticationRequired, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return resilience.WrapError(resilience.KindValidation, op, err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if options.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", options.idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		classified := responseError(op, resp)
		c.logger.Debug("backend call rejected",
			observability.OperationKey, op,
			"status", resp.StatusCode,
			observability.ErrorKey, classified,
		)
		return classified
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return transportError(ctx, op, err)
		}
		return resilience.NewError(resilience.KindUpstreamRejected, op, "malformed response: "+err.Error())
	}
	return nil
}

func transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return resilience.WrapError(resilience.KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return resilience.WrapError(resilience.KindTimeout, op, err)
	}
	return resilience.WrapError(resilience.KindTransientNetwork, op, err)
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func responseError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := upstreamMessage(raw)

	kind := resilience.KindUpstreamRejected
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		kind = resilience.KindAuthenticationRequired
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		kind = resilience.KindValidation
	case code == http.StatusRequestTimeout, code == http.StatusTooEarly,
		code == http.StatusTooManyRequests, code >= 500:
		kind = resilience.KindTransientNetwork
	}

	if message == "" {
		message = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return resilience.NewError(kind, op, message)
}

func upstreamMessage(raw []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
