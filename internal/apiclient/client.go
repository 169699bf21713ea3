// Package apiclient is the session-aware client for the nutrition backend
// REST API. Every request carries the stored bearer token, and every failure
// comes back as a *RequestError.
package apiclient

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

	"github.com/xeze-org/nutriplan-web/internal/models"
)

// Client calls the backend API on behalf of one token holder.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The client adds no
// timeout of its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		logger:     slog.Default(),
	}
	if c.tokens == nil {
		c.tokens = NewMemoryTokenStore("")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of c that reads and writes ts. The copy shares
// the underlying transport.
func (c *Client) WithTokens(ts TokenStore) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL is the prefix every endpoint is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the stored bearer token, or "" when there is none.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

// SetToken stores token; "" clears it.
func (c *Client) SetToken(ctx context.Context, token string) error {
	return c.tokens.SetToken(ctx, token)
}

// Request performs method on endpoint and returns the response JSON as sent
// by the server.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	raw, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		c.logFailure(err)
		return nil, err
	}
	return raw, nil
}

// Do performs the request and decodes the response into out. When out
// implements models.Validator the decoded value is validated as well.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	raw, err := c.send(ctx, method, endpoint, body)
	if err == nil && out != nil {
		err = decodeInto(method, endpoint, raw, out)
	}
	if err != nil {
		c.logFailure(err)
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (json.RawMessage, *RequestError) {
	fail := func(kind Kind, status int, msg string, err error) *RequestError {
		return &RequestError{Kind: kind, Method: method, Endpoint: endpoint, Status: status, Message: msg, Err: err}
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		err := fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
		return nil, fail(KindInvalid, 0, err.Error(), err)
	}

	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fail(KindInvalid, 0, fmt.Sprintf("encode request body: %v", err), err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fail(KindInvalid, 0, err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fail(KindTransport, 0, fmt.Sprintf("read token: %v", err), err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(KindTransport, 0, err.Error(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(KindTransport, resp.StatusCode, err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fail(KindHTTP, resp.StatusCode, errorMessage(data, resp.StatusCode), nil)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		err := fmt.Errorf("%s %s: response is not valid JSON", method, endpoint)
		return nil, fail(KindDecode, resp.StatusCode, err.Error(), err)
	}
	return json.RawMessage(data), nil
}

// errorBody covers both {"detail": "..."} and FastAPI's validation shape
// {"detail": [{"msg": "..."}]}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func errorMessage(data []byte, status int) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return statusMessage(status)
	}
	if msg := detailMessage(body.Detail); msg != "" {
		return msg
	}
	if body.Message != "" {
		return body.Message
	}
	return statusMessage(status)
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return ""
}

func decodeInto(method, endpoint string, raw json.RawMessage, out any) *RequestError {
	fail := func(err error) *RequestError {
		return &RequestError{
			Kind:     KindDecode,
			Method:   method,
			Endpoint: endpoint,
			Message:  fmt.Sprintf("%s %s: decode: %v", method, endpoint, err),
			Err:      err,
		}
	}
	if len(raw) == 0 {
		return fail(errors.New("empty response body"))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fail(err)
	}
	if v, ok := out.(models.Validator); ok {
		if err := v.Validate(); err != nil {
			return fail(err)
		}
	}
	return nil
}

func (c *Client) logFailure(err *RequestError) {
	c.logger.Error("api_request_error",
		"method", err.Method,
		"endpoint", err.Endpoint,
		"kind", err.Kind.String(),
		"status", err.Status,
		"error", err.Message,
	)
}
