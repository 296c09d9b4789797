// Package itam is the HTTP client for the ITAM REST backend. Responses are
// decoded tolerantly and normalized into internal/models types.
package itam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/pipeline"
)

// MaxResponseBytes bounds how much of an upstream response body is read.
const MaxResponseBytes = 32 << 20

// ErrNotFound is returned when the backend answers 404.
var ErrNotFound = errors.New("itam: not found")

// APIError is a non-2xx answer from the backend. Message carries the
// server's own error text when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("itam: %s (status %d)", e.Message, e.Status)
}

// Is makes errors.Is(err, ErrNotFound) hold for 404 answers.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. Requests made with
// that context forward it upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to one ITAM backend.
type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

// NewClient constructs a client targeting baseURL, e.g. http://itam:3000/api.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithServiceToken returns a copy of the client that authenticates with
// token whenever the request context carries none.
func (c *Client) WithServiceToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type rawPagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`

	SnakeCurrentPage int `json:"current_page"`
	SnakeTotalPages  int `json:"total_pages"`
	SnakeTotal       int `json:"total_tickets"`
	SnakePerPage     int `json:"per_page"`
}

func (p *rawPagination) server() *pipeline.ServerPagination {
	if p == nil {
		return nil
	}
	sp := &pipeline.ServerPagination{
		CurrentPage:  firstPositive(p.CurrentPage, p.SnakeCurrentPage),
		TotalPages:   firstPositive(p.TotalPages, p.SnakeTotalPages),
		TotalItems:   firstPositive(p.TotalItems, p.SnakeTotal),
		ItemsPerPage: firstPositive(p.ItemsPerPage, p.SnakePerPage),
	}
	return sp
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// envelope is the union of the response shapes the backend uses.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Alerts     json.RawMessage `json:"alerts"`
	Users      json.RawMessage `json:"users"`
	Statistics json.RawMessage `json:"statistics"`
	Pagination *rawPagination  `json:"pagination"`
	Summary    json.RawMessage `json:"summary"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
}

// payload returns the first populated body field. A bare array body is its
// own payload.
func (e envelope) payload() json.RawMessage {
	for _, raw := range []json.RawMessage{e.Data, e.Alerts, e.Users, e.Statistics} {
		if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return raw
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return envelope{}, errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return envelope{}, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := TokenFrom(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return envelope{}, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return envelope{}, errors.Wrapf(err, "read %s", path)
	}
	if len(data) > MaxResponseBytes {
		return envelope{}, errors.Errorf("%s %s: response larger than %d bytes", method, path, MaxResponseBytes)
	}

	var env envelope
	var decodeErr error
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		env.Data = trimmed
	} else if len(trimmed) > 0 {
		decodeErr = json.Unmarshal(trimmed, &env)
	}

	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("Server error (%d)", resp.StatusCode)
		}
		return envelope{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return envelope{}, errors.Wrapf(decodeErr, "%s %s: %d response is not JSON", method, path, resp.StatusCode)
	}
	return env, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (envelope, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (envelope, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return q
}
