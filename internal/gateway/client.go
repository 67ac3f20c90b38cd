// Package gateway is the typed transport boundary to the storefront REST
// API. It performs no retries and no caching.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	// ErrNetwork matches every transport or non-2xx failure.
	ErrNetwork = errors.New("network failure")
	// ErrUnauthorized matches a 401 response; the session has been signed out.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// APIError is returned for transport failures (StatusCode 0) and non-2xx responses.
type APIError struct {
	Method     string
	Route      string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Route, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Route, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	errs := []error{ErrNetwork}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		errs = []error{ErrUnauthorized}
	case http.StatusForbidden:
		errs = append(errs, ErrForbidden)
	case http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Client calls the storefront REST API on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// New creates a gateway client rooted at baseURL
func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
		logger:  util.Component("gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session whose token is attached to requests.
func (c *Client) Session() *Session {
	return c.session
}

type request struct {
	method string
	route  string // metric label, e.g. /product/:id
	path   string
	body   any
	header http.Header
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	ctx, span := util.StartSpan(ctx, "Gateway "+r.method+" "+r.route,
		attribute.String("http.method", r.method),
		attribute.String("http.route", r.route))
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		util.GatewayRequestDuration.WithLabelValues(r.method, r.route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", r.route, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.route, err)
	}
	for k, v := range r.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		util.GatewayFailuresTotal.WithLabelValues(r.route, "transport").Inc()
		apiErr := &APIError{Method: r.method, Route: r.route, Message: err.Error(), Err: err}
		util.RecordError(span, apiErr)
		return apiErr
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		util.GatewayFailuresTotal.WithLabelValues(r.route, "transport").Inc()
		return &APIError{Method: r.method, Route: r.route, StatusCode: status, Message: "read body: " + err.Error(), Err: err}
	}

	if status < 200 || status > 299 {
		apiErr := &APIError{Method: r.method, Route: r.route, StatusCode: status, Message: serverMessage(raw, resp.Status)}
		util.GatewayFailuresTotal.WithLabelValues(r.route, strconv.Itoa(status)).Inc()
		util.RecordError(span, apiErr)

		if status == http.StatusUnauthorized {
			c.logger.Warn("Session rejected by API, signing out", zap.String("route", r.route))
			c.session.SignOut()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapEnvelope(raw), out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.route, err)
	}
	return nil
}

// unwrapEnvelope accepts both bare entities and {"data": ...} envelopes.
func unwrapEnvelope(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return raw
	}
	if data, ok := env["data"]; ok && len(data) > 0 && string(data) != "null" {
		return data
	}
	return raw
}

func serverMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fallback
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
