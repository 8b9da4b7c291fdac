// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/codebrain/codebrain-tui/internal/model"
)

// Configuration constants for the CodeBrain API.
const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.codebrain.dev"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultIdleTimeout is the hardening watchdog for a silent stream:
	// if no bytes arrive for this long the stream is treated as having
	// ended prematurely.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultMaxRetries is the retry budget for transient GET failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps exponential backoff.
	retryMaxDelay = 8 * time.Second

	// requestsPerMinute is the client-side request throttle.
	requestsPerMinute = 60
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Two shared clients: a bounded-timeout client for JSON endpoints and a
// timeout-less client for streams, where lifetime is governed by context.
var (
	sharedJSONClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	sharedStreamClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		// No timeout: streams run until the terminal event or cancellation.
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotAuthenticated indicates a request that requires a login token.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrAuthFailed indicates the server rejected the credentials or token.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a non-success response from the CodeBrain API.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("codebrain API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("codebrain API error (HTTP %d)", e.Status)
}

// Is maps status classes onto the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden ||
			e.Status == http.StatusUnprocessableEntity
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// apiErrorBody is the server's error envelope.
type apiErrorBody struct {
	Error string `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource func() string

// Client communicates with the CodeBrain API.
type Client struct {
	baseURL string
	token   TokenSource
	limiter *rate.Limiter

	// idleTimeout holds nanoseconds; atomic because config hot-reload
	// adjusts it from the watcher goroutine while streams read it.
	idleTimeout atomic.Int64

	maxRetries int
	logger     *log.Logger
}

// New creates a client for the given base URL. token may be nil for
// anonymous use.
func New(baseURL string, token TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if token == nil {
		token = func() string { return "" }
	}
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute/6),
		maxRetries: DefaultMaxRetries,
		logger:     log.Default(),
	}
	c.idleTimeout.Store(int64(DefaultIdleTimeout))
	return c
}

// SetIdleTimeout overrides the stream idle watchdog (0 disables it). Safe
// to call while streams are in flight; in-flight streams keep the timeout
// they started with.
func (c *Client) SetIdleTimeout(d time.Duration) {
	c.idleTimeout.Store(int64(d))
}

// setHeaders applies the common headers, including the bearer token when
// one is available.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "codebrain-tui")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// handleErrorResponse converts a non-success response into an error.
func (c *Client) handleErrorResponse(status int, body []byte) error {
	var envelope apiErrorBody
	_ = json.Unmarshal(body, &envelope)
	return &APIError{Status: status, Message: envelope.Error}
}

// calculateBackoff returns the delay before the given retry attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay << uint(attempt-1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// =============================================================================
// STREAMING ASK / BLEND
// =============================================================================

// AskRequest is a single-model question.
type AskRequest struct {
	Question       string `json:"question"`
	Code           string `json:"code,omitempty"`
	Model          string `json:"model,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	// ImagePath, when set, switches the request to multipart upload.
	ImagePath string `json:"-"`
}

// BlendRequest queries several models and streams the merged answer.
type BlendRequest struct {
	Question       string   `json:"question"`
	Code           string   `json:"code,omitempty"`
	Models         []string `json:"models"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// Ask opens a single-model answer stream and drives the ingestor until the
// stream ends. The turn bound to the ingestor receives every update; on
// transport failure the fixed error notice is appended to its partial text.
func (c *Client) Ask(ctx context.Context, req AskRequest, ing *Ingestor) error {
	httpReq, err := c.buildAskRequest(ctx, req)
	if err != nil {
		ing.Fail()
		return err
	}
	return c.stream(ctx, httpReq, ing)
}

// Blend opens a multi-model blend stream and drives the ingestor.
func (c *Client) Blend(ctx context.Context, req BlendRequest, ing *Ingestor) error {
	body, err := json.Marshal(req)
	if err != nil {
		ing.Fail()
		return fmt.Errorf("marshal blend request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/blend", bytes.NewReader(body))
	if err != nil {
		ing.Fail()
		return fmt.Errorf("create blend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.stream(ctx, httpReq, ing)
}

// buildAskRequest builds either the JSON or the multipart form of /api/ask.
func (c *Client) buildAskRequest(ctx context.Context, req AskRequest) (*http.Request, error) {
	if req.ImagePath == "" {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshal ask request: %w", err)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ask", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create ask request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	img, err := os.Open(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer img.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("question", req.Question)
	_ = w.WriteField("code", req.Code)
	_ = w.WriteField("model", req.Model)
	if req.ConversationID != "" {
		_ = w.WriteField("conversation_id", req.ConversationID)
	}
	part, err := w.CreateFormFile("image", filepath.Base(req.ImagePath))
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, img); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ask", &buf)
	if err != nil {
		return nil, fmt.Errorf("create ask request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	return httpReq, nil
}

// stream executes the request and runs the ingestor over the response body.
//
// Failure semantics: a rejected request or non-success status appends the
// error notice to the turn and returns the transport error. A deliberate
// context cancellation returns ctx.Err() with no notice. Idle-watchdog
// expiry is treated as a premature stream end: silent, partial text kept.
func (c *Client) stream(ctx context.Context, req *http.Request, ing *Ingestor) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	req = req.WithContext(ctx)

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Idle watchdog: cancel the request context when the stream goes silent.
	// The timeout is read once; a concurrent SetIdleTimeout applies to the
	// next stream.
	idleTimeout := time.Duration(c.idleTimeout.Load())
	var idleFired atomic.Bool
	if idleTimeout > 0 {
		timer := time.AfterFunc(idleTimeout, func() {
			idleFired.Store(true)
			cancel()
		})
		defer timer.Stop()
		ing.opts.ResetIdle = func() { timer.Reset(idleTimeout) }
	}

	resp, err := sharedStreamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil && !idleFired.Load() {
			return ctx.Err()
		}
		ing.Fail()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		ing.Fail()
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	err = ing.Run(ctx, resp.Body)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if idleFired.Load() {
			// Silent stream: degraded completion, keep the partial text.
			c.logger.Printf("codebrain: stream idle for %v, closing", idleTimeout)
			return nil
		}
		return err
	}
	ing.Fail()
	return err
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// User is the authenticated account profile.
type User struct {
	ID          json.Number `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	IsAdmin     bool        `json:"is_admin"`
}

// LoginResult carries the bearer token and profile returned by the server.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns the initial session.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*LoginResult, error) {
	var out LoginResult
	in := map[string]string{"email": email, "password": password, "display_name": displayName}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the current user's profile, validating the stored token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	if c.token() == "" {
		return nil, ErrNotAuthenticated
	}
	var out struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// =============================================================================
// CONVERSATIONS AND HISTORY
// =============================================================================

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	CreatedAt string      `json:"created_at"`
	Pinned    bool        `json:"is_pinned"`
	Archived  bool        `json:"is_archived"`
}

// TurnRecord is one persisted exchange as the server serializes it.
type TurnRecord struct {
	ID             json.Number `json:"id"`
	ConversationID json.Number `json:"conversation_id"`
	Question       string      `json:"user_question"`
	Response       string      `json:"ai_response"`
	Model          string      `json:"selected_model"`
	Timestamp      string      `json:"timestamp"`
	Summary        string      `json:"summary"`
	ImageURL       string      `json:"image_url"`
	RoutingReason  string      `json:"routing_reason"`
	Persona        string      `json:"persona"`
}

// Conversations lists the user's conversations, most recent first.
func (c *Client) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	var out struct {
		Conversations []ConversationSummary `json:"conversations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// ConversationHistory fetches one conversation's turns in chronological order.
func (c *Client) ConversationHistory(ctx context.Context, conversationID string) ([]TurnRecord, error) {
	var out struct {
		History []TurnRecord `json:"history"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations/"+conversationID, nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// DeleteConversation removes a conversation and its history.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/conversations/"+conversationID, nil, nil)
}

// SetFavorite marks or unmarks a completed turn as a favorite.
func (c *Client) SetFavorite(ctx context.Context, historyID string, favorite bool) error {
	method := http.MethodPost
	if !favorite {
		method = http.MethodDelete
	}
	return c.doJSON(ctx, method, "/api/favorites/"+historyID, nil, nil)
}

// DeleteTurn removes one persisted exchange.
func (c *Client) DeleteTurn(ctx context.Context, historyID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/history/"+historyID, nil, nil)
}

// =============================================================================
// JSON TRANSPORT
// =============================================================================

// doJSON performs a JSON request with rate limiting and, for GETs, retry
// with exponential backoff on transient failures.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = c.maxRetries
	}

	var lastErr error
	var wait time.Duration
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if wait <= 0 {
				wait = c.calculateBackoff(attempt - 1)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait = 0
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := sharedJSONClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := c.handleErrorResponse(resp.StatusCode, respBody)
			if resp.StatusCode == http.StatusTooManyRequests {
				// RELIABILITY: follow the server's Retry-After pacing
				// when it offers one.
				if d, ok := parseRetryAfter(resp); ok {
					wait = d
				}
				lastErr = apiErr
				continue
			}
			// Client errors are final; server errors may be transient.
			if resp.StatusCode < 500 {
				return apiErr
			}
			lastErr = apiErr
			continue
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// parseRetryAfter reads a Retry-After header as a duration.
func parseRetryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t), true
	}
	return 0, false
}

// =============================================================================
// HISTORY CONVERSION
// =============================================================================

// TurnFromRecord converts a persisted server record into a committed turn
// for display (historical turns render instantly, never animated).
func TurnFromRecord(rec TurnRecord) *model.Turn {
	t := model.NewTurn(rec.Question, "", "", rec.Model)
	t.Streaming = false
	t.Commit(model.CompletionMeta{
		HistoryID:      rec.ID.String(),
		ConversationID: rec.ConversationID.String(),
		FinalText:      rec.Response,
		Summary:        rec.Summary,
		RoutingReason:  rec.RoutingReason,
		Persona:        rec.Persona,
	})
	return t
}
