// Package api is the HTTP client for the scan backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/logging"
)

// maxBody bounds how much of a response is read.
const maxBody = 32 << 20

// HTTPClient is the part of *http.Client the backend client needs.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the scan backend.
type Client struct {
	baseURL string
	token   string
	client  HTTPClient
	log     *logging.Logger
}

var (
	_ HTTPClient            = (*http.Client)(nil)
	_ domain.Analyzer       = (*Client)(nil)
	_ domain.RemoteSessions = (*Client)(nil)
)

// New creates a client with its own http.Client.
func New(baseURL, token string, timeout time.Duration) *Client {
	return NewWithClient(baseURL, token, &http.Client{Timeout: timeout})
}

// NewWithClient creates a client over any HTTPClient.
func NewWithClient(baseURL, token string, client HTTPClient) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		log:     logging.New("api"),
	}
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload posts a file as multipart field "file" and returns the raw
// analysis result.
func (c *Client) Upload(ctx context.Context, fileName string, content io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("upload: create form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("upload: read %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req, "upload")
	if err != nil {
		return nil, err
	}
	return asJSON("upload", body)
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Chat sends one text message in the context of chatID.
func (c *Client) Chat(ctx context.Context, chatID, text string) (json.RawMessage, error) {
	payload, err := json.Marshal(chatRequest{SessionID: chatID, Message: text})
	if err != nil {
		return nil, fmt.Errorf("chat: encode: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "chat")
	if err != nil {
		return nil, err
	}
	return asJSON("chat", body)
}

// ListSessions fetches the signed-in user's session history.
func (c *Client) ListSessions(ctx context.Context) ([]*domain.ChatSession, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/sessions", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, "list sessions")
	if err != nil {
		return nil, err
	}
	return decodeSummaries(body)
}

// DeleteSession removes chatID on the server.
func (c *Client) DeleteSession(ctx context.Context, chatID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(chatID), nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, "delete session")
	return err
}

// Ping checks that the backend answers at all. Any status below 500
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode >= 500 {
		return &TransportError{Op: "ping", StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ctx, requestID := logging.EnsureRequestID(ctx)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	requestID := req.Header.Get("X-Request-ID")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("request_failed", map[string]any{"op": op, "request_id": requestID}, err)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.TimedEvent("request", start, map[string]any{
		"op":         op,
		"status":     resp.StatusCode,
		"request_id": requestID,
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("status %s", resp.Status),
		}
	}
	return body, nil
}

func asJSON(op string, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, &DecodeError{Op: op, Body: body, Err: fmt.Errorf("invalid JSON (%d bytes)", len(body))}
	}
	return json.RawMessage(trimmed), nil
}
