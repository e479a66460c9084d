package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx reply from the session API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session api status %d (code %d): %s", e.Status, e.Code, e.Message)
}

// HTTPClient talks to the /api/v1 session endpoints with a bearer token.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type saveDraftRequest struct {
	SessionID  string   `json:"session_id,omitempty"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	PayloadURL string   `json:"payload_url"`
}

type publishRequest struct {
	SessionID string `json:"session_id"`
}

// SaveDraft sends the whole draft; an empty sessionID creates a session.
func (c *HTTPClient) SaveDraft(ctx context.Context, sessionID string, draft Draft) (string, error) {
	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	var saved struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/api/v1/sessions/mine/draft", saveDraftRequest{
		SessionID:  sessionID,
		Title:      draft.Title,
		Tags:       tags,
		PayloadURL: draft.PayloadURL,
	}, &saved)
	if err != nil {
		return "", err
	}
	return saved.ID, nil
}

func (c *HTTPClient) Publish(ctx context.Context, sessionID string) error {
	return c.post(ctx, "/api/v1/sessions/mine/publish", publishRequest{SessionID: sessionID}, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal session request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build session request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read session response failed: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("parse session response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parse session data failed: %w", err)
	}
	return nil
}
