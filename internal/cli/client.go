package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dormtycoon/internal/game"
	"dormtycoon/internal/script"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response. Rejected game actions still carry the
// session snapshot so the caller can render the log feed.
type APIError struct {
	Status   int
	Message  string
	Snapshot *game.Snapshot
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type CreatedSession struct {
	SessionID string        `json:"session_id"`
	Token     string        `json:"token"`
	Snapshot  game.Snapshot `json:"snapshot"`
}

type ActionResult struct {
	Action   script.Action   `json:"action"`
	Report   *game.DayReport `json:"report,omitempty"`
	Snapshot game.Snapshot   `json:"snapshot"`
}

type ScriptResult struct {
	Results  []script.Result `json:"results"`
	Snapshot game.Snapshot   `json:"snapshot"`
}

func (c *Client) CreateSession(ctx context.Context, variant string, seed int64) (CreatedSession, error) {
	var out CreatedSession
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/sessions", "", map[string]any{
		"variant": variant,
		"seed":    seed,
	}, &out, "")
	return out, err
}

func (c *Client) Snapshot(ctx context.Context, s Session) (game.Snapshot, error) {
	var out game.Snapshot
	err := c.jsonRequest(ctx, http.MethodGet, sessionPath(s.SessionID, ""), s.Token, nil, &out, "")
	return out, err
}

func (c *Client) DeleteSession(ctx context.Context, s Session) error {
	return c.jsonRequest(ctx, http.MethodDelete, sessionPath(s.SessionID, ""), s.Token, nil, nil, "")
}

// Act sends one action. A rejected action returns *APIError with the
// post-rejection snapshot attached.
func (c *Client) Act(ctx context.Context, s Session, a script.Action, idem string) (ActionResult, error) {
	var body any
	switch a.Type {
	case script.TypeBuy, script.TypeSell:
		body = map[string]any{"instrument_id": a.InstrumentID, "quantity": a.Quantity}
	case script.TypeDilemma:
		body = map[string]any{"option": a.Option}
	}
	var out ActionResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(s.SessionID, a.Type), s.Token, body, &out, idem)
	return out, err
}

func (c *Client) RunScript(ctx context.Context, s Session, actions []script.Action) (ScriptResult, error) {
	var out ScriptResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(s.SessionID, "script"), s.Token, map[string]any{
		"actions": actions,
	}, &out, "")
	return out, err
}

func sessionPath(id, action string) string {
	p := "/v1/sessions/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(raw))}
	var payload struct {
		Error    string         `json:"error"`
		Snapshot *game.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Snapshot = payload.Snapshot
	}
	return apiErr
}

// RejectedSnapshot extracts the snapshot attached to a rejected action.
func RejectedSnapshot(err error) (game.Snapshot, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Snapshot != nil {
		return *apiErr.Snapshot, true
	}
	return game.Snapshot{}, false
}
