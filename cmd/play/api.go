package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/manor-engine/pkg/state"
)

// ErrorResponse matches the API error body.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Faults []string `json:"faults,omitempty"`
}

// TurnResponse covers both a finished turn (200) and a queued one (202).
type TurnResponse struct {
	Command   bool   `json:"command"`
	Message   string `json:"message"`
	Turn      int    `json:"turn"`
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

type StatusMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// apiError is a non-success answer from the API.
type apiError struct {
	status int
	resp   ErrorResponse
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("API returned status %d: %s", e.status, e.resp.Error)
	for _, f := range e.resp.Faults {
		msg += "\n  - " + f
	}
	return msg
}

type client struct {
	http    *http.Client
	baseURL string
}

func (c *client) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// call sends body as JSON and decodes the response into out when the status
// is one of ok.
func (c *client) call(method, path string, body any, out any, ok ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	for _, code := range ok {
		if resp.StatusCode != code {
			continue
		}
		if out == nil {
			return code, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return code, fmt.Errorf("failed to parse response: %w", err)
		}
		return code, nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == "" {
		errResp.Error = string(bytes.TrimSpace(data))
	}
	return resp.StatusCode, &apiError{status: resp.StatusCode, resp: errResp}
}

func (c *client) createGame() (*state.Game, error) {
	var g state.Game
	if _, err := c.call(http.MethodPost, "/v1/games", nil, &g, http.StatusCreated); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *client) getGame(id uuid.UUID) (*state.Game, error) {
	var g state.Game
	if _, err := c.call(http.MethodGet, "/v1/games/"+id.String(), nil, &g, http.StatusOK); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *client) describe(id uuid.UUID) (string, error) {
	resp, err := c.http.Get(c.baseURL + "/v1/games/" + id.String() + "/description")
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return string(data), nil
}

// submitTurn returns the HTTP status with the response so callers can tell a
// finished turn from a queued one.
func (c *client) submitTurn(id uuid.UUID, prompt string) (int, *TurnResponse, error) {
	var tr TurnResponse
	code, err := c.call(http.MethodPost, "/v1/games/"+id.String()+"/turns",
		map[string]string{"prompt": prompt}, &tr, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return code, nil, err
	}
	return code, &tr, nil
}

func (c *client) status(id uuid.UUID, limit int) ([]StatusMessage, error) {
	var resp struct {
		Messages []StatusMessage `json:"messages"`
	}
	path := fmt.Sprintf("/v1/games/%s/status?limit=%d", id, limit)
	if _, err := c.call(http.MethodGet, path, nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
