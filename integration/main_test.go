//go:build integration
// +build integration

// Package integration drives a running API seeded with the default Shifting
// Manor. None of these steps need the language model.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/manor-engine/pkg/state"
)

var (
	apiBaseURL string
	client     = &http.Client{Timeout: 30 * time.Second}
)

func TestMain(m *testing.M) {
	apiBaseURL = os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080" // Default to localhost
	}
	apiBaseURL = strings.TrimSuffix(apiBaseURL, "/")

	fmt.Printf("Running Manor Engine Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL)

	os.Exit(m.Run())
}

func do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, apiBaseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	code, body := do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Contains(t, string(body), `"healthy"`)
}

func TestGameWithoutModel(t *testing.T) {
	code, body := do(t, http.MethodPost, "/v1/games", map[string]string{"name": "Integration"})
	require.Equal(t, http.StatusCreated, code, string(body))
	var g state.Game
	require.NoError(t, json.Unmarshal(body, &g))
	base := "/v1/games/" + g.Metadata.ID.String()
	t.Cleanup(func() { do(t, http.MethodDelete, base, nil) })

	t.Logf("GameState ID: %s", g.Metadata.ID)
	require.Equal(t, "Main Foyer", g.State.PlayerLocation.Room)

	steps := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		check  func(t *testing.T, body []byte)
	}{
		{
			name: "look is answered locally", method: http.MethodPost, path: "/turns",
			body: map[string]string{"prompt": "look"}, want: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "Main Foyer")
			},
		},
		{
			name: "legal actions", method: http.MethodGet, path: "/actions", want: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var la state.LegalActions
				require.NoError(t, json.Unmarshal(body, &la))
				assert.Equal(t, []string{"Welcome Note"}, la.TakeableItems)
				assert.Len(t, la.ReachableRooms, 4)
			},
		},
		{
			name: "take the note", method: http.MethodPost, path: "/actions",
			body: map[string]any{"action": state.TakeItem("Welcome Note", "Folded in the journal.", "Corvin pockets the note.")},
			want: http.StatusOK,
		},
		{
			name: "take it again", method: http.MethodPost, path: "/actions",
			body: map[string]any{"action": state.TakeItem("Welcome Note", "", "")},
			want: http.StatusConflict,
		},
		{
			name: "inventory", method: http.MethodPost, path: "/turns",
			body: map[string]string{"prompt": "inventory"}, want: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "Welcome Note")
			},
		},
		{
			name: "description", method: http.MethodGet, path: "/description", want: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.True(t, strings.HasPrefix(string(body), "# Game State"))
			},
		},
		{
			name: "status log", method: http.MethodGet, path: "/status", want: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "A new game has begun.")
			},
		},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			code, body := do(t, step.method, base+step.path, step.body)
			require.Equal(t, step.want, code, string(body))
			if step.check != nil {
				step.check(t, body)
			}
		})
	}
}
