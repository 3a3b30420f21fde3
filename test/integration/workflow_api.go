// Package integration drives the workflow API end to end against a real
// database. The dialect specific packages only provide the database.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/RealZimboGuy/flowstudio/internal/config"
	"github.com/RealZimboGuy/flowstudio/internal/repository"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Server is a running API on top of one database.
type Server struct {
	App    *flowstudio.App
	Clock  *FakeClock
	URL    string
	client *http.Client
}

// StartServer wires the API on db and serves it on a local port until the test ends.
func StartServer(t *testing.T, db *sql.DB, dialect repository.Dialect, settings config.Settings) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clock := NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	app, err := flowstudio.NewApp(ctx, db, dialect, flowstudio.AppOptions{
		Settings: settings,
		Clock:    clock,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(app.Mux)
	t.Cleanup(func() {
		srv.Close()
		app.Close()
		cancel()
	})
	return &Server{App: app, Clock: clock, URL: srv.URL, client: &http.Client{Timeout: 10 * time.Second}}
}

// CreateUser stores an enabled user with a fresh API key and returns the key.
func (s *Server) CreateUser(t *testing.T, username string) string {
	t.Helper()
	key := uuid.NewString()
	_, err := s.App.Users.Save(context.Background(), &domain.User{
		Username: username,
		Password: "not-used",
		ApiKey:   sql.NullString{String: key, Valid: true},
		Enabled:  sql.NullBool{Bool: true, Valid: true},
	})
	require.NoError(t, err)
	return key
}

// Do sends a request authenticated with apiKey and returns the status and body.
func (s *Server) Do(t *testing.T, method, path, apiKey, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

const pinnedWorkflow = `{
	"name": "pinned",
	"nodes": [
		{"name": "Start", "type": "n8n-nodes-base.webhook", "typeVersion": 1, "position": [250, 300], "parameters": {}, "webhookId": "5f1c0d6e", "notes": "entry"},
		{"name": "Set", "type": "n8n-nodes-base.set", "parameters": {"value": "x"}, "pinData": [{"json": {"a": 1}}]}
	],
	"connections": {"Start": {"main": [[{"node": "Set", "type": "main", "index": 0}]]}},
	"settings": {"timezone": "UTC"}
}`

// RunWorkflowAPIScenarios exercises creating and reading workflows over HTTP.
func RunWorkflowAPIScenarios(t *testing.T, db *sql.DB, dialect repository.Dialect) {
	srv := StartServer(t, db, dialect, config.Settings{SessionExpiryHours: 1})
	alice := srv.CreateUser(t, "alice")
	bob := srv.CreateUser(t, "bob")
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		status, _ := srv.Do(t, http.MethodPost, "/api/workflows", "", pinnedWorkflow)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	var workflowID string
	t.Run("create moves pinData and returns a string id", func(t *testing.T) {
		status, data := srv.Do(t, http.MethodPost, "/api/workflows", alice, pinnedWorkflow)
		require.Equal(t, http.StatusOK, status, string(data))
		body := decode(t, data)

		id, ok := body["id"].(string)
		require.True(t, ok, "id must be a string: %v", body["id"])
		workflowID = id
		assert.Equal(t, map[string]any{"Set": []any{map[string]any{"json": map[string]any{"a": float64(1)}}}}, body["pinData"])
		for _, n := range body["nodes"].([]any) {
			assert.NotContains(t, n.(map[string]any), "pinData")
		}
	})

	t.Run("get reattaches pinData", func(t *testing.T) {
		require.NotEmpty(t, workflowID)
		status, data := srv.Do(t, http.MethodGet, "/api/workflows/"+workflowID, alice, "")
		require.Equal(t, http.StatusOK, status, string(data))
		body := decode(t, data)

		assert.Equal(t, workflowID, body["id"])
		assert.Equal(t, "pinned", body["name"])
		assert.NotContains(t, body, "pinData")
		assert.Equal(t, []any{}, body["tags"])
		assert.Equal(t, map[string]any{"timezone": "UTC"}, body["settings"])
		nodes := body["nodes"].([]any)
		require.Len(t, nodes, 2)
		assert.NotContains(t, nodes[0].(map[string]any), "pinData")
		assert.Equal(t, "5f1c0d6e", nodes[0].(map[string]any)["webhookId"])
		assert.Equal(t, "entry", nodes[0].(map[string]any)["notes"])
		assert.Equal(t, []any{map[string]any{"json": map[string]any{"a": float64(1)}}}, nodes[1].(map[string]any)["pinData"])

		_, again := srv.Do(t, http.MethodGet, "/api/workflows/"+workflowID, alice, "")
		assert.Equal(t, data, again)
	})

	t.Run("workflow of another user is not found", func(t *testing.T) {
		require.NotEmpty(t, workflowID)
		status, data := srv.Do(t, http.MethodGet, "/api/workflows/"+workflowID, bob, "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, fmt.Sprintf("Workflow with ID %q could not be found.", workflowID), decode(t, data)["detail"])

		status, missing := srv.Do(t, http.MethodGet, "/api/workflows/987654", alice, "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Workflow with ID \"987654\" could not be found.", decode(t, missing)["detail"])
	})

	t.Run("timestamps come from the clock", func(t *testing.T) {
		createdAt := func(data []byte) time.Time {
			t.Helper()
			at, err := time.Parse(time.RFC3339Nano, decode(t, data)["createdAt"].(string))
			require.NoError(t, err)
			return at
		}

		status, first := srv.Do(t, http.MethodPost, "/api/workflows", alice, `{"name":"early"}`)
		require.Equal(t, http.StatusOK, status, string(first))
		srv.Clock.Add(90 * time.Minute)
		status, second := srv.Do(t, http.MethodPost, "/api/workflows", alice, `{"name":"late"}`)
		require.Equal(t, http.StatusOK, status, string(second))

		assert.WithinDuration(t, srv.Clock.Now().Add(-90*time.Minute), createdAt(first), time.Second)
		assert.WithinDuration(t, srv.Clock.Now(), createdAt(second), time.Second)

		id := decode(t, second)["id"].(string)
		status, stored := srv.Do(t, http.MethodGet, "/api/workflows/"+id, alice, "")
		require.Equal(t, http.StatusOK, status)
		assert.WithinDuration(t, srv.Clock.Now(), createdAt(stored), time.Second)
	})

	t.Run("tags keep request order", func(t *testing.T) {
		for _, name := range []string{"one", "two", "three"} {
			require.NoError(t, srv.App.Tags.Save(ctx, &domain.Tag{Name: name}))
		}
		all, err := srv.App.Tags.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		ids := map[string]int64{}
		for _, tag := range all {
			ids[tag.Name] = tag.ID
		}

		body := fmt.Sprintf(`{"name":"tagged","tags":["%d",%d,%d,"999"]}`, ids["three"], ids["one"], ids["two"])
		status, data := srv.Do(t, http.MethodPost, "/api/workflows", alice, body)
		require.Equal(t, http.StatusOK, status, string(data))
		created := decode(t, data)

		var names []string
		for _, tag := range created["tags"].([]any) {
			names = append(names, tag.(map[string]any)["name"].(string))
		}
		assert.Equal(t, []string{"three", "one", "two"}, names)

		status, data = srv.Do(t, http.MethodGet, "/api/workflows/"+created["id"].(string), alice, "")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, decode(t, data)["tags"], 3)
	})

	t.Run("tags disabled", func(t *testing.T) {
		noTags := StartServer(t, db, dialect, config.Settings{WorkflowTagsDisabled: true, SessionExpiryHours: 1})
		status, data := noTags.Do(t, http.MethodPost, "/api/workflows", alice, `{"name":"untagged","tags":[1,2]}`)
		require.Equal(t, http.StatusOK, status, string(data))
		created := decode(t, data)
		assert.NotContains(t, created, "tags")

		owner, err := srv.App.Users.FindByApiKey(ctx, alice)
		require.NoError(t, err)
		id, err := strconv.ParseInt(created["id"].(string), 10, 64)
		require.NoError(t, err)
		stored, err := srv.App.SharedWorkflows.FindForUser(ctx, owner.ID, id, true)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Empty(t, stored.Workflow.Tags)
	})

	t.Run("missing owner role leaves no workflow behind", func(t *testing.T) {
		before, err := srv.App.Workflows.Count(ctx)
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, `UPDATE role SET name = 'renamed' WHERE scope = 'workflow'`)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = db.ExecContext(context.Background(), `UPDATE role SET name = 'owner' WHERE scope = 'workflow'`)
		})

		status, data := srv.Do(t, http.MethodPost, "/api/workflows", alice, pinnedWorkflow)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Failed to save workflow", decode(t, data)["detail"])

		after, err := srv.App.Workflows.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
