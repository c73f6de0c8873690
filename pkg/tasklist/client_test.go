package tasklist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lwedwards3/dhp-sync/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.TaskCreds{
		BaseURL:       srv.URL,
		ClientID:      "cid",
		AccessToken:   "tok",
		ListID:        11,
		ArchiveListID: 12,
	}, zap.NewNop())
}

func TestAuthHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Access-Token"))
		assert.Equal(t, "cid", r.Header.Get("X-Client-ID"))
		json.NewEncoder(w).Encode([]any{})
	})
	_, err := c.GetTasks(context.Background(), 11, false)
	require.NoError(t, err)
}

func TestAllTasksUnion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "11", r.URL.Query().Get("list_id"))
		if r.URL.Query().Get("completed") == "true" {
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 2, "title": "9 Elm Ave", "due_date": "2024-05-01", "completed": true, "revision": 5},
			})
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "title": "12 Oak St", "due_date": "2024-05-01", "completed": false, "revision": 3},
		})
	})

	tasks, err := c.AllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(1), tasks[0].ID)
	assert.False(t, tasks[0].Completed)
	assert.Equal(t, int64(2), tasks[1].ID)
	assert.True(t, tasks[1].Completed)
}

func TestCreateTaskTruncatesTitle(t *testing.T) {
	longTitle := strings.Repeat("x", 300)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["title"], maxTitleLen)
		assert.Equal(t, "2024-05-01", body["due_date"])
		assert.Equal(t, float64(11), body["list_id"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 9, "title": body["title"], "due_date": "2024-05-01", "revision": 1})
	})

	task, err := c.CreateTask(context.Background(), longTitle, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, int64(9), task.ID)
}

func TestArchiveTaskMovesList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/tasks/7", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(12), body["list_id"])
		assert.Equal(t, float64(4), body["revision"])
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "list_id": 12, "revision": 5})
	})
	require.NoError(t, c.ArchiveTask(context.Background(), 7, 4))
}

func TestStaleRevisionConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	err := c.ArchiveTask(context.Background(), 7, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetNote(t *testing.T) {
	t.Run("returns first note content", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/notes", r.URL.Path)
			assert.Equal(t, "7", r.URL.Query().Get("task_id"))
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 1, "task_id": 7, "revision": 1, "content": "gate code 1234"},
			})
		})
		note, err := c.GetNote(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "gate code 1234", note)
	})

	t.Run("empty when task has no note", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]any{})
		})
		note, err := c.GetNote(context.Background(), 7)
		require.NoError(t, err)
		assert.Empty(t, note)
	})
}

func TestGetTaskCommentsAndFiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/task_comments":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 21, "task_id": 7, "created_at": "2024-05-01T10:00:00Z", "text": "all quiet"},
			})
		case "/files":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 31, "task_id": 7, "created_at": "2024-05-01T10:05:00Z", "url": "https://files.test/a.jpg"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	comments, err := c.GetTaskComments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "all quiet", comments[0].Text)

	files, err := c.GetTaskFiles(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "https://files.test/a.jpg", files[0].URL)
}

func TestServerErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.AllTasks(context.Background())
	assert.Error(t, err)
}
