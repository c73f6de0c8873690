// Package tasklist is the task-list service adapter: a REST client for the
// officers' shared patrol list. Every mutation carries the task's current
// revision token; the service rejects stale revisions, which surfaces here
// as ErrConflict.
package tasklist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/lwedwards3/dhp-sync/pkg/config"
	"github.com/lwedwards3/dhp-sync/pkg/model"
)

// ErrConflict is returned when a mutation is rejected because the supplied
// revision token is stale.
var ErrConflict = errors.New("revision conflict")

// maxTitleLen is the service's task title limit; longer addresses are
// truncated on create.
const maxTitleLen = 255

type Client struct {
	baseURL       string
	httpClient    *http.Client
	accessToken   string
	clientID      string
	listID        int64
	archiveListID int64
	log           *zap.Logger
}

func New(cfg config.TaskCreds, logger *zap.Logger) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		httpClient:    http.DefaultClient,
		accessToken:   cfg.AccessToken,
		clientID:      cfg.ClientID,
		listID:        cfg.ListID,
		archiveListID: cfg.ArchiveListID,
		log:           logger,
	}
}

// ListID returns the working list the client operates on.
func (c *Client) ListID() int64 { return c.listID }

// GetTasks retrieves the tasks in a list, filtered by completion state.
func (c *Client) GetTasks(ctx context.Context, listID int64, completed bool) ([]*model.Task, error) {
	q := url.Values{}
	q.Set("list_id", strconv.FormatInt(listID, 10))
	if completed {
		q.Set("completed", "true")
	}
	var tasks []*model.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &tasks); err != nil {
		return nil, fmt.Errorf("could not retrieve tasks: %w", err)
	}
	return tasks, nil
}

// AllTasks returns the working list's open and completed tasks together,
// which is the view the sync engine reconciles against.
func (c *Client) AllTasks(ctx context.Context) ([]*model.Task, error) {
	open, err := c.GetTasks(ctx, c.listID, false)
	if err != nil {
		return nil, err
	}
	done, err := c.GetTasks(ctx, c.listID, true)
	if err != nil {
		return nil, err
	}
	return append(open, done...), nil
}

// CreateTask posts a new task to the working list.
func (c *Client) CreateTask(ctx context.Context, title, dueDate string) (*model.Task, error) {
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	body := map[string]any{
		"list_id":  c.listID,
		"title":    title,
		"due_date": dueDate,
	}
	var task model.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, body, &task); err != nil {
		return nil, fmt.Errorf("could not create task %q: %w", title, err)
	}
	c.log.Info("task created",
		zap.Int64("task_id", task.ID),
		zap.String("title", title),
		zap.String("due_date", dueDate))
	return &task, nil
}

func (c *Client) updateTask(ctx context.Context, taskID, revision int64, fields map[string]any) (*model.Task, error) {
	body := map[string]any{"revision": revision}
	for k, v := range fields {
		body[k] = v
	}
	var task model.Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+strconv.FormatInt(taskID, 10), nil, body, &task); err != nil {
		return nil, fmt.Errorf("could not update task %d: %w", taskID, err)
	}
	return &task, nil
}

// SetDueDate repairs a task that was entered without a due date.
func (c *Client) SetDueDate(ctx context.Context, taskID, revision int64, dueDate string) (*model.Task, error) {
	return c.updateTask(ctx, taskID, revision, map[string]any{"due_date": dueDate})
}

// SetTitle corrects a task title to the canonical street address.
func (c *Client) SetTitle(ctx context.Context, taskID, revision int64, title string) (*model.Task, error) {
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	return c.updateTask(ctx, taskID, revision, map[string]any{"title": title})
}

// ArchiveTask moves an expired task onto the archive list.
func (c *Client) ArchiveTask(ctx context.Context, taskID, revision int64) error {
	_, err := c.updateTask(ctx, taskID, revision, map[string]any{"list_id": c.archiveListID})
	return err
}

// DeleteTask removes a task outright. The sync never deletes; this exists
// for operational cleanup.
func (c *Client) DeleteTask(ctx context.Context, taskID, revision int64) error {
	q := url.Values{}
	q.Set("revision", strconv.FormatInt(revision, 10))
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.FormatInt(taskID, 10), q, nil, nil)
}

// GetLists retrieves every list visible to the credentials.
func (c *Client) GetLists(ctx context.Context) ([]List, error) {
	var lists []List
	if err := c.do(ctx, http.MethodGet, "/lists", nil, nil, &lists); err != nil {
		return nil, fmt.Errorf("could not retrieve lists: %w", err)
	}
	return lists, nil
}

// GetNote returns the content of the task's note, or "" when it has none.
// The service models notes as a per-task collection but only ever keeps one.
func (c *Client) GetNote(ctx context.Context, taskID int64) (string, error) {
	notes, err := c.getNotes(ctx, taskID)
	if err != nil {
		return "", err
	}
	if len(notes) == 0 {
		return "", nil
	}
	return notes[0].Content, nil
}

func (c *Client) getNotes(ctx context.Context, taskID int64) ([]Note, error) {
	q := url.Values{}
	q.Set("task_id", strconv.FormatInt(taskID, 10))
	var notes []Note
	if err := c.do(ctx, http.MethodGet, "/notes", q, nil, &notes); err != nil {
		return nil, fmt.Errorf("could not retrieve notes for task %d: %w", taskID, err)
	}
	return notes, nil
}

// CreateNote attaches a note to a task.
func (c *Client) CreateNote(ctx context.Context, taskID int64, content string) error {
	body := map[string]any{"task_id": taskID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/notes", nil, body, nil); err != nil {
		return fmt.Errorf("could not create note for task %d: %w", taskID, err)
	}
	return nil
}

// UpdateNote replaces an existing note's content, carrying its revision.
func (c *Client) UpdateNote(ctx context.Context, noteID, revision int64, content string) error {
	body := map[string]any{"revision": revision, "content": content}
	if err := c.do(ctx, http.MethodPatch, "/notes/"+strconv.FormatInt(noteID, 10), nil, body, nil); err != nil {
		return fmt.Errorf("could not update note %d: %w", noteID, err)
	}
	return nil
}

// GetTaskComments retrieves the officer comments on a task.
func (c *Client) GetTaskComments(ctx context.Context, taskID int64) ([]Comment, error) {
	q := url.Values{}
	q.Set("task_id", strconv.FormatInt(taskID, 10))
	var comments []Comment
	if err := c.do(ctx, http.MethodGet, "/task_comments", q, nil, &comments); err != nil {
		return nil, fmt.Errorf("could not retrieve comments for task %d: %w", taskID, err)
	}
	return comments, nil
}

// GetTaskFiles retrieves the files uploaded to a task.
func (c *Client) GetTaskFiles(ctx context.Context, taskID int64) ([]File, error) {
	q := url.Values{}
	q.Set("task_id", strconv.FormatInt(taskID, 10))
	var files []File
	if err := c.do(ctx, http.MethodGet, "/files", q, nil, &files); err != nil {
		return nil, fmt.Errorf("could not retrieve files for task %d: %w", taskID, err)
	}
	return files, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Access-Token", c.accessToken)
	req.Header.Set("X-Client-ID", c.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%s %s: %w", method, path, ErrConflict)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: could not decode response: %w", method, path, err)
	}
	return nil
}
