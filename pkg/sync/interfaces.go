package sync

import (
	"context"
	"time"

	"github.com/lwedwards3/dhp-sync/pkg/model"
	"github.com/lwedwards3/dhp-sync/pkg/report"
	"github.com/lwedwards3/dhp-sync/pkg/tasklist"
)

// ProfileSource yields the open vacation-patrol requests held by the
// membership-profile service.
type ProfileSource interface {
	PatrolDate() string
	GetOpenRequests(ctx context.Context, patrolDate string) ([]*model.Request, error)
	GetMatchingProfiles(ctx context.Context, address string) ([]*model.Request, error)
}

// TaskSource is the officers' task list. Mutations taking a revision are
// optimistic-concurrency writes; a stale revision fails with
// tasklist.ErrConflict.
type TaskSource interface {
	AllTasks(ctx context.Context) ([]*model.Task, error)
	CreateTask(ctx context.Context, title, dueDate string) (*model.Task, error)
	SetDueDate(ctx context.Context, taskID, revision int64, dueDate string) (*model.Task, error)
	SetTitle(ctx context.Context, taskID, revision int64, title string) (*model.Task, error)
	GetNote(ctx context.Context, taskID int64) (string, error)
	CreateNote(ctx context.Context, taskID int64, content string) error
	GetTaskComments(ctx context.Context, taskID int64) ([]tasklist.Comment, error)
	GetTaskFiles(ctx context.Context, taskID int64) ([]tasklist.File, error)
	ArchiveTask(ctx context.Context, taskID, revision int64) error
}

// Store persists the reconciled request set between runs.
type Store interface {
	Load() ([]*model.Request, error)
	Save([]*model.Request) error
}

// Notifier transmits one rendered email.
type Notifier interface {
	Send(to, bcc []string, subject, body string) error
}

// AuditLog records each archived request permanently.
type AuditLog interface {
	Append(report.AuditRow) error
}

// RunLogger records the end-of-run summary line.
type RunLogger interface {
	Append(at time.Time, openRequests, postedTasks, emailsSent, archivedTasks int) error
}
