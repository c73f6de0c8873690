// Package sync holds the reconciliation engine: the matching, merge and
// state-transition logic that keeps the membership-profile service, the
// officers' task list, and the on-disk request snapshot converged. Each
// phase is one exported method with explicit inputs and outputs; the Run
// driver in run.go sequences them.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lwedwards3/dhp-sync/pkg/mailer"
	"github.com/lwedwards3/dhp-sync/pkg/model"
	"github.com/lwedwards3/dhp-sync/pkg/report"
	"github.com/lwedwards3/dhp-sync/pkg/tasklist"
)

// archiveEarliestHour guards the archive phase against running before the
// midnight rollover has completed.
const archiveEarliestHour = 1

// Options carries the engine's notification settings.
type Options struct {
	// MemberBCC always receives member updates; the member's own address
	// is added only when EmailMembers is set.
	MemberBCC     []string
	EODRecipients []string
	EmailMembers  bool
}

type Engine struct {
	profiles ProfileSource
	tasks    TaskSource
	store    Store
	notifier Notifier
	audit    AuditLog
	runLog   RunLogger
	tmpl     *mailer.Templates
	opts     Options
	log      *zap.Logger

	now func() time.Time
}

func NewEngine(
	profiles ProfileSource,
	tasks TaskSource,
	store Store,
	notifier Notifier,
	audit AuditLog,
	runLog RunLogger,
	tmpl *mailer.Templates,
	opts Options,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		profiles: profiles,
		tasks:    tasks,
		store:    store,
		notifier: notifier,
		audit:    audit,
		runLog:   runLog,
		tmpl:     tmpl,
		opts:     opts,
		log:      logger,
		now:      time.Now,
	}
}

// LoadRequests fetches the open requests for the patrol date and carries
// forward state from the previous run's snapshot. Fresh requests matching
// a previous record by (address, due date) inherit its completion state,
// assets, email audit trail and provenance; profile data itself carries
// none of these. The returned current set has unique (address, due date)
// pairs.
func (e *Engine) LoadRequests(ctx context.Context) (current, previous []*model.Request, err error) {
	patrolDate := e.profiles.PatrolDate()
	fresh, err := e.profiles.GetOpenRequests(ctx, patrolDate)
	if err != nil {
		return nil, nil, fmt.Errorf("could not fetch open requests: %w", err)
	}
	previous, err = e.store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load request snapshot: %w", err)
	}

	prevByKey := make(map[model.Key]*model.Request, len(previous))
	for _, p := range previous {
		prevByKey[p.Key()] = p
	}

	seen := make(map[model.Key]bool, len(fresh))
	current = make([]*model.Request, 0, len(fresh))
	for _, req := range fresh {
		if seen[req.Key()] {
			e.log.Warn("duplicate profile request dropped",
				zap.String("address", req.Address),
				zap.String("due_date", req.DueDate))
			continue
		}
		seen[req.Key()] = true
		req.Source = model.SourceProfile
		if prev, ok := prevByKey[req.Key()]; ok {
			req.Completed = prev.Completed
			req.Assets = append([]model.Asset(nil), prev.Assets...)
			req.EmailsSent = append([]string(nil), prev.EmailsSent...)
			req.SendEmail = false
			if prev.Source != "" {
				req.Source = prev.Source
			}
		}
		current = append(current, req)
	}
	return current, previous, nil
}

// MergeTasks folds the task list into the request set. Tasks are matched
// first by (title, due date) against the current set, then by task id
// against the previous snapshot (requests whose profile has left the
// search window), and anything left was created by hand on the task list
// and becomes a new request. Tasks missing a due date are repaired to
// today's date and the repair is pushed back to the service.
func (e *Engine) MergeTasks(ctx context.Context, current, previous []*model.Request) ([]*model.Request, []*model.Task, error) {
	tasks, err := e.tasks.AllTasks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not fetch tasks: %w", err)
	}

	today := e.now().Format(model.DateLayout)
	for _, task := range tasks {
		if task.HasDueDate() {
			continue
		}
		updated, err := e.tasks.SetDueDate(ctx, task.ID, task.Revision, today)
		if err != nil {
			return nil, nil, fmt.Errorf("could not repair due date on task %d: %w", task.ID, err)
		}
		task.DueDate = today
		task.Revision = updated.Revision
		e.log.Info("assigned missing due date",
			zap.Int64("task_id", task.ID),
			zap.String("due_date", today))
	}

	for _, task := range tasks {
		if e.mergeByKey(task, current) || e.mergeByTaskID(task, previous, &current) {
			continue
		}
		req, err := e.requestForManualTask(ctx, task)
		if err != nil {
			return nil, nil, err
		}
		current = append(current, req)
	}
	return current, tasks, nil
}

func (e *Engine) mergeByKey(task *model.Task, current []*model.Request) bool {
	for _, req := range current {
		if req.Address == task.Title && req.DueDate == task.DueDate {
			req.ApplyCompleted(task.Completed)
			req.TaskID = task.ID
			return true
		}
	}
	return false
}

func (e *Engine) mergeByTaskID(task *model.Task, previous []*model.Request, current *[]*model.Request) bool {
	for _, prev := range previous {
		if prev.HasTask() && prev.TaskID == task.ID {
			prev.ApplyCompleted(task.Completed)
			*current = append(*current, prev)
			e.log.Info("resurrected request from snapshot",
				zap.String("address", prev.Address),
				zap.Int64("task_id", task.ID))
			return true
		}
	}
	return false
}

// requestForManualTask synthesizes a request for a task the officers
// entered by hand. When exactly one profile's primary address matches the
// task title, the request adopts that member's identity and notes; on zero
// or multiple matches the member fields stay blank rather than guessing.
// Any note already on the task is preserved ahead of profile-derived notes.
func (e *Engine) requestForManualTask(ctx context.Context, task *model.Task) (*model.Request, error) {
	note, err := e.tasks.GetNote(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch note for task %d: %w", task.ID, err)
	}
	profiles, err := e.profiles.GetMatchingProfiles(ctx, task.Title)
	if err != nil {
		return nil, fmt.Errorf("could not search profiles for %q: %w", task.Title, err)
	}

	req := &model.Request{
		Address:   task.Title,
		DueDate:   task.DueDate,
		Source:    model.SourceTask,
		TaskID:    task.ID,
		Completed: task.Completed,
		Assets:    []model.Asset{},
		SendEmail: task.Completed,
	}
	if note != "" {
		req.OfficerNotes = strings.Split(note, "\n")
	}

	if len(profiles) != 1 {
		e.log.Info("no unique profile for manual task",
			zap.String("title", task.Title),
			zap.Int("matches", len(profiles)))
		return req, nil
	}

	p := profiles[0]
	req.MemberName = p.MemberName
	req.EmailAddress = p.EmailAddress
	req.MemberStatus = p.MemberStatus
	req.OfficerNotes = append(req.OfficerNotes, p.OfficerNotes...)
	if p.Address != "" && p.Address != task.Title {
		// Adopt the canonical address only once the task title is
		// corrected to match, so the title index stays consistent.
		updated, err := e.tasks.SetTitle(ctx, task.ID, task.Revision, p.Address)
		if err != nil {
			e.log.Warn("could not correct task title",
				zap.Int64("task_id", task.ID), zap.Error(err))
		} else {
			task.Title = updated.Title
			task.Revision = updated.Revision
			req.Address = p.Address
		}
	}
	e.log.Info("manual task adopted with member profile",
		zap.String("address", req.Address),
		zap.Int64("task_id", task.ID))
	return req, nil
}

// CreateMissingTasks posts a task for every request with no counterpart on
// the task list, attaching the officer notes as the task note. The check
// runs against the task list fetched by MergeTasks, so requests whose task
// was entered by hand are never duplicated. Created tasks are returned so
// the caller can extend the working task set.
func (e *Engine) CreateMissingTasks(ctx context.Context, requests []*model.Request, tasks []*model.Task) ([]*model.Task, error) {
	index := make(map[model.Key]bool, len(tasks))
	for _, t := range tasks {
		index[t.Key()] = true
	}

	var created []*model.Task
	for _, req := range requests {
		if req.HasTask() || index[req.Key()] {
			continue
		}
		task, err := e.tasks.CreateTask(ctx, req.Address, req.DueDate)
		if err != nil {
			return created, fmt.Errorf("could not create task for %s: %w", req.Address, err)
		}
		req.TaskID = task.ID
		if len(req.OfficerNotes) > 0 {
			if err := e.tasks.CreateNote(ctx, task.ID, strings.Join(req.OfficerNotes, "\n")); err != nil {
				return created, fmt.Errorf("could not post note for task %d: %w", task.ID, err)
			}
		}
		index[req.Key()] = true
		created = append(created, task)
	}
	return created, nil
}

// SyncAssets pulls comments and files for every request with a task and
// appends the ones not yet recorded, comments before files. A new asset
// flags the member notification. Comment and file counts are cached on the
// in-memory task for the end-of-day report; they are not persisted.
func (e *Engine) SyncAssets(ctx context.Context, requests []*model.Request, tasks []*model.Task) error {
	byID := make(map[int64]*model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	for _, req := range requests {
		if !req.HasTask() {
			continue
		}
		comments, err := e.tasks.GetTaskComments(ctx, req.TaskID)
		if err != nil {
			return fmt.Errorf("could not fetch comments for task %d: %w", req.TaskID, err)
		}
		if t := byID[req.TaskID]; t != nil {
			t.NumComments = len(comments)
		}
		for _, cm := range comments {
			e.appendAsset(req, model.Asset{
				ID:        cm.ID,
				CreatedAt: cm.CreatedAt,
				Text:      cm.Text,
				Type:      model.AssetComment,
			})
		}

		files, err := e.tasks.GetTaskFiles(ctx, req.TaskID)
		if err != nil {
			return fmt.Errorf("could not fetch files for task %d: %w", req.TaskID, err)
		}
		if t := byID[req.TaskID]; t != nil {
			t.NumFiles = len(files)
		}
		for _, f := range files {
			e.appendAsset(req, model.Asset{
				ID:        f.ID,
				CreatedAt: f.CreatedAt,
				Text:      f.URL,
				Type:      model.AssetFile,
			})
		}
	}
	return nil
}

func (e *Engine) appendAsset(req *model.Request, asset model.Asset) {
	if req.HasAsset(asset.ID) {
		return
	}
	req.Assets = append(req.Assets, asset)
	req.SendEmail = true
	e.log.Info("new asset recorded",
		zap.String("address", req.Address),
		zap.Int64("asset_id", asset.ID),
		zap.String("type", string(asset.Type)))
}

// DayReport is the outcome of the archive phase: yesterday's tasks
// partitioned by completion, the tasks still scheduled, and how many were
// actually moved to the archive list.
type DayReport struct {
	Completed  []*model.Task
	Incomplete []*model.Task
	Scheduled  []*model.Task
	Archived   int
}

// ArchiveExpired moves every task due yesterday or earlier onto the
// archive list and classifies the day's outcome. It only runs once the
// local hour reaches 1, so a run straddling midnight cannot archive the
// day being rolled into. A stale revision on the archive move is a logged
// per-task failure, not a run failure; the task is retried next run.
// Archived tasks resolving to a known request are recorded in the audit
// log. Returns nil before the earliest hour.
func (e *Engine) ArchiveExpired(ctx context.Context, tasks []*model.Task, requests []*model.Request) (*DayReport, error) {
	now := e.now()
	if now.Hour() < archiveEarliestHour {
		e.log.Info("archive skipped before earliest hour", zap.Int("hour", now.Hour()))
		return nil, nil
	}
	today := truncateDate(now)
	cutoff := today.AddDate(0, 0, -1)

	byTask := make(map[int64]*model.Request, len(requests))
	for _, r := range requests {
		if r.HasTask() {
			byTask[r.TaskID] = r
		}
	}

	rep := &DayReport{}
	for _, task := range tasks {
		due, err := time.ParseInLocation(model.DateLayout, task.DueDate, now.Location())
		if err != nil {
			e.log.Warn("task has unparsable due date",
				zap.Int64("task_id", task.ID),
				zap.String("due_date", task.DueDate))
			continue
		}
		if due.After(cutoff) {
			rep.Scheduled = append(rep.Scheduled, task)
			continue
		}

		status := "incomplete"
		if task.Completed {
			status = "completed"
			rep.Completed = append(rep.Completed, task)
		} else {
			rep.Incomplete = append(rep.Incomplete, task)
		}

		if err := e.tasks.ArchiveTask(ctx, task.ID, task.Revision); err != nil {
			if errors.Is(err, tasklist.ErrConflict) {
				e.log.Error("archive rejected on stale revision",
					zap.Int64("task_id", task.ID), zap.Error(err))
				continue
			}
			return rep, fmt.Errorf("could not archive task %d: %w", task.ID, err)
		}
		rep.Archived++

		if req, ok := byTask[task.ID]; ok {
			row := report.AuditRow{
				Date:         task.DueDate,
				Address:      req.Address,
				Status:       status,
				NumComments:  task.NumComments,
				NumFiles:     task.NumFiles,
				EmailsSent:   len(req.EmailsSent),
				MemberStatus: req.MemberStatus,
				TaskID:       task.ID,
			}
			if err := e.audit.Append(row); err != nil {
				e.log.Error("could not append audit row",
					zap.Int64("task_id", task.ID), zap.Error(err))
			}
		}
	}
	e.log.Info("archive complete", zap.Int("archived", rep.Archived))
	return rep, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
