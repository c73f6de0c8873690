package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RunStats are the counters reported in the run-log line.
type RunStats struct {
	OpenRequests  int
	PostedTasks   int
	EmailsSent    int
	ArchivedTasks int
}

// Run sequences one full sync: load, task merge, task creation, asset
// sync, archive, notification, then persistence. The snapshot and run-log
// line are only written at the very end; any earlier failure aborts the
// run with the previous snapshot untouched, which is the job's
// all-or-nothing recovery story.
func (e *Engine) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	current, previous, err := e.LoadRequests(ctx)
	if err != nil {
		return nil, err
	}
	stats.OpenRequests = len(current)

	current, tasks, err := e.MergeTasks(ctx, current, previous)
	if err != nil {
		return nil, err
	}

	created, err := e.CreateMissingTasks(ctx, current, tasks)
	if err != nil {
		return nil, err
	}
	stats.PostedTasks = len(created)
	tasks = append(tasks, created...)

	if err := e.SyncAssets(ctx, current, tasks); err != nil {
		return nil, err
	}

	rep, err := e.ArchiveExpired(ctx, tasks, current)
	if err != nil {
		return nil, err
	}
	if rep != nil {
		stats.ArchivedTasks = rep.Archived
	}

	sent, err := e.SendMemberEmails(current)
	if err != nil {
		return nil, err
	}
	stats.EmailsSent = sent

	eodSent, err := e.SendEndOfDayReport(rep)
	if err != nil {
		return nil, err
	}
	if eodSent {
		stats.EmailsSent++
	}

	if err := e.store.Save(current); err != nil {
		return nil, fmt.Errorf("could not persist request snapshot: %w", err)
	}
	if err := e.runLog.Append(e.now(), stats.OpenRequests, stats.PostedTasks, stats.EmailsSent, stats.ArchivedTasks); err != nil {
		return nil, fmt.Errorf("could not write run log: %w", err)
	}

	e.log.Info("run complete",
		zap.Int("open_requests", stats.OpenRequests),
		zap.Int("posted_tasks", stats.PostedTasks),
		zap.Int("emails_sent", stats.EmailsSent),
		zap.Int("archived_tasks", stats.ArchivedTasks))
	return stats, nil
}
