// Package report writes the two append-only run artifacts: the one-line
// run log and the archived-request audit CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// RunLog appends one tab-separated summary line per sync run. The line is
// only written once the run has fully completed, so a crashed run leaves
// no entry.
type RunLog struct {
	Path string
}

func NewRunLog(path string) *RunLog {
	return &RunLog{Path: path}
}

func (l *RunLog) Append(at time.Time, openRequests, postedTasks, emailsSent, archivedTasks int) error {
	line := fmt.Sprintf("%s\tOpen requests: %d\tPosted requests: %d\tEmails sent: %d",
		at.Format("2006-01-02 15:04:05"), openRequests, postedTasks, emailsSent)
	if archivedTasks > 0 {
		line += fmt.Sprintf("\tArchived tasks: %d", archivedTasks)
	}
	return appendLine(l.Path, line+"\n")
}

// AuditRow is one archived request: the permanent record of a patrol after
// its task leaves the working list.
type AuditRow struct {
	Date         string
	Address      string
	Status       string // "completed" or "incomplete"
	NumComments  int
	NumFiles     int
	EmailsSent   int
	MemberStatus string
	TaskID       int64
}

// RequestLog appends one CSV row per archived request.
type RequestLog struct {
	Path string
}

func NewRequestLog(path string) *RequestLog {
	return &RequestLog{Path: path}
}

func (l *RequestLog) Append(row AuditRow) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("could not open request log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		row.Date,
		row.Address,
		row.Status,
		strconv.Itoa(row.NumComments),
		strconv.Itoa(row.NumFiles),
		strconv.Itoa(row.EmailsSent),
		row.MemberStatus,
		strconv.FormatInt(row.TaskID, 10),
	}); err != nil {
		return fmt.Errorf("could not write request log row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("could not open run log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("could not write run log line: %w", err)
	}
	return nil
}
