// Package model defines the reconciled record types shared by the
// profile-service and task-list adapters and the sync engine.
package model

import "time"

// DateLayout is the wire and snapshot format for patrol dates.
const DateLayout = "2006-01-02"

// Source records which system a request was first observed in.
type Source string

const (
	SourceProfile Source = "profile"
	SourceTask    Source = "task-originated"
)

// AssetType distinguishes officer comments from uploaded files.
type AssetType string

const (
	AssetComment AssetType = "comment"
	AssetFile    AssetType = "file"
)

// Asset is a comment or file attached to a task. Identity is the ID within
// a single request; assets are only ever appended, never removed.
type Asset struct {
	ID        int64     `json:"id"`
	CreatedAt string    `json:"created_at"` // ISO 8601, UTC, as received
	Text      string    `json:"text"`       // comment body or file URL
	Type      AssetType `json:"type"`
}

// Request is the authoritative reconciled unit: one member's patrol need
// for one calendar day. The full set is rebuilt every run and written back
// to the snapshot file wholesale.
type Request struct {
	Address      string   `json:"address"`
	DueDate      string   `json:"due_date"`
	Source       Source   `json:"source"`
	TaskID       int64    `json:"task_id,omitempty"` // 0 until a task is created or matched
	Completed    bool     `json:"completed"`
	Assets       []Asset  `json:"assets"`
	EmailsSent   []string `json:"emails_sent,omitempty"`
	SendEmail    bool     `json:"send_email"`
	OfficerNotes []string `json:"officer_notes,omitempty"`
	MemberName   string   `json:"member_name,omitempty"`
	EmailAddress string   `json:"email_address,omitempty"`
	MemberStatus string   `json:"member_status,omitempty"`
}

// Key is the natural matching key while no task id has been assigned.
type Key struct {
	Address string
	DueDate string
}

func (r *Request) Key() Key {
	return Key{Address: r.Address, DueDate: r.DueDate}
}

// HasTask reports whether a task id has been assigned.
func (r *Request) HasTask() bool {
	return r.TaskID != 0
}

// HasAsset reports whether an asset with the given id is already recorded.
func (r *Request) HasAsset(id int64) bool {
	for _, a := range r.Assets {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ApplyCompleted applies a completed flag observed on the task side.
// The transition false→true flags a member notification; true→false is
// accepted silently, since members are told a patrol completed, not that
// it was reopened.
func (r *Request) ApplyCompleted(completed bool) {
	if r.Completed == completed {
		return
	}
	if completed {
		r.SendEmail = true
	}
	r.Completed = completed
}

// RecordEmail appends a send timestamp to the audit trail and clears the
// per-run notification flag.
func (r *Request) RecordEmail(at time.Time) {
	r.EmailsSent = append(r.EmailsSent, at.Format("2006-01-02 15:04:05"))
	r.SendEmail = false
}
