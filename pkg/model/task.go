package model

// Task is the task-list service's representation of a request. Revision is
// the optimistic-concurrency token the service requires on any mutation;
// a stale value causes the mutation to be rejected.
type Task struct {
	ID        int64  `json:"id"`
	ListID    int64  `json:"list_id,omitempty"`
	Title     string `json:"title"`
	DueDate   string `json:"due_date,omitempty"` // empty until repaired for manually created tasks
	Completed bool   `json:"completed"`
	Revision  int64  `json:"revision"`

	// Counts cached by the asset-sync phase for end-of-day reporting.
	// Not part of the wire format.
	NumComments int `json:"-"`
	NumFiles    int `json:"-"`
}

// HasDueDate reports whether the service returned a due date for the task.
// Tasks entered by hand on the shared device frequently lack one.
func (t *Task) HasDueDate() bool {
	return t.DueDate != ""
}

func (t *Task) Key() Key {
	return Key{Address: t.Title, DueDate: t.DueDate}
}
