package tasklist

// List is a task list visible to the credentials.
type List struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Revision int64  `json:"revision"`
}

// Note is a task's free-text note body.
type Note struct {
	ID       int64  `json:"id"`
	TaskID   int64  `json:"task_id"`
	Revision int64  `json:"revision"`
	Content  string `json:"content"`
}

// Comment is an officer comment left on a task.
type Comment struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	CreatedAt string `json:"created_at"` // ISO 8601, UTC
	Text      string `json:"text"`
}

// File is a file (typically a photo) uploaded to a task.
type File struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	CreatedAt string `json:"created_at"` // ISO 8601, UTC
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
}
