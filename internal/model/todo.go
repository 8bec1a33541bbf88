package model

import "encoding/json"

// Todo is a to-do entry as the backend returns it.
// ID, UserID and CreatedAt are server-assigned; the client never changes them.
type Todo struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Completed   bool   `json:"completed"`
	CreatedAt   Time   `json:"createdAt"`
	UpdatedAt   Time   `json:"updatedAt"`
}

// UnmarshalJSON accepts both camelCase and snake_case field names.
func (t *Todo) UnmarshalJSON(b []byte) error {
	var w struct {
		ID             string `json:"id"`
		UserID         string `json:"userId"`
		UserIDSnake    string `json:"user_id"`
		Title          string `json:"title"`
		Description    string `json:"description"`
		DueDate        string `json:"dueDate"`
		DueDateSnake   string `json:"due_date"`
		Completed      bool   `json:"completed"`
		CreatedAt      Time   `json:"createdAt"`
		CreatedAtSnake Time   `json:"created_at"`
		UpdatedAt      Time   `json:"updatedAt"`
		UpdatedAtSnake Time   `json:"updated_at"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Todo{
		ID:          w.ID,
		UserID:      firstNonEmpty(w.UserID, w.UserIDSnake),
		Title:       w.Title,
		Description: w.Description,
		DueDate:     firstNonEmpty(w.DueDate, w.DueDateSnake),
		Completed:   w.Completed,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = w.CreatedAtSnake
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = w.UpdatedAtSnake
	}
	return nil
}

// TodoDto is the create payload.
type TodoDto struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Completed   *bool  `json:"completed,omitempty"`
}

// TodoPatch is a partial update; nil fields are not sent.
type TodoPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Apply returns a copy of t with the patch's set fields applied.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
