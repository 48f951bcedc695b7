package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of task dates.
const DateLayout = "2006-01-02"

// Task represents a tracked task with its date range.
type Task struct {
	ID          int64  `json:"id"`
	Task        string `json:"task"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// TaskRequest represents the request body for creating or replacing a task.
//
// Fields are decoded loosely so that presence can be judged the same way for
// every JSON type: null, "", 0 and false all count as missing.
type TaskRequest struct {
	Task        any `json:"task"`
	Description any `json:"description"`
	StartDate   any `json:"start_date"`
	EndDate     any `json:"end_date"`
}

// TaskInput is a validated TaskRequest.
type TaskInput struct {
	Task        string
	Description string
	StartDate   string
	EndDate     string
}

// Validate checks that all four fields are present and well formed.
func (r *TaskRequest) Validate() (*TaskInput, error) {
	if !present(r.Task) || !present(r.Description) || !present(r.StartDate) || !present(r.EndDate) {
		return nil, ErrFieldsRequired
	}

	in := &TaskInput{}
	fields := []struct {
		name string
		src  any
		dst  *string
	}{
		{"task", r.Task, &in.Task},
		{"description", r.Description, &in.Description},
		{"start_date", r.StartDate, &in.StartDate},
		{"end_date", r.EndDate, &in.EndDate},
	}
	for _, f := range fields {
		s, ok := f.src.(string)
		if !ok {
			return nil, TaskError{Message: fmt.Sprintf("%s must be a string.", f.name)}
		}
		*f.dst = s
	}

	for _, d := range []string{in.StartDate, in.EndDate} {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return nil, ErrInvalidDate
		}
	}

	return in, nil
}

// present reports whether v is truthy in the JSON sense.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

// TaskError represents a domain error for tasks.
type TaskError struct {
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

var (
	ErrTaskNotFound   = TaskError{Message: "Task not found"}
	ErrFieldsRequired = TaskError{Message: "All fields are required."}
	ErrInvalidDate    = TaskError{Message: "Dates must use the YYYY-MM-DD format."}
)

