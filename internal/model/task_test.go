package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() TaskRequest {
	return TaskRequest{
		Task:        "Buy milk",
		Description: "2% milk",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-02",
	}
}

func TestTaskRequest_Validate(t *testing.T) {
	req := validRequest()

	in, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, &TaskInput{
		Task:        "Buy milk",
		Description: "2% milk",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-02",
	}, in)
}

func TestTaskRequest_Validate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *TaskRequest)
	}{
		{"task absent", func(r *TaskRequest) { r.Task = nil }},
		{"task empty", func(r *TaskRequest) { r.Task = "" }},
		{"description empty", func(r *TaskRequest) { r.Description = "" }},
		{"start_date absent", func(r *TaskRequest) { r.StartDate = nil }},
		{"end_date empty", func(r *TaskRequest) { r.EndDate = "" }},
		{"zero counts as missing", func(r *TaskRequest) { r.Task = float64(0) }},
		{"false counts as missing", func(r *TaskRequest) { r.Description = false }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, err := req.Validate()
			assert.ErrorIs(t, err, ErrFieldsRequired)
		})
	}
}

func TestTaskRequest_Validate_NonStringField(t *testing.T) {
	req := validRequest()
	req.Task = float64(42)

	_, err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, "task must be a string.", err.Error())
}

func TestTaskRequest_Validate_BadDate(t *testing.T) {
	for _, d := range []string{"tomorrow", "2024-13-01", "01/02/2024"} {
		req := validRequest()
		req.EndDate = d

		_, err := req.Validate()
		assert.ErrorIs(t, err, ErrInvalidDate, d)
	}
}

func TestTaskRequest_Validate_EndBeforeStartAllowed(t *testing.T) {
	req := validRequest()
	req.StartDate = "2024-02-01"
	req.EndDate = "2024-01-01"

	_, err := req.Validate()
	assert.NoError(t, err)
}
