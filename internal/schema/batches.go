package schema

import "encoding/json"

type (
	// BatchRequest mirrors POST /v1/batches.
	BatchRequest struct {
		InputFileID      string   `json:"input_file_id"`
		Endpoint         string   `json:"endpoint"`
		CompletionWindow string   `json:"completion_window"`
		Metadata         Metadata `json:"metadata,omitempty"`
	}

	BatchRequestCounts struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	}

	// Batch mirrors the batch object.
	Batch struct {
		ID               string              `json:"id"`
		Object           string              `json:"object"`
		Endpoint         string              `json:"endpoint"`
		Errors           json.RawMessage     `json:"errors,omitempty"`
		InputFileID      string              `json:"input_file_id"`
		CompletionWindow string              `json:"completion_window"`
		Status           string              `json:"status"`
		OutputFileID     *string             `json:"output_file_id"`
		ErrorFileID      *string             `json:"error_file_id"`
		CreatedAt        int64               `json:"created_at"`
		InProgressAt     *int64              `json:"in_progress_at,omitempty"`
		ExpiresAt        *int64              `json:"expires_at,omitempty"`
		CompletedAt      *int64              `json:"completed_at,omitempty"`
		FailedAt         *int64              `json:"failed_at,omitempty"`
		CancelledAt      *int64              `json:"cancelled_at,omitempty"`
		RequestCounts    *BatchRequestCounts `json:"request_counts,omitempty"`
		Metadata         Metadata            `json:"metadata,omitempty"`
	}

	BatchList struct {
		Object  string  `json:"object"`
		Data    []Batch `json:"data"`
		FirstID string  `json:"first_id,omitempty"`
		LastID  string  `json:"last_id,omitempty"`
		HasMore bool    `json:"has_more,omitempty"`
	}
)
