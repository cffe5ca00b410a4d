package schema

import "encoding/json"

type (
	// FineTuningJobRequest mirrors POST /v1/fine_tuning/jobs.
	FineTuningJobRequest struct {
		Model           string          `json:"model"`
		TrainingFile    string          `json:"training_file"`
		ValidationFile  string          `json:"validation_file,omitempty"`
		Hyperparameters json.RawMessage `json:"hyperparameters,omitempty"`
		Method          json.RawMessage `json:"method,omitempty"`
		Suffix          string          `json:"suffix,omitempty"`
		Seed            *int64          `json:"seed,omitempty"`
		Metadata        Metadata        `json:"metadata,omitempty"`
	}

	// FineTuningJob mirrors the fine_tuning.job object.
	FineTuningJob struct {
		ID              string          `json:"id"`
		Object          string          `json:"object"`
		Model           string          `json:"model"`
		CreatedAt       int64           `json:"created_at"`
		FinishedAt      *int64          `json:"finished_at"`
		FineTunedModel  *string         `json:"fine_tuned_model"`
		OrganizationID  string          `json:"organization_id,omitempty"`
		Status          string          `json:"status"`
		TrainingFile    string          `json:"training_file"`
		ValidationFile  *string         `json:"validation_file"`
		ResultFiles     []string        `json:"result_files"`
		Hyperparameters json.RawMessage `json:"hyperparameters,omitempty"`
		TrainedTokens   *int64          `json:"trained_tokens"`
		Error           json.RawMessage `json:"error,omitempty"`
	}

	FineTuningJobList struct {
		Object  string          `json:"object"`
		Data    []FineTuningJob `json:"data"`
		HasMore bool            `json:"has_more,omitempty"`
	}

	FineTuningEvent struct {
		ID        string          `json:"id"`
		Object    string          `json:"object"`
		CreatedAt int64           `json:"created_at"`
		Level     string          `json:"level"`
		Message   string          `json:"message"`
		Data      json.RawMessage `json:"data,omitempty"`
	}

	FineTuningEventList struct {
		Object  string            `json:"object"`
		Data    []FineTuningEvent `json:"data"`
		HasMore bool              `json:"has_more,omitempty"`
	}
)
