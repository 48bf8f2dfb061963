package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueExports receives report export jobs.
	QueueExports = "exports"
	// TaskTrialBalanceExport builds a trial balance export artifact.
	TaskTrialBalanceExport = "report:trial_balance_export"
)

// TrialBalanceExportPayload describes an asynchronous trial balance export.
// Dates use the yyyy-mm-dd layout.
type TrialBalanceExportPayload struct {
	RequestID   string `json:"request_id"`
	OrgID       string `json:"org_id"`
	ProjectID   string `json:"project_id,omitempty"`
	From        string `json:"from"`
	To          string `json:"to"`
	PostedOnly  bool   `json:"posted_only"`
	ActiveOnly  bool   `json:"active_only"`
	Expand      string `json:"expand,omitempty"`
	Format      string `json:"format"`
	Language    string `json:"language,omitempty"`
	Title       string `json:"title,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// NewTrialBalanceExportTask constructs an Asynq task. A missing request id is
// generated so the task id is always set.
func NewTrialBalanceExportTask(payload TrialBalanceExportPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.OrgID) == "" {
		return nil, errors.New("jobs: org id required")
	}
	if payload.RequestID == "" {
		payload.RequestID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrialBalanceExport, data, asynq.TaskID(payload.RequestID), asynq.Queue(QueueExports)), nil
}

// DecodeTrialBalanceExport reads the payload of a TaskTrialBalanceExport task.
func DecodeTrialBalanceExport(t *asynq.Task) (TrialBalanceExportPayload, error) {
	var payload TrialBalanceExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
