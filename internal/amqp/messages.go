package amqp

import (
	"encoding/json"
	"time"
)

// ExportJobMessage tells the worker an export job is waiting. It carries
// only the job ID; the worker reads the full job (kind, format, filter
// spec) from the database, so a stale queue can never render stale
// parameters.
type ExportJobMessage struct {
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExportJobMessage(jobID string) *ExportJobMessage {
	return &ExportJobMessage{
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

func (m *ExportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportJobMessageFromJSON(data []byte) (*ExportJobMessage, error) {
	var msg ExportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
