package events

import (
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

const StatusUpdateType = "freesms_status_update"

type StatusEvent struct {
	Type        string        `json:"type"`
	EntryID     string        `json:"entry_id"`
	ServiceName string        `json:"service_name"`
	Username    string        `json:"username"`
	Outcome     model.Outcome `json:"outcome"`
	StatusCode  int           `json:"status_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
