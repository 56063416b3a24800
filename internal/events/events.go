// Package events defines the progress notifications emitted by sync runs.
package events

import "time"

// Event types
const (
	TypeSyncStarted     = "SYNC_STARTED"
	TypeSyncPage        = "SYNC_PAGE"
	TypeSyncFinished    = "SYNC_FINISHED"
	TypeBatchSubmitted  = "BATCH_SUBMITTED"
	TypeBatchReconciled = "BATCH_RECONCILED"
	TypeBulkFinished    = "BULK_FINISHED"
)

// Event is one progress notification of a run
type Event struct {
	Type     string                 `json:"type"`
	TenantID uint                   `json:"tenantId"`
	RunID    string                 `json:"runId"`
	At       time.Time              `json:"at"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Publisher delivers events to interested listeners. Publish must not block the caller.
type Publisher interface {
	Publish(Event)
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Recorder keeps published events in memory
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(e Event) { r.Events = append(r.Events, e) }

// Types lists the recorded event types in order
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
