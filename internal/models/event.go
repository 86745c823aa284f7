package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names used across the pipeline. Not an exhaustive enum — listeners
// should not reject unrecognized names, since new namespaces may be added
// without touching the bus.
const (
	EventStageEntered      = "pipeline.stage_entered"
	EventStageCompleted    = "pipeline.stage_completed"
	EventStageFailed       = "pipeline.stage_failed"
	EventQAGatePassed      = "qa.gate_passed"
	EventQAGateReworked    = "qa.gate_reworked"
	EventRecoveryAttempted = "recovery.level_attempted"
	EventRecoveryEscalated = "recovery.escalated"
	EventResumePlanned     = "recovery.resume_planned"
	EventSidegenStarted    = "sidegen.gate_started"
	EventSidegenRetried    = "sidegen.gate_retried"
	EventSidegenCompleted  = "sidegen.gate_completed"
	EventSidegenTimeout    = "sidegen.gate_timeout"
	EventDaemonStopping    = "daemon.stopping"
)

// PipelineEvent is one entry in a run's event journal.
type PipelineEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Name      string          `json:"namespace_event_name"`
	Stage     PipelineStage   `json:"stage"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent builds a PipelineEvent with the current time, marshaling data
// (any JSON-serializable value) into the event's Data field.
func NewEvent(name string, stage PipelineStage, data any) (PipelineEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PipelineEvent{}, fmt.Errorf("marshaling event data: %w", err)
	}
	return PipelineEvent{
		Timestamp: time.Now(),
		Name:      name,
		Stage:     stage,
		Data:      raw,
	}, nil
}

// RunID extracts the "run_id" key from the event's Data payload, if
// present. Every publisher in this tree includes it, since the journal
// subscriber needs it to route the event to the right run's event log.
func (e PipelineEvent) RunID() (string, bool) {
	var data map[string]any
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return "", false
	}
	runID, ok := data["run_id"].(string)
	if !ok || runID == "" {
		return "", false
	}
	return runID, true
}

// JournalLine renders the event in the journal line format mandated by
// §6: "<ISO8601> | <namespace.event_name> | <stage> | <compact_json>".
func (e PipelineEvent) JournalLine() string {
	data := e.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	return fmt.Sprintf("%s | %s | %s | %s",
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Name, e.Stage, string(data))
}
