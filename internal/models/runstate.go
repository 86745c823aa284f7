package models

import "time"

// RunState is the durable, checkpointed state of one pipeline run. It is
// persisted as the front-matter portion of the workspace's run-metadata
// document (run.md); the document body holds free-form progress notes.
type RunState struct {
	RunId               RunId                  `yaml:"run_id"`
	CurrentStage        PipelineStage          `yaml:"current_stage"`
	StagesCompleted     []PipelineStage        `yaml:"stages_completed"`
	UpdatedAt           time.Time              `yaml:"updated_at"`
	RequestFingerprint  string                 `yaml:"request_fingerprint"`
	AttemptsPerStage    map[PipelineStage]int  `yaml:"attempts_per_stage"`
	SourceURL           string                 `yaml:"source_url,omitempty"`
	MessageText         string                 `yaml:"message_text,omitempty"`
}

// NewRunState creates a fresh RunState for a run that has just started.
func NewRunState(runID RunId, fingerprint string) *RunState {
	return &RunState{
		RunId:              runID,
		CurrentStage:       FirstStage(),
		StagesCompleted:    nil,
		UpdatedAt:          time.Now(),
		RequestFingerprint: fingerprint,
		AttemptsPerStage:   make(map[PipelineStage]int),
	}
}

// HasCompleted reports whether stage is already recorded as completed.
func (s *RunState) HasCompleted(stage PipelineStage) bool {
	for _, st := range s.StagesCompleted {
		if st == stage {
			return true
		}
	}
	return false
}

// MarkCompleted records stage as completed, advances CurrentStage to the
// next stage in sequence (if any), and refreshes UpdatedAt. It is
// idempotent: marking an already-completed stage again is a no-op besides
// the timestamp refresh.
func (s *RunState) MarkCompleted(stage PipelineStage) {
	if !s.HasCompleted(stage) {
		s.StagesCompleted = append(s.StagesCompleted, stage)
	}
	if next, ok := stage.Next(); ok {
		s.CurrentStage = next
	} else {
		s.CurrentStage = stage
	}
	s.UpdatedAt = time.Now()
}

// IncrementAttempt bumps the attempt counter for stage and returns the new
// count.
func (s *RunState) IncrementAttempt(stage PipelineStage) int {
	if s.AttemptsPerStage == nil {
		s.AttemptsPerStage = make(map[PipelineStage]int)
	}
	s.AttemptsPerStage[stage]++
	return s.AttemptsPerStage[stage]
}

// ResetAttempts clears the attempt counter for stage, used when the
// recovery chain starts a fresh invocation of a stage.
func (s *RunState) ResetAttempts(stage PipelineStage) {
	if s.AttemptsPerStage != nil {
		delete(s.AttemptsPerStage, stage)
	}
}

// IsComplete reports whether the run has reached and completed the
// terminal stage.
func (s *RunState) IsComplete() bool {
	return s.HasCompleted(StageDelivery)
}

// FirstIncompleteStage returns the first stage in canonical order that is
// not present in StagesCompleted — the resume point for crash recovery.
func (s *RunState) FirstIncompleteStage() PipelineStage {
	for _, stage := range StageOrder {
		if !s.HasCompleted(stage) {
			return stage
		}
	}
	return StageDelivery
}
