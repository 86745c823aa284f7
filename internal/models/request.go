package models

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Directives carries optional user-supplied overrides for a run.
type Directives struct {
	TargetDurationS *int    `json:"target_duration_s,omitempty"`
	SegmentCount    *int    `json:"segment_count,omitempty"`
	ResumePath      string  `json:"resume_path,omitempty"`
	StartStage      *int    `json:"start_stage,omitempty"`
	AdvisoryInputs  []string `json:"advisory_inputs,omitempty"`
}

// Request identifies a job submitted through the messaging channel or CLI.
type Request struct {
	RunId       RunId      `json:"run_id"`
	SubmittedAt string     `json:"submitted_at"`
	SourceURL   string     `json:"source_url"`
	MessageText string     `json:"message_text"`
	Directives  Directives `json:"directives"`
}

// Fingerprint computes a stable hash of the request's normalized content,
// used by crash recovery and duplicate-submission detection to compare
// requests without re-parsing directives. It deliberately excludes RunId
// and SubmittedAt so that two logically identical submissions hash equal.
func (r Request) Fingerprint() string {
	normalized := struct {
		SourceURL   string     `json:"source_url"`
		MessageText string     `json:"message_text"`
		Directives  Directives `json:"directives"`
	}{r.SourceURL, r.MessageText, r.Directives}

	b, err := json.Marshal(normalized)
	if err != nil {
		// Marshaling a plain struct of strings/ints cannot fail; this
		// branch exists only to satisfy the error-returning contract of
		// json.Marshal without panicking on an unexpected future field.
		return ""
	}

	h := fnv.New64a()
	_, _ = h.Write(b)
	return fmt.Sprintf("%016x", h.Sum64())
}
