package models

import (
	"fmt"
	"strings"
)

// SideGenStatus is the lifecycle state of a side-generation job.
type SideGenStatus string

const (
	SideGenPending    SideGenStatus = "PENDING"
	SideGenGenerating SideGenStatus = "GENERATING"
	SideGenCompleted  SideGenStatus = "COMPLETED"
	SideGenFailed     SideGenStatus = "FAILED"
	SideGenTimedOut   SideGenStatus = "TIMED_OUT"
)

// IsTerminal reports whether status requires no further polling.
func (s SideGenStatus) IsTerminal() bool {
	switch s {
	case SideGenCompleted, SideGenFailed, SideGenTimedOut:
		return true
	default:
		return false
	}
}

// SideGenJob is one background video-generation request and its current
// status, persisted in sidegen/jobs.json.
type SideGenJob struct {
	IdempotentKey  string        `json:"idempotent_key"`
	Variant        string        `json:"variant"`
	Status         SideGenStatus `json:"status"`
	VideoPath      *string       `json:"video_path"`
	ErrorMessage   *string       `json:"error_message"`
	ErrorCode      string        `json:"error_code,omitempty"`
	ProviderJobKey string        `json:"provider_job_key,omitempty"`
	RetriedOnce    bool          `json:"retried_once,omitempty"`
	PromptText     string        `json:"prompt_text,omitempty"`
}

// NewIdempotentKey builds the deterministic idempotent key for a run's
// variant: "{RunId}_{variant}" per §3.
func NewIdempotentKey(runID RunId, variant string) string {
	return fmt.Sprintf("%s_%s", runID, variant)
}

// transientErrorCodes are SideGen error codes classified as retriable.
var transientErrorCodes = map[string]bool{
	"submit_failed": true,
	"rate_limited":  true,
	"poll_failed":   true,
}

// permanentErrorCodes are SideGen error codes classified as non-retriable.
var permanentErrorCodes = map[string]bool{
	"download_failed":   true,
	"generation_failed": true,
}

// IsRetriable classifies a failed job's error code per §4.12's
// retriability table: transient errors (submit_failed, rate_limited,
// poll_failed) are retriable; download_failed, generation_failed, and any
// code carrying an "invalid argument" marker are not.
func (j SideGenJob) IsRetriable() bool {
	if permanentErrorCodes[j.ErrorCode] {
		return false
	}
	if containsInvalidArgumentMarker(j.ErrorCode) || (j.ErrorMessage != nil && containsInvalidArgumentMarker(*j.ErrorMessage)) {
		return false
	}
	return transientErrorCodes[j.ErrorCode]
}

func containsInvalidArgumentMarker(s string) bool {
	return strings.Contains(strings.ToLower(s), "invalid argument")
}
