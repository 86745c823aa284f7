// Package errs collects the error kinds named in §7 of the pipeline
// design: a flat set of kinds, not a hierarchy, each wrapping an
// underlying cause where one exists.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds usable with errors.Is when no extra context is needed.
var (
	// ErrRecoveryExhausted indicates all four recovery levels failed.
	ErrRecoveryExhausted = errors.New("recovery exhausted: all levels failed")

	// ErrResourceBlocked indicates the throttler cannot admit work before
	// an explicit deadline elapses.
	ErrResourceBlocked = errors.New("resource throttler cannot admit work")

	// ErrQueueLockHeld indicates persistent lock contention on every
	// inbox candidate.
	ErrQueueLockHeld = errors.New("queue: unable to claim, lock contention")
)

// DispatchError indicates an agent or QA invocation failed after the
// fallback model was also exhausted.
type DispatchError struct {
	Stage string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for stage %s: %v", e.Stage, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewDispatchError constructs a DispatchError.
func NewDispatchError(stage string, err error) *DispatchError {
	return &DispatchError{Stage: stage, Err: err}
}

// TransitionError indicates an illegal state-machine edge was attempted.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal stage transition: %s -> %s", e.From, e.To)
}

// NewTransitionError constructs a TransitionError.
func NewTransitionError(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// StateLoadError indicates a corrupt or missing RunState on resume.
type StateLoadError struct {
	RunId string
	Err   error
}

func (e *StateLoadError) Error() string {
	return fmt.Sprintf("loading state for run %s: %v", e.RunId, e.Err)
}

func (e *StateLoadError) Unwrap() error { return e.Err }

// NewStateLoadError constructs a StateLoadError.
func NewStateLoadError(runID string, err error) *StateLoadError {
	return &StateLoadError{RunId: runID, Err: err}
}

// SideGenPermanentFailure indicates a side-generation job classified as
// non-retriable.
type SideGenPermanentFailure struct {
	Variant   string
	ErrorCode string
}

func (e *SideGenPermanentFailure) Error() string {
	return fmt.Sprintf("side-generation %s failed permanently (%s)", e.Variant, e.ErrorCode)
}

// NewSideGenPermanentFailure constructs a SideGenPermanentFailure.
func NewSideGenPermanentFailure(variant, code string) *SideGenPermanentFailure {
	return &SideGenPermanentFailure{Variant: variant, ErrorCode: code}
}

// ConfigurationError indicates a required environment variable or file
// is missing at startup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// NewConfigurationError constructs a ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// UserArgumentError indicates a CLI precondition was violated.
type UserArgumentError struct {
	Message string
}

func (e *UserArgumentError) Error() string { return e.Message }

// NewUserArgumentError constructs a UserArgumentError.
func NewUserArgumentError(message string) *UserArgumentError {
	return &UserArgumentError{Message: message}
}
