// Package models defines the data types shared across pipeline components:
// requests, run identifiers, run state, events, QA critiques, recovery
// results, side-generation jobs, and resource snapshots.
package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RunId identifies a single pipeline run. The format is
// YYYYMMDD-HHMMSS-<microseconds>-<random-hex>: collision-resistant,
// lexicographically sortable, and safe to use as a filesystem path
// component or queue-item prefix.
type RunId string

// NewRunId generates a new RunId from the current time.
func NewRunId() RunId {
	return newRunIdAt(time.Now())
}

func newRunIdAt(t time.Time) RunId {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failure on a sane platform is a programmer/environment
		// error, not a recoverable one; fall back to a time-derived value
		// rather than panic so RunId generation never blocks a run.
		for i := range buf {
			buf[i] = byte(t.UnixNano() >> (8 * i))
		}
	}
	return RunId(fmt.Sprintf("%s-%06d-%s",
		t.Format("20060102-150405"),
		t.Nanosecond()/1000,
		hex.EncodeToString(buf[:]),
	))
}

// String returns the RunId as a plain string.
func (r RunId) String() string {
	return string(r)
}

// IsZero reports whether the RunId is unset.
func (r RunId) IsZero() bool {
	return r == ""
}
