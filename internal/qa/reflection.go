// Package qa implements the ReflectionLoop described in §4.7: a single
// structured-critique call over a stage's output artifacts, with a
// dispatch fallback ladder and tolerance for malformed agent output.
package qa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/errs"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
)

// InlineArtifactThreshold is the byte size above which an artifact is
// summarised (path + hash + headline stats) rather than inlined
// verbatim into the critique prompt (§4.7).
const InlineArtifactThreshold = 15000

// MinDispatchTimeout is the floor on the QA dispatch timeout.
const MinDispatchTimeout = 300 * time.Second

// syntheticFix is attached to a malformed-critique REWORK.
const syntheticFix = "restate output in the declared schema"

// Artifact is one output file submitted for critique.
type Artifact struct {
	Path    string
	Content []byte
}

// Gate is the ReflectionLoop: it obtains one structured critique per
// call, falling back from a preferred to a secondary dispatch port on
// transport failure or a response that isn't valid JSON.
type Gate struct {
	preferred ports.AgentDispatchPort
	fallback  ports.AgentDispatchPort
}

// NewGate constructs a Gate. fallback may be the same port as preferred
// if no distinct fallback model is configured.
func NewGate(preferred, fallback ports.AgentDispatchPort) *Gate {
	return &Gate{preferred: preferred, fallback: fallback}
}

// DispatchTimeout computes max(300s, agentTimeout/2) per §4.7.
func DispatchTimeout(agentTimeout time.Duration) time.Duration {
	t := agentTimeout / 2
	if t < MinDispatchTimeout {
		return MinDispatchTimeout
	}
	return t
}

// Critique requests a structured critique of artifacts against
// criteria. On a JSON-schema mismatch it returns a synthetic REWORK
// rather than an error; only exhaustion of the full preferred→fallback
// ladder raises a DispatchError.
func (g *Gate) Critique(ctx context.Context, stage string, artifacts []Artifact, criteria string, agentTimeout time.Duration) (models.QACritique, error) {
	prompt := buildPrompt(stage, artifacts, criteria)
	timeout := DispatchTimeout(agentTimeout)

	text, transportErr := g.preferred.Dispatch(ctx, prompt, timeout)
	valid := transportErr == nil && json.Valid([]byte(text))

	if !valid {
		text, transportErr = g.fallback.Dispatch(ctx, prompt, timeout)
		valid = transportErr == nil && json.Valid([]byte(text))
		if !valid {
			if transportErr == nil {
				transportErr = fmt.Errorf("qa critique response is not valid JSON")
			}
			return models.QACritique{}, errs.NewDispatchError(stage, transportErr)
		}
	}

	critique, err := parseCritique(text)
	if err != nil || !critique.Valid() {
		return syntheticRework(), nil
	}
	return critique, nil
}

func parseCritique(text string) (models.QACritique, error) {
	var c models.QACritique
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return models.QACritique{}, fmt.Errorf("decoding critique: %w", err)
	}
	return c, nil
}

func syntheticRework() models.QACritique {
	return models.QACritique{
		Decision:          models.QARework,
		PrescriptiveFixes: []string{syntheticFix},
	}
}

// buildPrompt assembles the critique prompt, summarising any artifact
// larger than InlineArtifactThreshold instead of inlining it.
func buildPrompt(stage string, artifacts []Artifact, criteria string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage: %s\ncriteria:\n%s\n\nartifacts:\n", stage, criteria)
	for _, a := range artifacts {
		if len(a.Content) > InlineArtifactThreshold {
			sum := sha256.Sum256(a.Content)
			fmt.Fprintf(&b, "- %s (summarised, %d bytes, sha256:%s)\n", a.Path, len(a.Content), hex.EncodeToString(sum[:])[:16])
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", a.Path, string(a.Content))
	}
	return b.String()
}
