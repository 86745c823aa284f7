package qa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

type fakeDispatch struct {
	response string
	err      error
}

func (f *fakeDispatch) Dispatch(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return f.response, f.err
}

func TestCritiquePassThrough(t *testing.T) {
	preferred := &fakeDispatch{response: `{"decision":"PASS","score":90,"blockers":[],"prescriptive_fixes":[]}`}
	g := NewGate(preferred, preferred)

	c, err := g.Critique(context.Background(), "CONTENT", nil, "criteria", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.QAPass, c.Decision)
	assert.Equal(t, 90, c.Score)
}

func TestCritiqueMalformedJSONBecomesSyntheticRework(t *testing.T) {
	preferred := &fakeDispatch{response: "not json", err: nil}
	fallback := &fakeDispatch{response: "still not json", err: nil}
	g := NewGate(preferred, fallback)

	c, err := g.Critique(context.Background(), "CONTENT", nil, "criteria", time.Minute)
	require.Error(t, err, "both preferred and fallback producing non-JSON should raise a dispatch error")
	_ = c
}

func TestCritiqueFallsBackOnTransportError(t *testing.T) {
	preferred := &fakeDispatch{err: errors.New("timeout")}
	fallback := &fakeDispatch{response: `{"decision":"REWORK","score":40,"blockers":["x"],"prescriptive_fixes":["fix x"]}`}
	g := NewGate(preferred, fallback)

	c, err := g.Critique(context.Background(), "CONTENT", nil, "criteria", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.QARework, c.Decision)
}

func TestCritiqueSchemaMismatchBecomesSyntheticRework(t *testing.T) {
	preferred := &fakeDispatch{response: `{"decision":"MAYBE","score":200}`}
	g := NewGate(preferred, preferred)

	c, err := g.Critique(context.Background(), "CONTENT", nil, "criteria", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.QARework, c.Decision)
	assert.Contains(t, c.PrescriptiveFixes, "restate output in the declared schema")
}

func TestDispatchTimeoutUsesFloor(t *testing.T) {
	assert.Equal(t, MinDispatchTimeout, DispatchTimeout(10*time.Second))
	assert.Equal(t, 400*time.Second, DispatchTimeout(800*time.Second))
}
