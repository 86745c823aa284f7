package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/pipeline"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/qa"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/recovery"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/workspace"
)

type docLoader map[string]string

func (d docLoader) Load(path string) (string, error) { return d[path], nil }

type passDispatch struct{}

func (passDispatch) Dispatch(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return `{"decision":"PASS","score":95,"blockers":[],"prescriptive_fixes":[]}`, nil
}

func buildRunner(t *testing.T) (*Runner, string, *[]string) {
	t.Helper()
	root := t.TempDir()
	runsDir := root + "/runs"
	cp := checkpoint.New(runsDir, nil)
	wm := workspace.New(runsDir, cp)
	bus := eventbus.New(nil)

	var delivered []string
	bus.Subscribe(eventbus.ListenerFunc(func(_ context.Context, e models.PipelineEvent) error {
		delivered = append(delivered, e.Name)
		return nil
	}))

	docs := docLoader{}
	for _, entry := range pipeline.DispatchTable {
		docs[entry.WorkflowDocument] = "workflow"
		docs[entry.AgentDirectory] = "agent"
	}

	dispatch := passDispatch{}
	gate := qa.NewGate(dispatch, dispatch)
	chain := recovery.New(bus, nil, nil)
	sr := pipeline.NewStageRunner(bus, cp, nil, docs, dispatch, gate, chain, time.Minute, 3, nil)

	var deliveredRun models.RunId
	delivery := func(ctx context.Context, h *workspace.Handle, state *models.RunState) error {
		deliveredRun = state.RunId
		return nil
	}

	r := New(wm, pipeline.New(), sr, bus, delivery, nil)
	_ = deliveredRun
	return r, runsDir, &delivered
}

func TestRunnerDrivesRequestToDelivery(t *testing.T) {
	r, _, events := buildRunner(t)
	req := models.Request{RunId: models.NewRunId(), SourceURL: "https://example.com/a"}

	err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, *events, models.EventStageEntered)
	assert.Contains(t, *events, models.EventStageCompleted)
}

func TestRunnerPersistsStateAcrossStages(t *testing.T) {
	r, runsDir, _ := buildRunner(t)
	req := models.Request{RunId: models.NewRunId()}

	require.NoError(t, r.Run(context.Background(), req))

	cp := checkpoint.New(runsDir, nil)
	state, found, err := cp.LoadState(req.RunId)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, state.IsComplete())
}
