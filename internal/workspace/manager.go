// Package workspace implements the WorkspaceManager described in §4.5:
// a thin directory-and-state handle per run, layered on top of the
// checkpoint store rather than mediating file writes itself.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

// Manager roots every run's working directory under runsDir
// (workspace/runs/<run_id>/ in the default layout).
type Manager struct {
	runsDir    string
	checkpoint *checkpoint.Store
}

// New creates a Manager. cp is the checkpoint store used to persist the
// final RunState when a handle is released.
func New(runsDir string, cp *checkpoint.Store) *Manager {
	return &Manager{runsDir: runsDir, checkpoint: cp}
}

// Handle is a scoped reference to one run's workspace directory. It
// exposes path helpers but never mediates file writes itself (§4.5) —
// callers write artifacts directly under Dir().
type Handle struct {
	m     *Manager
	runID models.RunId
	State *models.RunState
}

// Acquire creates workspace/runs/<run_id>/ if absent and returns a
// handle carrying the run's current (or freshly minted) RunState.
func (m *Manager) Acquire(runID models.RunId, fingerprint string) (*Handle, error) {
	dir := filepath.Join(m.runsDir, runID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace for run %s: %w", runID, err)
	}

	state, found, err := m.checkpoint.LoadState(runID)
	if err != nil {
		return nil, fmt.Errorf("loading run state for %s: %w", runID, err)
	}
	if !found {
		state = models.NewRunState(runID, fingerprint)
	}

	return &Handle{m: m, runID: runID, State: state}, nil
}

// Dir returns the run's workspace directory.
func (h *Handle) Dir() string {
	return filepath.Join(h.m.runsDir, h.runID.String())
}

// Path joins elem onto the run's workspace directory.
func (h *Handle) Path(elem ...string) string {
	parts := append([]string{h.Dir()}, elem...)
	return filepath.Join(parts...)
}

// Release persists the handle's current RunState. Callers defer this on
// scope exit (§4.5: "on scope exit writes the final RunState").
func (h *Handle) Release() error {
	return h.m.checkpoint.SaveState(h.runID, h.State)
}

// ListWorkspaces enumerates existing run directories under the runs
// root, sorted ascending.
func (m *Manager) ListWorkspaces() ([]models.RunId, error) {
	entries, err := os.ReadDir(m.runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning workspace root %s: %w", m.runsDir, err)
	}

	var runs []models.RunId
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, models.RunId(e.Name()))
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i] < runs[j] })
	return runs, nil
}
