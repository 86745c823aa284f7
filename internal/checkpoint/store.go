// Package checkpoint implements the CheckpointStore: durable per-run state
// as a front-matter-style metadata document plus an append-only event
// journal (§4.3).
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

const (
	runMetadataFilename = "run.md"
	eventJournalFilename = "events.log"
)

// Store implements the persistence port named in §6 (StateStorePort):
// save_state, load_state, append_event, list_incomplete_runs.
type Store struct {
	runsRoot string
	atomic   *store.AtomicStore
}

// New creates a Store rooted at runsRoot (typically workspace/runs).
func New(runsRoot string, atomic *store.AtomicStore) *Store {
	if atomic == nil {
		atomic = store.New()
	}
	return &Store{runsRoot: runsRoot, atomic: atomic}
}

func (s *Store) runDir(run models.RunId) string {
	return filepath.Join(s.runsRoot, run.String())
}

func (s *Store) metadataPath(run models.RunId) string {
	return filepath.Join(s.runDir(run), runMetadataFilename)
}

func (s *Store) journalPath(run models.RunId) string {
	return filepath.Join(s.runDir(run), eventJournalFilename)
}

// SaveState persists state as a full-document rewrite via AtomicStore,
// preserving any front-matter keys this binary doesn't recognize and any
// existing body prose.
func (s *Store) SaveState(run models.RunId, state *models.RunState) error {
	path := s.metadataPath(run)

	existing, err := os.ReadFile(path)
	doc := document{meta: map[string]any{}}
	if err == nil {
		doc, _ = parseDocument(existing)
	}

	stateBytes, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}
	var stateMap map[string]any
	if err := yaml.Unmarshal(stateBytes, &stateMap); err != nil {
		return fmt.Errorf("re-decoding run state: %w", err)
	}
	for k, v := range stateMap {
		doc.meta[k] = v
	}

	rendered, err := render(doc)
	if err != nil {
		return err
	}
	return s.atomic.WriteAtomic(path, rendered)
}

// LoadState reads the run-metadata document for run. Reads tolerate
// partial/empty documents by returning found=false rather than an error
// (§4.3).
func (s *Store) LoadState(run models.RunId) (state *models.RunState, found bool, err error) {
	raw, err := os.ReadFile(s.metadataPath(run))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading run state for %s: %w", run, err)
	}

	doc, _ := parseDocument(raw)
	if len(doc.meta) == 0 {
		return nil, false, nil
	}

	metaBytes, err := yaml.Marshal(doc.meta)
	if err != nil {
		return nil, false, fmt.Errorf("re-marshaling front matter: %w", err)
	}
	var rs models.RunState
	if err := yaml.Unmarshal(metaBytes, &rs); err != nil {
		return nil, false, nil
	}
	if rs.RunId == "" {
		return nil, false, nil
	}
	return &rs, true, nil
}

// AppendEvent appends one line to the run's event journal in the format
// mandated by §6.
func (s *Store) AppendEvent(run models.RunId, event models.PipelineEvent) error {
	return s.atomic.AppendLine(s.journalPath(run), []byte(event.JournalLine()))
}

// Receive implements eventbus.Listener, making Store the single journal
// subscriber named in §2/§5: every event published on the bus is appended
// to its run's events.log. Events with no resolvable run_id (daemon-level
// events not scoped to a run) are skipped rather than erroring, since a
// listener failure is otherwise logged and swallowed by the bus anyway.
func (s *Store) Receive(_ context.Context, event models.PipelineEvent) error {
	runID, ok := event.RunID()
	if !ok {
		return nil
	}
	return s.AppendEvent(models.RunId(runID), event)
}

// ListIncompleteRuns scans the runs root and returns the RunState of every
// run whose current stage is not terminal.
func (s *Store) ListIncompleteRuns() ([]*models.RunState, error) {
	entries, err := os.ReadDir(s.runsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning runs root %s: %w", s.runsRoot, err)
	}

	var incomplete []*models.RunState
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		state, found, err := s.LoadState(models.RunId(e.Name()))
		if err != nil || !found {
			continue
		}
		if !state.IsComplete() {
			incomplete = append(incomplete, state)
		}
	}

	sort.Slice(incomplete, func(i, j int) bool {
		return incomplete[i].RunId < incomplete[j].RunId
	})
	return incomplete, nil
}
