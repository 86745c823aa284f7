package sidegen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

const jobsFilename = "sidegen/jobs.json"

// jobsDocument is the on-disk shape of sidegen/jobs.json (§6).
type jobsDocument struct {
	Jobs []models.SideGenJob `json:"jobs"`
}

// jobsPath returns the sidegen/jobs.json path under a run's workspace
// directory.
func jobsPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, jobsFilename)
}

// loadJobs reads sidegen/jobs.json, returning an empty slice (not an
// error) if the file or its containing sidegen/ directory is absent.
func loadJobs(workspaceDir string) ([]models.SideGenJob, error) {
	raw, err := os.ReadFile(jobsPath(workspaceDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sidegen jobs: %w", err)
	}
	var doc jobsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding sidegen jobs: %w", err)
	}
	return doc.Jobs, nil
}

// saveJobs rewrites sidegen/jobs.json atomically (§4.11: "Every status
// change triggers an atomic rewrite").
func saveJobs(atomic *store.AtomicStore, workspaceDir string, jobs []models.SideGenJob) error {
	raw, err := json.MarshalIndent(jobsDocument{Jobs: jobs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidegen jobs: %w", err)
	}
	return atomic.WriteAtomic(jobsPath(workspaceDir), raw)
}

// sidegenDirExists reports whether workspaceDir/sidegen/ was ever
// created, distinguishing "no side-generation was requested" from "zero
// jobs remain pending" (§4.12 step 2).
func sidegenDirExists(workspaceDir string) bool {
	info, err := os.Stat(filepath.Join(workspaceDir, "sidegen"))
	return err == nil && info.IsDir()
}
