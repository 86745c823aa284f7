package adapters

import (
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemDocumentLoader implements pipeline.DocumentLoader by
// reading workflow/agent-definition documents relative to a root
// directory shipped alongside the binary (the dispatch table's
// WorkflowDocument/AgentDirectory entries are filenames, not full
// paths).
type FilesystemDocumentLoader struct {
	root string
}

// NewFilesystemDocumentLoader roots document lookups at root.
func NewFilesystemDocumentLoader(root string) *FilesystemDocumentLoader {
	return &FilesystemDocumentLoader{root: root}
}

// Load reads the file at root/path.
func (l *FilesystemDocumentLoader) Load(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.root, path))
	if err != nil {
		return "", fmt.Errorf("loading document %s: %w", path, err)
	}
	return string(data), nil
}
