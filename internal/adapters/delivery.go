// Package adapters provides the concrete, intentionally narrow
// implementations of the ports declared in internal/ports: the
// messaging channel, its inbox, the file-delivery collaborator, and
// the side-generation provider. spec.md §1 treats each of these as an
// external collaborator reached through an abstract interface; this
// package is one reasonable binding of those interfaces, not a
// full-featured client for any specific third-party service.
package adapters

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/storage"
)

// LocalDelivery implements ports.FileDeliveryPort by publishing
// artifacts into a sandboxed directory and returning a file:// URL.
type LocalDelivery struct {
	sandbox *storage.Sandbox
}

// NewLocalDelivery roots a LocalDelivery at dir, creating it if absent.
func NewLocalDelivery(dir string) (*LocalDelivery, error) {
	sandbox, err := storage.NewSandbox(dir)
	if err != nil {
		return nil, fmt.Errorf("creating delivery sandbox: %w", err)
	}
	return &LocalDelivery{sandbox: sandbox}, nil
}

// Upload publishes path into the delivery sandbox and returns a
// file:// URL to the published copy.
func (d *LocalDelivery) Upload(_ context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if err := d.sandbox.AtomicPublish(path, name); err != nil {
		return "", fmt.Errorf("publishing %s: %w", path, err)
	}
	published, err := d.sandbox.ResolvePath(name)
	if err != nil {
		return "", fmt.Errorf("resolving published path: %w", err)
	}
	return "file://" + published, nil
}
