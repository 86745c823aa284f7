// Package queue implements the directory-backed FIFO described in §4.4:
// three sibling directories (inbox, processing, completed) under a
// configurable root, with single-claim semantics enforced by an
// advisory file lock rather than by any in-memory coordination.
package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

const lockSuffix = ".lock"

const (
	inboxDir     = "inbox"
	processingDir = "processing"
	completedDir = "completed"
)

// Queue is a FIFO mailbox rooted at a directory. The zero value is not
// usable; construct with New.
type Queue struct {
	root   string
	atomic *store.AtomicStore
}

// New creates a Queue rooted at root, creating its three subdirectories
// if absent.
func New(root string, atomic *store.AtomicStore) (*Queue, error) {
	if atomic == nil {
		atomic = store.New()
	}
	for _, sub := range []string{inboxDir, processingDir, completedDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating queue directory %s: %w", sub, err)
		}
	}
	return &Queue{root: root, atomic: atomic}, nil
}

// Enqueue writes req to the inbox as a new JSON document named
// <timestamp>-<uuid>.json (§4.4: "prevents same-millisecond
// collisions").
func (q *Queue) Enqueue(req models.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling queue item: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", time.Now().UTC().Format("20060102150405.000000000"), uuid.NewString())
	return q.atomic.WriteAtomic(filepath.Join(q.root, inboxDir, name), payload)
}

// Claim is a handle on a single item moved out of inbox into processing.
// Exactly one of Commit or Release must be called to resolve it.
type Claim struct {
	q        *Queue
	filename string
	lock     *fileLock
	Item     models.Request
}

// Commit moves the claimed item into completed and releases its lock
// (§4.4 step 3).
func (c *Claim) Commit() error {
	defer c.lock.release()
	src := filepath.Join(c.q.root, processingDir, c.filename)
	dst := filepath.Join(c.q.root, completedDir, c.filename)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("committing queue item %s: %w", c.filename, err)
	}
	return nil
}

// Release returns the claimed item to inbox, for retry by a future
// claim_next call (§4.4 step 3).
func (c *Claim) Release() error {
	defer c.lock.release()
	src := filepath.Join(c.q.root, processingDir, c.filename)
	dst := filepath.Join(c.q.root, inboxDir, c.filename)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("releasing queue item %s: %w", c.filename, err)
	}
	return nil
}

// ClaimNext implements the consumer side of §4.4: scan inbox in
// lexicographic (time-monotonic) order, attempt an exclusive
// non-blocking lock per candidate, and on success move it into
// processing. Returns (nil, false, nil) when inbox is empty or every
// candidate is currently locked by another process.
func (q *Queue) ClaimNext() (*Claim, bool, error) {
	entries, err := os.ReadDir(filepath.Join(q.root, inboxDir))
	if err != nil {
		return nil, false, fmt.Errorf("scanning inbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		lockPath := filepath.Join(q.root, inboxDir, name+lockSuffix)
		lock, err := tryLockFile(lockPath)
		if err != nil {
			if err == errLockHeld {
				// Move to the next candidate (§4.4 step 4). A single
				// contended item is not an error; callers that need to
				// detect persistent contention across many poll cycles
				// do so themselves.
				continue
			}
			return nil, false, err
		}

		src := filepath.Join(q.root, inboxDir, name)
		raw, err := os.ReadFile(src)
		if err != nil {
			lock.release()
			return nil, false, fmt.Errorf("reading queue item %s: %w", name, err)
		}

		var req models.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			// Unparseable items remain in inbox with a log entry; they
			// are never silently dropped (§4.4).
			slog.Warn("skipping unparseable queue item", slog.String("item", name), slog.Any("error", err))
			lock.release()
			continue
		}

		dst := filepath.Join(q.root, processingDir, name)
		if err := os.Rename(src, dst); err != nil {
			lock.release()
			return nil, false, fmt.Errorf("moving queue item %s to processing: %w", name, err)
		}

		return &Claim{q: q, filename: name, lock: lock, Item: req}, true, nil
	}

	return nil, false, nil
}

// Depth returns the number of items currently waiting in inbox.
func (q *Queue) Depth() (int, error) {
	entries, err := os.ReadDir(filepath.Join(q.root, inboxDir))
	if err != nil {
		return 0, fmt.Errorf("scanning inbox: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}
