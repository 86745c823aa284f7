// Package kb implements ports.KnowledgeBasePort: a key/value store
// backed by a single user-editable YAML file under config/ (§6). Reads
// re-parse the file so external edits are picked up; writes go through
// AtomicStore so a concurrent reader never observes a half-written
// file.
package kb

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

// KnowledgeBase is a YAML-file-backed key/value store.
type KnowledgeBase struct {
	path   string
	atomic *store.AtomicStore
	mu     sync.Mutex
}

// New constructs a KnowledgeBase rooted at path. The file need not
// exist yet; the first Set creates it.
func New(path string, atomic *store.AtomicStore) *KnowledgeBase {
	if atomic == nil {
		atomic = store.New()
	}
	return &KnowledgeBase{path: path, atomic: atomic}
}

func (k *KnowledgeBase) load() (map[string]string, error) {
	raw, err := os.ReadFile(k.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base %s: %w", k.path, err)
	}
	values := map[string]string{}
	if len(raw) == 0 {
		return values, nil
	}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parsing knowledge base %s: %w", k.path, err)
	}
	return values, nil
}

func (k *KnowledgeBase) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling knowledge base: %w", err)
	}
	return k.atomic.WriteAtomic(k.path, data)
}

// Get returns the value for key, or found=false if absent.
func (k *KnowledgeBase) Get(key string) (value string, found bool, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set writes key=value, creating the file if absent.
func (k *KnowledgeBase) Set(key string, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.load()
	if err != nil {
		return err
	}
	values[key] = value
	return k.save(values)
}

// Delete removes key. Deleting an absent key is a no-op.
func (k *KnowledgeBase) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return k.save(values)
}

// Keys returns all keys currently stored, sorted for deterministic
// iteration.
func (k *KnowledgeBase) Keys() ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
