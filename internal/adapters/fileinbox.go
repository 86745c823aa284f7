package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
)

// inboxMessageFile is the on-disk shape of one pending message, one
// JSON file per message, dropped by the external messaging collaborator
// into the watched directory.
type inboxMessageFile struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	URL       string `json:"url"`
}

// FileInbox implements ports.InboxPort by draining JSON message files
// from a directory, consistent with the rest of the system's
// file-based external-interface convention (§6).
type FileInbox struct {
	dir            string
	allowedSenders map[string]struct{}
}

// NewFileInbox watches dir for pending message files. allowedSenders
// is the set of sender ids AuthenticateSender accepts; an empty set
// accepts no one.
func NewFileInbox(dir string, allowedSenders []string) *FileInbox {
	allowed := make(map[string]struct{}, len(allowedSenders))
	for _, s := range allowedSenders {
		allowed[s] = struct{}{}
	}
	return &FileInbox{dir: dir, allowedSenders: allowed}
}

// Receive reads every *.json file in the inbox directory, in name
// order, and removes each one after a successful parse so it is not
// redelivered on the next poll. A file that is not valid JSON is removed
// as well and yields no message; a file that cannot be read is left in
// place.
func (f *FileInbox) Receive(_ context.Context) ([]ports.InboxMessage, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	messages := make([]ports.InboxMessage, 0, len(names))
	for _, name := range names {
		path := filepath.Join(f.dir, name)
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}

		var m inboxMessageFile
		if err := json.Unmarshal(raw, &m); err != nil {
			_ = os.Remove(path)
			continue
		}

		messages = append(messages, ports.InboxMessage{
			MessageID: m.MessageID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			URL:       m.URL,
		})
		_ = os.Remove(path)
	}

	return messages, nil
}

// AuthenticateSender reports whether senderID is in the allow-list.
func (f *FileInbox) AuthenticateSender(senderID string) bool {
	_, ok := f.allowedSenders[senderID]
	return ok
}
