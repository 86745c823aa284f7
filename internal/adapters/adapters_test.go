package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func TestLocalDeliveryUploadReturnsFileURL(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o600))

	delivery, err := NewLocalDelivery(t.TempDir())
	require.NoError(t, err)

	url, err := delivery.Upload(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "clip.mp4"))
}

func TestConsoleMessagingAskUserReadsLine(t *testing.T) {
	in := strings.NewReader("yes\n")
	out := &bytes.Buffer{}
	c := NewConsoleMessaging(in, out)

	answer, answered, err := c.AskUser(context.Background(), "continue?", time.Second)
	require.NoError(t, err)
	assert.True(t, answered)
	assert.Equal(t, "yes", answer)
	assert.Contains(t, out.String(), "continue?")
}

func TestConsoleMessagingAskUserTimesOut(t *testing.T) {
	in := strings.NewReader("")
	out := &bytes.Buffer{}
	c := NewConsoleMessaging(in, out)

	_, answered, err := c.AskUser(context.Background(), "continue?", 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, answered)
}

func TestFileInboxReceiveParsesAndRemovesMessages(t *testing.T) {
	dir := t.TempDir()
	raw, err := json.Marshal(inboxMessageFile{MessageID: "m1", SenderID: "trusted", Text: "hi", URL: "https://example.com"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m1.json"), raw, 0o600))

	inbox := NewFileInbox(dir, []string{"trusted"})
	messages, err := inbox.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].MessageID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileInboxAuthenticateSenderRejectsUnknown(t *testing.T) {
	inbox := NewFileInbox(t.TempDir(), []string{"trusted"})
	assert.True(t, inbox.AuthenticateSender("trusted"))
	assert.False(t, inbox.AuthenticateSender("stranger"))
}

func TestFileInboxReceiveOnMissingDirReturnsEmpty(t *testing.T) {
	inbox := NewFileInbox(filepath.Join(t.TempDir(), "missing"), nil)
	messages, err := inbox.Receive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestHTTPVideoGenerationSubmitAndPollJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(submitJobResponse{JobKey: "job-123"})
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/job-123":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(pollJobResponse{Status: string(models.SideGenCompleted)})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPVideoGeneration(server.URL, "secret-key")

	jobKey, err := client.SubmitJob(context.Background(), "idem-1", "a reel about cats")
	require.NoError(t, err)
	assert.Equal(t, "job-123", jobKey)

	status, _, _, err := client.PollJob(context.Background(), jobKey)
	require.NoError(t, err)
	assert.Equal(t, models.SideGenCompleted, status)
}

func TestFilesystemDocumentLoaderReadsRelativeFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "router.workflow.md"), []byte("do the thing"), 0o600))

	loader := NewFilesystemDocumentLoader(root)
	text, err := loader.Load("router.workflow.md")
	require.NoError(t, err)
	assert.Equal(t, "do the thing", text)
}

func TestFilesystemDocumentLoaderReturnsErrorOnMissingFile(t *testing.T) {
	loader := NewFilesystemDocumentLoader(t.TempDir())
	_, err := loader.Load("missing.md")
	assert.Error(t, err)
}

func TestHTTPVideoGenerationDownloadClip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("clip-bytes"))
	}))
	defer server.Close()

	client := NewHTTPVideoGeneration(server.URL, "")
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	require.NoError(t, client.DownloadClip(context.Background(), "job-123", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "clip-bytes", string(data))
}
