package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return q
}

func TestEnqueueClaimCommitRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	req := models.Request{RunId: models.NewRunId(), SourceURL: "https://example.com/a"}
	require.NoError(t, q.Enqueue(req))

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	claim, ok, err := q.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, req.SourceURL, claim.Item.SourceURL)

	depth, err = q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	require.NoError(t, claim.Commit())

	completed, err := os.ReadDir(filepath.Join(q.root, completedDir))
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestClaimNextReturnsFalseWhenEmpty(t *testing.T) {
	q := newTestQueue(t)
	claim, ok, err := q.ClaimNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, claim)
}

func TestReleaseReturnsItemToInbox(t *testing.T) {
	q := newTestQueue(t)
	require.NoError(t, q.Enqueue(models.Request{RunId: models.NewRunId()}))

	claim, ok, err := q.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, claim.Release())

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestClaimNextClaimsItemsInEnqueueOrder(t *testing.T) {
	q := newTestQueue(t)
	require.NoError(t, q.Enqueue(models.Request{RunId: "first"}))
	require.NoError(t, q.Enqueue(models.Request{RunId: "second"}))

	first, ok, err := q.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunId("first"), first.Item.RunId)

	second, ok, err := q.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunId("second"), second.Item.RunId)

	require.NoError(t, first.Commit())
	require.NoError(t, second.Commit())
}

func TestClaimNextSkipsUnparseableItemAndLeavesItInInbox(t *testing.T) {
	q := newTestQueue(t)
	badPath := filepath.Join(q.root, inboxDir, "20260101000000-bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("not json"), 0o644))
	require.NoError(t, q.Enqueue(models.Request{RunId: "good"}))

	claim, ok, err := q.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunId("good"), claim.Item.RunId)

	_, err = os.Stat(badPath)
	assert.NoError(t, err, "unparseable item must remain in inbox")
}
