package agentdispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchReturnsTrimmedStdout(t *testing.T) {
	d := New("/bin/cat")
	out, err := d.Dispatch(context.Background(), "hello\n", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestDispatchSurfacesNonZeroExit(t *testing.T) {
	d := New("/bin/false")
	_, err := d.Dispatch(context.Background(), "", time.Second)
	assert.Error(t, err)
}

func TestDispatchTimesOutOnSlowProcess(t *testing.T) {
	d := New("/bin/sleep", "5")
	_, err := d.Dispatch(context.Background(), "", 10*time.Millisecond)
	assert.Error(t, err)
}

func TestTruncateBoundsLength(t *testing.T) {
	s := ""
	for i := 0; i < 3000; i++ {
		s += "y"
	}
	assert.Len(t, truncate(s, 2000), 2000)
}
