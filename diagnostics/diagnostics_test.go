package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	m := New(Counters{
		Descriptors: func() int { return 2 },
		Posts:       func() int { return 5 },
	})
	snap := m.Snapshot()
	assert.Equal(t, 2, snap.Descriptors)
	assert.Equal(t, 5, snap.Posts)
	assert.Equal(t, 0, snap.Peers, "unwired counters default to zero instead of panicking")
}
