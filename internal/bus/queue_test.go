package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDropQueueEvictsOldestRawFirst(t *testing.T) {
	q := newDropQueue(2)
	require.True(t, q.push(kindRaw, []byte("raw1")))
	require.True(t, q.push(kindImportant, []byte("evt1")))

	// Queue full (raw1, evt1): a new raw message should evict raw1, not evt1.
	require.True(t, q.push(kindRaw, []byte("raw2")))

	first, ok := q.pop()
	require.True(t, ok)
	require.Equal(t, "evt1", string(first))

	second, ok := q.pop()
	require.True(t, ok)
	require.Equal(t, "raw2", string(second))

	require.Equal(t, uint64(1), q.droppedTotal())
}

func TestDropQueueDropsRawWhenNoRawToEvict(t *testing.T) {
	q := newDropQueue(2)
	require.True(t, q.push(kindImportant, []byte("evt1")))
	require.True(t, q.push(kindImportant, []byte("evt2")))

	// Full of important messages, nothing raw to evict: incoming raw is dropped.
	ok := q.push(kindRaw, []byte("raw1"))
	require.False(t, ok)
	require.Equal(t, 2, q.len())
	require.Equal(t, uint64(1), q.droppedTotal())
}

func TestFullnessTrackerSignalsAfterGracePeriod(t *testing.T) {
	var f fullnessTracker
	base := time.Unix(0, 0)

	require.False(t, f.observe(true, base, 2*time.Second))
	require.False(t, f.observe(true, base.Add(1*time.Second), 2*time.Second))
	require.True(t, f.observe(true, base.Add(3*time.Second), 2*time.Second))

	// Draining resets the clock.
	require.False(t, f.observe(false, base.Add(4*time.Second), 2*time.Second))
}
