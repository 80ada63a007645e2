package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/looxidlabs/link-band-core/internal/errs"
)

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "streaming", StateStreaming.String())
}

func TestMarkStreamingRequiresConnected(t *testing.T) {
	tr := New()
	require.ErrorIs(t, tr.MarkStreaming(), errs.ErrInvalidStateTransition)

	tr.setState(StateConnected)
	require.NoError(t, tr.MarkStreaming())
	require.Equal(t, StateStreaming, tr.State())

	require.NoError(t, tr.MarkConnected())
	require.Equal(t, StateConnected, tr.State())
}

func TestScanRejectsNonIdleState(t *testing.T) {
	tr := New()
	tr.setState(StateConnected)

	_, err := tr.Scan(nil, 0) //nolint:staticcheck // state check happens before ctx use
	require.ErrorIs(t, err, errs.ErrInvalidStateTransition)
}
