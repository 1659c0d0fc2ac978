package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryIsAppendOnly(t *testing.T) {
	s := NewStore()
	const runs = 7
	for i := 0; i < runs; i++ {
		summary := "delivered"
		if i%2 == 1 {
			summary = "failed: missing animate()"
		}
		require.NoError(t, s.RecordTurn("sess-1", fmt.Sprintf("request %d", i), summary))
	}

	hist := s.History("sess-1")
	require.Len(t, hist, runs)
	for i, turn := range hist {
		require.Equal(t, fmt.Sprintf("request %d", i), turn.Input)
	}
}

func TestRecordTurnRequiresSession(t *testing.T) {
	s := NewStore()
	require.Error(t, s.RecordTurn("", "x", "y"))
}

func TestCurrentArtifactLifecycle(t *testing.T) {
	s := NewStore()
	require.Empty(t, s.CurrentArtifactID("sess-1"))

	s.SetCurrentArtifact("sess-1", "art-1")
	require.Equal(t, "art-1", s.CurrentArtifactID("sess-1"))

	s.SetCurrentArtifact("sess-1", "art-2")
	require.Equal(t, "art-2", s.CurrentArtifactID("sess-1"))

	// Sessions are isolated from each other.
	require.Empty(t, s.CurrentArtifactID("sess-2"))
}

func TestGetReturnsSnapshot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.RecordTurn("sess-1", "a cube", "delivered"))

	snap := s.Get("sess-1")
	snap.History[0].Input = "mutated"
	snap.CurrentArtifactID = "art-x"

	require.Equal(t, "a cube", s.History("sess-1")[0].Input)
	require.Empty(t, s.CurrentArtifactID("sess-1"))
}

func TestDrop(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.RecordTurn("sess-1", "a cube", "delivered"))
	s.Drop("sess-1")
	require.Empty(t, s.History("sess-1"))
}
