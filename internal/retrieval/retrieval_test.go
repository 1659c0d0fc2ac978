package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssRhy/LTS/internal/llm"
)

func TestIndexThenQueryRanksBySimilarity(t *testing.T) {
	svc, err := New(&llm.FakeEmbedder{Dim: 64}, NewMemoryIndex())
	require.NoError(t, err)

	ctx := context.Background()
	svc.IndexArtifact(ctx, "a red spinning cube", "cube code")
	svc.IndexArtifact(ctx, "a blue sphere with fog", "sphere code")
	svc.IndexArtifact(ctx, "an ocean of waves", "ocean code")

	got := svc.Query(ctx, "a red cube", 1)
	require.Len(t, got, 1)
	require.Equal(t, "cube code", got[0].Code)
}

func TestQueryRespectsK(t *testing.T) {
	svc, err := New(&llm.FakeEmbedder{Dim: 64}, NewMemoryIndex())
	require.NoError(t, err)

	ctx := context.Background()
	for _, p := range []string{"one cube", "two cubes", "three cubes"} {
		svc.IndexArtifact(ctx, p, p+" code")
	}
	require.Len(t, svc.Query(ctx, "cubes", 2), 2)
	require.Len(t, svc.Query(ctx, "cubes", 10), 3)
	require.Nil(t, svc.Query(ctx, "cubes", 0))
}

func TestQueryOnEmptyIndexReturnsNothing(t *testing.T) {
	svc, err := New(&llm.FakeEmbedder{Dim: 64}, NewMemoryIndex())
	require.NoError(t, err)
	require.Empty(t, svc.Query(context.Background(), "anything", 3))
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }
func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func TestEmbedderFailureDegradesToNoExamples(t *testing.T) {
	idx := NewMemoryIndex()
	svc, err := New(failingEmbedder{}, idx)
	require.NoError(t, err)

	ctx := context.Background()
	svc.IndexArtifact(ctx, "a cube", "code") // must not panic or error
	require.Equal(t, 0, idx.Len())
	require.Nil(t, svc.Query(ctx, "a cube", 3))
}

func TestIndexArtifactIgnoresBlankInput(t *testing.T) {
	idx := NewMemoryIndex()
	svc, err := New(&llm.FakeEmbedder{Dim: 64}, idx)
	require.NoError(t, err)

	ctx := context.Background()
	svc.IndexArtifact(ctx, "", "code")
	svc.IndexArtifact(ctx, "prompt", "  ")
	require.Equal(t, 0, idx.Len())
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	require.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}
