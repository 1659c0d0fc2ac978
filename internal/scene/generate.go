package scene

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ssRhy/LTS/internal/llm"
)

// Generator wraps the opaque model call with the scene prompt contract.
// It holds no cache; reuse of past work happens only through the similarity
// retrieval collaborator feeding GenContext.SimilarExamples.
type Generator struct {
	llm llm.Client
}

func NewGenerator(c llm.Client) *Generator {
	return &Generator{llm: c}
}

// Generate produces a new candidate artifact for the request. On any model
// failure it returns an error and no artifact, never a partial one.
func (g *Generator) Generate(ctx context.Context, req Request, gc GenContext) (*Artifact, error) {
	prompt := buildGenerationPrompt(req.Text, gc)
	out, err := g.llm.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate scene code: %w", err)
	}
	code := stripCodeFence(out)
	if code == "" {
		return nil, fmt.Errorf("generate scene code: %w", llm.ErrEmptyResponse)
	}
	return &Artifact{
		ID:              uuid.NewString(),
		Code:            code,
		SourceRequestID: req.ID,
		ParentID:        gc.ParentArtifactID,
		CreatedAt:       time.Now(),
	}, nil
}

// Analyzer decomposes a request into sub-requirements. Purely advisory:
// callers skip the stage on any error.
type Analyzer struct {
	llm llm.Client
}

func NewAnalyzer(c llm.Client) *Analyzer {
	return &Analyzer{llm: c}
}

func (a *Analyzer) Analyze(ctx context.Context, requestText string) ([]string, error) {
	out, err := a.llm.GenerateText(ctx, buildAnalysisPrompt(requestText))
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	var reqs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			reqs = append(reqs, line)
		}
	}
	return reqs, nil
}
