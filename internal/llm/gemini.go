package llm

import (
	"context"
	"log"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli        *genai.Client
	model      string
	embedModel string
	rl         *rpsLimiter
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
	// RPS/Burst throttle outgoing model calls; zero disables the limiter.
	RPS   float64
	Burst int
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:        cli,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		rl:         newRPSLimiter(cfg.RPS, cfg.Burst),
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error {
	if g.rl != nil {
		g.rl.Stop()
	}
	return nil
}

// GenerateText sends the prompt and returns the model's raw text output.
// Transient failures are retried with exponential backoff; each attempt
// consumes a limiter token.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	log.Printf("LLM request (%s): %d bytes", g.model, len(prompt))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := g.rl.Acquire(ctx); err != nil {
			lastErr = err
			break
		}
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			nil,
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrEmptyResponse
		} else {
			txt := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
			if txt == "" {
				lastErr = ErrEmptyResponse
			} else {
				return txt, nil
			}
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return "", lastErr
}

// Embed returns the embedding vector for text using the configured embedding
// model. Not retried: embedding is advisory and callers degrade on failure.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := g.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := g.cli.Models.EmbedContent(ctx, g.embedModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}
