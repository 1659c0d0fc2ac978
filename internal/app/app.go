// Package app wires the gateway: config, model clients, stores, the
// pipeline, and the transport.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/ssRhy/LTS/internal/artifact"
	"github.com/ssRhy/LTS/internal/config"
	"github.com/ssRhy/LTS/internal/llm"
	"github.com/ssRhy/LTS/internal/pipeline"
	"github.com/ssRhy/LTS/internal/retrieval"
	"github.com/ssRhy/LTS/internal/scene"
	"github.com/ssRhy/LTS/internal/server"
	"github.com/ssRhy/LTS/internal/session"
	"github.com/ssRhy/LTS/internal/ws"
)

type App struct {
	server *server.Server
	hub    *ws.Hub
	llm    llm.Client
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Model clients. Without an API key the gateway runs on the fake client
	// so local development works offline.
	var client llm.Client
	var embedder llm.Embedder
	if cfg.LLM.APIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			EmbedModel: cfg.LLM.EmbedModel,
			RPS:        cfg.LLM.RPS,
			Burst:      cfg.LLM.Burst,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		client = gemini
		embedder = gemini
	} else {
		log.Printf("GEMINI_API_KEY is not set, using the offline fake model")
		client = llm.NewFakeClient()
		embedder = &llm.FakeEmbedder{Dim: cfg.Retrieval.Dim}
	}

	retrievalSvc, err := retrieval.NewFromEnv(embedder, cfg.Retrieval.PGDSN, cfg.Retrieval.Dim)
	if err != nil {
		return nil, fmt.Errorf("init retrieval: %w", err)
	}

	var archive pipeline.Archiver
	if cfg.Artifact.Enabled {
		s3, err := artifact.NewS3Archive(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Printf("artifact archive disabled: %v", err)
		} else {
			archive = s3
		}
	}

	sessions := session.NewStore()
	artifacts := artifact.NewStore()

	hub := ws.NewHub(nil)
	pipe := pipeline.New(
		scene.NewGenerator(client),
		scene.NewAnalyzer(client),
		retrievalSvc,
		sessions,
		artifacts,
		ws.NewAdapter(hub),
		archive,
		pipeline.Config{StageTimeout: cfg.StageTimeout},
	)
	hub.SetHandler(pipe)

	mux := server.NewMux(hub, cfg.PublicWSURL)
	srv := server.New(cfg.Port, mux)

	return &App{server: srv, hub: hub, llm: client}, nil
}

func (a *App) Start() error {
	a.hub.Start()
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.hub.Stop()
	if err := a.llm.Close(); err != nil {
		log.Printf("close llm client: %v", err)
	}
	return a.server.Shutdown(ctx)
}
