// Package pipeline drives a scene request from arrival to delivery:
// analysis → generation → validation → bounded revision → delivery, with a
// progress event emitted before each stage begins.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ssRhy/LTS/internal/artifact"
	"github.com/ssRhy/LTS/internal/retrieval"
	"github.com/ssRhy/LTS/internal/scene"
	"github.com/ssRhy/LTS/internal/session"
)

// ErrBusy signals that a run is already active for the session. The
// at-most-one in-flight run rule is the only concurrency control guarding
// the session's current-artifact reference.
var ErrBusy = errors.New("pipeline: a run is already active for this session")

const similarExampleCount = 3

// Archiver persists delivered artifacts out of process. Optional and best
// effort.
type Archiver interface {
	Put(ctx context.Context, sessionID, artifactID, code string) error
}

type Config struct {
	// StageTimeout caps each external model call. Zero means no ceiling.
	StageTimeout time.Duration
}

// Pipeline is the workflow orchestrator.
type Pipeline struct {
	generator *scene.Generator
	analyzer  *scene.Analyzer    // nil skips the analysis stage
	retrieval *retrieval.Service // nil disables similarity context
	sessions  *session.Store
	artifacts *artifact.Store
	emitter   Emitter
	archive   Archiver // nil disables archiving
	cfg       Config

	mu     sync.Mutex
	active map[string]struct{}
}

func New(gen *scene.Generator, an *scene.Analyzer, rt *retrieval.Service, sessions *session.Store, artifacts *artifact.Store, emitter Emitter, archive Archiver, cfg Config) *Pipeline {
	return &Pipeline{
		generator: gen,
		analyzer:  an,
		retrieval: rt,
		sessions:  sessions,
		artifacts: artifacts,
		emitter:   emitter,
		archive:   archive,
		cfg:       cfg,
		active:    make(map[string]struct{}),
	}
}

func (p *Pipeline) acquire(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.active[sessionID]; busy {
		return false
	}
	p.active[sessionID] = struct{}{}
	return true
}

func (p *Pipeline) release(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, sessionID)
}

func (p *Pipeline) activeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func (p *Pipeline) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.StageTimeout)
}

func (p *Pipeline) emit(sessionID string, ev Event) {
	if p.emitter != nil {
		p.emitter.Emit(sessionID, ev)
	}
}

// HandlePrompt satisfies the transport's prompt handler contract.
func (p *Pipeline) HandlePrompt(ctx context.Context, req scene.Request) error {
	return p.Run(ctx, req)
}

// Run executes one full pipeline run for the request. Stages run strictly
// sequentially; exactly one history turn is recorded whatever the outcome.
// Returns ErrBusy without side effects when a run is already in flight for
// the session.
func (p *Pipeline) Run(ctx context.Context, req scene.Request) error {
	sessionID := req.SessionID
	if !p.acquire(sessionID) {
		return ErrBusy
	}
	defer p.release(sessionID)

	// ANALYZING: advisory decomposition, skipped silently on failure.
	var requirements []string
	if p.analyzer != nil {
		p.emit(sessionID, Event{Type: EventWorkflowStarted, Stage: StageAnalysis})
		p.emit(sessionID, Event{Type: EventThinking, Message: "analyzing scene request"})
		actx, cancel := p.stageCtx(ctx)
		reqs, err := p.analyzer.Analyze(actx, req.Text)
		cancel()
		if err != nil {
			log.Printf("run %s analysis skipped: %v", req.ID, err)
		} else {
			requirements = reqs
		}
	}

	// GENERATING: gather context, then the first model call.
	p.emit(sessionID, Event{Type: EventWorkflowStarted, Stage: StageGeneration})
	p.emit(sessionID, Event{Type: EventGenerationStarted, Description: req.Text})

	gc := scene.GenContext{
		History:      p.sessions.History(sessionID),
		Requirements: requirements,
	}
	if cur := p.sessions.CurrentArtifactID(sessionID); cur != "" {
		if a, ok := p.artifacts.Get(cur); ok {
			gc.ExistingCode = a.Code
		}
	}
	if p.retrieval != nil {
		rctx, cancel := p.stageCtx(ctx)
		for _, ex := range p.retrieval.Query(rctx, req.Text, similarExampleCount) {
			gc.SimilarExamples = append(gc.SimilarExamples, ex.Code)
		}
		cancel()
	}

	art, err := p.generateAndValidate(ctx, sessionID, req, gc)
	if err != nil {
		return p.fail(sessionID, req, fmt.Sprintf("generation failed: %v", err))
	}

	// REVISING: at most one self-correction pass, bounding latency and cost.
	if !art.Validation.Passed {
		p.emit(sessionID, Event{Type: EventWorkflowStarted, Stage: StageRevision})
		p.emit(sessionID, Event{Type: EventThinking, Message: "revising: " + art.Validation.Message})

		gc.Feedback = art.Validation
		gc.ParentArtifactID = art.ID
		revised, err := p.generateAndValidate(ctx, sessionID, req, gc)
		if err != nil {
			return p.fail(sessionID, req, fmt.Sprintf("revision failed: %v", err))
		}
		if !revised.Validation.Passed {
			return p.fail(sessionID, req, revised.Validation.Message)
		}
		art = revised
	}

	// DELIVERING: validate-before-deliver is normative; the client only
	// ever executes code that passed the structural check.
	p.emit(sessionID, Event{Type: EventWorkflowStarted, Stage: StageDelivery})
	p.emit(sessionID, Event{Type: EventCodeGenerated, Code: art.Code, RequestID: req.ID})
	p.emit(sessionID, Event{Type: EventExecute, Code: art.Code, RequestID: req.ID})

	p.sessions.SetCurrentArtifact(sessionID, art.ID)
	if err := p.sessions.RecordTurn(sessionID, req.Text, "delivered scene code (artifact "+art.ID+")"); err != nil {
		log.Printf("run %s record turn failed: %v", req.ID, err)
	}

	if p.retrieval != nil {
		go p.retrieval.IndexArtifact(context.Background(), req.Text, art.Code)
	}
	if p.archive != nil {
		go func(code string) {
			if err := p.archive.Put(context.Background(), sessionID, art.ID, code); err != nil {
				log.Printf("run %s archive failed: %v", req.ID, err)
			}
		}(art.Code)
	}

	p.emit(sessionID, Event{Type: EventWorkflowCompleted, Result: ResultSuccess})
	return nil
}

// generateAndValidate runs one generator call followed by validation and
// registers the artifact with its result attached.
func (p *Pipeline) generateAndValidate(ctx context.Context, sessionID string, req scene.Request, gc scene.GenContext) (*scene.Artifact, error) {
	gctx, cancel := p.stageCtx(ctx)
	art, err := p.generator.Generate(gctx, req, gc)
	cancel()
	if err != nil {
		return nil, err
	}

	p.emit(sessionID, Event{Type: EventWorkflowStarted, Stage: StageValidation})
	vr := scene.Validate(art.Code)
	if err := p.artifacts.Put(art); err != nil {
		return nil, err
	}
	if err := p.artifacts.AttachValidation(art.ID, vr); err != nil {
		return nil, err
	}
	art.Validation = &vr
	p.emit(sessionID, Event{Type: EventValidationResult, IsValid: boolPtr(vr.Passed), Message: vr.Message})
	return art, nil
}

// fail terminates the run: the failure is surfaced to the client and
// recorded in history so later turns see it; the session's current artifact
// is left untouched.
func (p *Pipeline) fail(sessionID string, req scene.Request, reason string) error {
	if err := p.sessions.RecordTurn(sessionID, req.Text, "failed: "+reason); err != nil {
		log.Printf("run %s record turn failed: %v", req.ID, err)
	}
	p.emit(sessionID, Event{Type: EventError, Message: reason})
	p.emit(sessionID, Event{Type: EventWorkflowCompleted, Result: ResultFailed, Error: reason})
	return errors.New(strings.TrimSpace(reason))
}
