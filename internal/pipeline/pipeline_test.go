package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ssRhy/LTS/internal/artifact"
	"github.com/ssRhy/LTS/internal/llm"
	"github.com/ssRhy/LTS/internal/scene"
	"github.com/ssRhy/LTS/internal/session"
)

const goodCode = `const scene = new THREE.Scene();
const camera = new THREE.PerspectiveCamera(75, 1, 0.1, 1000);
const renderer = new THREE.WebGLRenderer();
function animate() {
  requestAnimationFrame(animate);
  renderer.render(scene, camera);
}
animate();`

// badCode is structurally valid except for the animation loop definition.
const badCode = `const scene = new THREE.Scene();
const camera = new THREE.PerspectiveCamera();
const renderer = new THREE.WebGLRenderer();
requestAnimationFrame(() => renderer.render(scene, camera));`

type recordEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordEmitter) Emit(_ string, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordEmitter) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordEmitter) types() []string {
	var out []string
	for _, ev := range r.all() {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordEmitter) last(eventType string) (Event, bool) {
	evs := r.all()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == eventType {
			return evs[i], true
		}
	}
	return Event{}, false
}

type testEnv struct {
	pipe      *Pipeline
	fake      *llm.FakeClient
	sessions  *session.Store
	artifacts *artifact.Store
	emitter   *recordEmitter
}

func newTestEnv(responses ...string) *testEnv {
	fake := llm.NewFakeClient(responses...)
	sessions := session.NewStore()
	artifacts := artifact.NewStore()
	emitter := &recordEmitter{}
	pipe := New(scene.NewGenerator(fake), nil, nil, sessions, artifacts, emitter, nil, Config{StageTimeout: time.Second})
	return &testEnv{pipe: pipe, fake: fake, sessions: sessions, artifacts: artifacts, emitter: emitter}
}

func request(id, text string) scene.Request {
	return scene.Request{ID: id, SessionID: "sess-1", Text: text, ReceivedAt: time.Now()}
}

func TestRunHappyPathEventSequence(t *testing.T) {
	env := newTestEnv(goodCode)

	if err := env.pipe.Run(context.Background(), request("req-1", "a red cube")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		EventWorkflowStarted,   // generation
		EventGenerationStarted,
		EventWorkflowStarted,   // validation
		EventValidationResult,
		EventWorkflowStarted,   // delivery
		EventCodeGenerated,
		EventExecute,
		EventWorkflowCompleted,
	}
	got := env.emitter.types()
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}

	evs := env.emitter.all()
	if evs[0].Stage != StageGeneration {
		t.Fatalf("first stage = %q, want %q", evs[0].Stage, StageGeneration)
	}
	vr, _ := env.emitter.last(EventValidationResult)
	if vr.IsValid == nil || !*vr.IsValid {
		t.Fatalf("validation_result isValid = %v, want true", vr.IsValid)
	}
	done, _ := env.emitter.last(EventWorkflowCompleted)
	if done.Result != ResultSuccess {
		t.Fatalf("workflow_completed result = %q", done.Result)
	}

	exec, _ := env.emitter.last(EventExecute)
	if exec.RequestID != "req-1" || !strings.Contains(exec.Code, "THREE.Scene") {
		t.Fatalf("execute event = %+v", exec)
	}

	artID := env.sessions.CurrentArtifactID("sess-1")
	if artID == "" {
		t.Fatalf("current artifact not set after success")
	}
	art, ok := env.artifacts.Get(artID)
	if !ok || art.Code != exec.Code {
		t.Fatalf("current artifact does not match delivered code")
	}
}

func TestRunRevisionRecovers(t *testing.T) {
	env := newTestEnv(badCode, goodCode)

	if err := env.pipe.Run(context.Background(), request("req-1", "a red cube")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls := env.fake.Calls(); calls != 2 {
		t.Fatalf("generator calls = %d, want 2", calls)
	}

	done, _ := env.emitter.last(EventWorkflowCompleted)
	if done.Result != ResultSuccess {
		t.Fatalf("workflow_completed result = %q, want success", done.Result)
	}

	// The revision supersedes its parent in the audit chain.
	artID := env.sessions.CurrentArtifactID("sess-1")
	chain := env.artifacts.Chain(artID)
	if len(chain) != 2 {
		t.Fatalf("revision chain length = %d, want 2", len(chain))
	}
	if chain[1].Validation == nil || chain[1].Validation.Passed {
		t.Fatalf("parent artifact should carry the failed validation")
	}
}

func TestRunBoundedRetryThenFailed(t *testing.T) {
	env := newTestEnv(badCode, badCode)

	err := env.pipe.Run(context.Background(), request("req-1", "a red cube"))
	if err == nil {
		t.Fatalf("Run() did not fail")
	}
	if calls := env.fake.Calls(); calls != 2 {
		t.Fatalf("generator calls = %d, want exactly 2", calls)
	}

	done, _ := env.emitter.last(EventWorkflowCompleted)
	if done.Result != ResultFailed {
		t.Fatalf("workflow_completed result = %q, want failed", done.Result)
	}
	if !strings.Contains(done.Error, "animate()") {
		t.Fatalf("terminal error %q does not name the missing element", done.Error)
	}
}

func TestFailedRunLeavesCurrentArtifactUntouched(t *testing.T) {
	env := newTestEnv(goodCode, badCode, badCode)

	if err := env.pipe.Run(context.Background(), request("req-1", "a red cube")); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	delivered := env.sessions.CurrentArtifactID("sess-1")

	if err := env.pipe.Run(context.Background(), request("req-2", "now break it")); err == nil {
		t.Fatalf("second Run() did not fail")
	}
	if got := env.sessions.CurrentArtifactID("sess-1"); got != delivered {
		t.Fatalf("failed run moved current artifact from %s to %s", delivered, got)
	}
}

func TestHistoryRecordsEveryRunOnce(t *testing.T) {
	env := newTestEnv(goodCode, badCode, badCode, goodCode)

	_ = env.pipe.Run(context.Background(), request("req-1", "a cube"))       // success
	_ = env.pipe.Run(context.Background(), request("req-2", "a bad cube"))   // failed
	_ = env.pipe.Run(context.Background(), request("req-3", "another cube")) // success

	hist := env.sessions.History("sess-1")
	if len(hist) != 3 {
		t.Fatalf("history length = %d, want 3", len(hist))
	}
	if !strings.Contains(hist[1].Summary, "failed") {
		t.Fatalf("failed run summary = %q", hist[1].Summary)
	}
}

func TestSecondTurnExtendsCurrentScene(t *testing.T) {
	env := newTestEnv(goodCode, goodCode+"\n// extended")

	if err := env.pipe.Run(context.Background(), request("req-1", "a cube")); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := env.pipe.Run(context.Background(), request("req-2", "add a sphere")); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	// Two delivered artifacts, the newer one current.
	if env.artifacts.Len() != 2 {
		t.Fatalf("artifact count = %d, want 2", env.artifacts.Len())
	}
	art, _ := env.artifacts.Get(env.sessions.CurrentArtifactID("sess-1"))
	if !strings.Contains(art.Code, "extended") {
		t.Fatalf("current artifact is not the second delivery")
	}
}

type blockingClient struct {
	release chan struct{}
}

func (b *blockingClient) Name() string { return "blocking" }
func (b *blockingClient) Close() error { return nil }
func (b *blockingClient) GenerateText(ctx context.Context, _ string) (string, error) {
	select {
	case <-b.release:
		return goodCode, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestAtMostOneRunPerSession(t *testing.T) {
	blocking := &blockingClient{release: make(chan struct{})}
	sessions := session.NewStore()
	artifacts := artifact.NewStore()
	emitter := &recordEmitter{}
	pipe := New(scene.NewGenerator(blocking), nil, nil, sessions, artifacts, emitter, nil, Config{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- pipe.Run(context.Background(), request("req-1", "a cube"))
	}()

	// Wait for the first run to occupy the session.
	deadline := time.Now().Add(time.Second)
	for pipe.activeCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first run never became active")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := pipe.Run(context.Background(), request("req-2", "another cube")); !errors.Is(err, ErrBusy) {
		t.Fatalf("concurrent Run() error = %v, want ErrBusy", err)
	}

	close(blocking.release)
	if err := <-errCh; err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// The slot is free again after completion.
	if err := pipe.Run(context.Background(), request("req-3", "third cube")); err != nil {
		t.Fatalf("Run() after release error = %v", err)
	}
}

func TestAnalysisStagePrecedesGeneration(t *testing.T) {
	// The analyzer shares the fake client, so scripted responses
	// interleave: analyze first, then generate.
	fake := llm.NewFakeClient("- a cube", goodCode)
	sessions := session.NewStore()
	artifacts := artifact.NewStore()
	emitter := &recordEmitter{}
	pipe := New(scene.NewGenerator(fake), scene.NewAnalyzer(fake), nil, sessions, artifacts, emitter, nil, Config{})

	if err := pipe.Run(context.Background(), request("req-1", "a cube")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	first := emitter.all()[0]
	if first.Type != EventWorkflowStarted || first.Stage != StageAnalysis {
		t.Fatalf("first event = %+v, want workflow_started/analysis", first)
	}
}
