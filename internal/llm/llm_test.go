package llm

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFakeClientScriptedResponses(t *testing.T) {
	f := NewFakeClient("first", "second")
	ctx := context.Background()

	for i, want := range []string{"first", "second"} {
		got, err := f.GenerateText(ctx, "prompt")
		if err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
		if got != want {
			t.Fatalf("call %d = %q, want %q", i, got, want)
		}
	}

	// Exhausted scripts fall back to a structurally valid scene.
	got, err := f.GenerateText(ctx, "prompt")
	if err != nil {
		t.Fatalf("fallback call error = %v", err)
	}
	for _, marker := range []string{"THREE.Scene", "WebGLRenderer", "function animate", "requestAnimationFrame"} {
		if !strings.Contains(got, marker) {
			t.Fatalf("fallback scene missing %s", marker)
		}
	}
	if f.Calls() != 3 {
		t.Fatalf("Calls() = %d, want 3", f.Calls())
	}
}

func TestFakeClientHonorsContext(t *testing.T) {
	f := NewFakeClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.GenerateText(ctx, "prompt"); err == nil {
		t.Fatalf("canceled context did not fail")
	}
}

func TestFakeEmbedderIsDeterministic(t *testing.T) {
	e := &FakeEmbedder{Dim: 32}
	a, err := e.Embed(context.Background(), "a red cube")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, _ := e.Embed(context.Background(), "a red cube")
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("vector dims = %d/%d, want 32", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
}

func TestRPSLimiterDisabled(t *testing.T) {
	var l *rpsLimiter
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("nil limiter Acquire() error = %v", err)
	}
}

func TestRPSLimiterBlocksAndCancels(t *testing.T) {
	l := newRPSLimiter(0.1, 1) // one immediate token, then ~10s refill
	defer l.Stop()

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("burst Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatalf("second Acquire() did not block until cancellation")
	}
}
