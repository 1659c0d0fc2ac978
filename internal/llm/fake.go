package llm

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// FakeClient returns scripted responses for offline use and testing. Each
// GenerateText call consumes the next scripted response; when the script is
// exhausted it falls back to a minimal valid scene so the gateway stays
// usable without an API key.
type FakeClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{responses: responses}
}

const fakeSceneCode = `const scene = new THREE.Scene();
const camera = new THREE.PerspectiveCamera(75, window.innerWidth / window.innerHeight, 0.1, 1000);
camera.position.z = 5;
const renderer = new THREE.WebGLRenderer({ antialias: true });
renderer.setSize(window.innerWidth, window.innerHeight);
const geometry = new THREE.BoxGeometry(1, 1, 1);
const material = new THREE.MeshStandardMaterial({ color: 0xff0000 });
const cube = new THREE.Mesh(geometry, material);
scene.add(cube);
const light = new THREE.DirectionalLight(0xffffff, 1);
light.position.set(2, 2, 2);
scene.add(light);
function animate() {
  requestAnimationFrame(animate);
  cube.rotation.x += 0.01;
  cube.rotation.y += 0.01;
  renderer.render(scene, camera);
}
animate();`

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many times GenerateText has been invoked.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return fakeSceneCode, nil
}

// FakeEmbedder produces a deterministic pseudo-embedding from term hashes so
// retrieval tests can rank without a network call.
type FakeEmbedder struct {
	Dim int
}

func (f *FakeEmbedder) Name() string { return "FakeEmbedder" }

func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := f.Dim
	if dim <= 0 {
		dim = 64
	}
	vec := make([]float32, dim)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		vec[int(h.Sum32())%dim]++
	}
	return vec, nil
}
