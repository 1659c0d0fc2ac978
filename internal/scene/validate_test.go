package scene

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const fullScene = `const scene = new THREE.Scene();
const camera = new THREE.PerspectiveCamera(75, 1, 0.1, 1000);
const renderer = new THREE.WebGLRenderer();
function animate() {
  requestAnimationFrame(animate);
  renderer.render(scene, camera);
}
animate();`

func TestValidateEmptyCodeMissesEverything(t *testing.T) {
	vr := Validate("")
	require.False(t, vr.Passed)
	require.Equal(t, []string{"THREE.Scene", "Camera", "WebGLRenderer", "animate()", "requestAnimationFrame"}, vr.MissingElements)
	require.NotEmpty(t, vr.Message)
}

func TestValidateFullScenePasses(t *testing.T) {
	vr := Validate(fullScene)
	require.True(t, vr.Passed)
	require.Empty(t, vr.MissingElements)
	require.Equal(t, validMessage, vr.Message)
}

func TestValidateReportsMissingAnimateLoop(t *testing.T) {
	code := `const scene = new THREE.Scene();
const camera = new THREE.PerspectiveCamera();
const renderer = new THREE.WebGLRenderer();
requestAnimationFrame(() => renderer.render(scene, camera));`
	vr := Validate(code)
	require.False(t, vr.Passed)
	require.Equal(t, []string{"animate()"}, vr.MissingElements)
	require.Contains(t, vr.Message, "animate()")
}

func TestValidateIsDeterministic(t *testing.T) {
	inputs := []string{"", fullScene, "garbage \x00\xff not even code", "requestAnimationFrame"}
	for _, in := range inputs {
		first := Validate(in)
		for i := 0; i < 5; i++ {
			require.Equal(t, first, Validate(in))
		}
	}
}

func TestValidateToleratesHugeInput(t *testing.T) {
	big := make([]byte, 1<<20)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	vr := Validate(string(big))
	require.False(t, vr.Passed)
	require.Len(t, vr.MissingElements, 5)
}

func TestRequiredElementsOrder(t *testing.T) {
	require.Equal(t, []string{"THREE.Scene", "Camera", "WebGLRenderer", "animate()", "requestAnimationFrame"}, RequiredElements())
}
