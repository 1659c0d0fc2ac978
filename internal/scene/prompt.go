package scene

import (
	"strings"

	"github.com/ssRhy/LTS/internal/session"
)

// GenContext carries everything the generator may fold into the prompt
// besides the request text itself. All fields are optional.
type GenContext struct {
	History         []session.Turn
	ExistingCode    string
	SimilarExamples []string
	Requirements    []string
	Feedback        *ValidationResult
	// ParentArtifactID marks the artifact a revision supersedes.
	ParentArtifactID string
}

const generationPreamble = `You are a Three.js scene code generator.
Produce complete, runnable JavaScript for a browser that already has the THREE global available.`

var generationConstraints = []string{
	"Create a THREE.Scene.",
	"Create a camera (PerspectiveCamera unless the request demands otherwise).",
	"Create a THREE.WebGLRenderer and size it to the window.",
	"Define an animation loop named animate() that calls requestAnimationFrame.",
	"Call animate() once at the end.",
	"Add lighting whenever meshes use materials that need it.",
	"Output JavaScript only. No markdown, no explanations.",
}

// buildGenerationPrompt assembles the prompt deterministically from the
// request and context. Section order is fixed so identical inputs always
// produce identical prompts.
func buildGenerationPrompt(requestText string, gc GenContext) string {
	var b strings.Builder
	b.WriteString(generationPreamble)
	b.WriteString("\n\n[CONSTRAINTS]\n")
	for _, c := range generationConstraints {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}

	if len(gc.History) > 0 {
		b.WriteString("\n[CONVERSATION HISTORY]\n")
		for _, t := range gc.History {
			b.WriteString("user: ")
			b.WriteString(t.Input)
			b.WriteString("\noutcome: ")
			b.WriteString(t.Summary)
			b.WriteString("\n")
		}
	}

	if len(gc.SimilarExamples) > 0 {
		b.WriteString("\n[SIMILAR PAST SCENES]\n")
		for _, ex := range gc.SimilarExamples {
			b.WriteString(ex)
			b.WriteString("\n---\n")
		}
	}

	if len(gc.Requirements) > 0 {
		b.WriteString("\n[REQUIREMENTS]\n")
		for _, r := range gc.Requirements {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	if gc.ExistingCode != "" {
		// The extend instruction is what makes iterative scene building
		// work: without it each turn silently discards prior scene state.
		b.WriteString("\n[CURRENT SCENE CODE]\n")
		b.WriteString(gc.ExistingCode)
		b.WriteString("\nEXTEND the current scene code to satisfy the request. Keep every existing object unless the request removes it. Do not rebuild the scene from scratch.\n")
	}

	if gc.Feedback != nil && !gc.Feedback.Passed {
		b.WriteString("\n[VALIDATION FEEDBACK]\nYour previous attempt was rejected: ")
		b.WriteString(gc.Feedback.Message)
		b.WriteString("\nRegenerate the full code and include every required element.\n")
	}

	b.WriteString("\n[REQUEST]\n")
	b.WriteString(requestText)
	return b.String()
}

const analysisPreamble = `You are analyzing a request for a 3D scene.
List the concrete sub-requirements the scene code must satisfy, one per line.
Plain lines only: no numbering, no markdown, no commentary.`

func buildAnalysisPrompt(requestText string) string {
	return analysisPreamble + "\n\n[REQUEST]\n" + requestText
}

// stripCodeFence removes a surrounding markdown code fence if the model
// emitted one despite the constraints.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
