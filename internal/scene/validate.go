package scene

import "strings"

const validMessage = "code contains all required scene elements"

// validationRules are checked in a fixed order so that results, and the
// messages built from them, are deterministic for a given input. An element
// counts as present when any one of its markers appears in the code.
var validationRules = []struct {
	element string
	markers []string
}{
	{"THREE.Scene", []string{"THREE.Scene"}},
	{"Camera", []string{"PerspectiveCamera", "OrthographicCamera", "THREE.Camera"}},
	{"WebGLRenderer", []string{"WebGLRenderer"}},
	{"animate()", []string{"function animate", "animate = function", "const animate"}},
	{"requestAnimationFrame", []string{"requestAnimationFrame"}},
}

// Validate scans generated code for the required scene elements. It is a
// pure textual check: it never executes the code and never errors, it only
// reports what is missing.
func Validate(code string) ValidationResult {
	var missing []string
	for _, rule := range validationRules {
		found := false
		for _, m := range rule.markers {
			if strings.Contains(code, m) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, rule.element)
		}
	}
	if len(missing) > 0 {
		return ValidationResult{
			Passed:          false,
			MissingElements: missing,
			Message:         "missing required elements: " + strings.Join(missing, ", "),
		}
	}
	return ValidationResult{Passed: true, Message: validMessage}
}

// RequiredElements returns the element names Validate checks for, in check
// order.
func RequiredElements() []string {
	out := make([]string, len(validationRules))
	for i, r := range validationRules {
		out[i] = r.element
	}
	return out
}
