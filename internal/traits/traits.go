package traits

import "strings"

const (
	maxNameLen  = 100
	maxValueLen = 200
	maxTraits   = 6

	// PromptTrait is the fixed first entry of every merged set.
	PromptTrait = "original_prompt"
)

// Trait is one name/value pair describing a generated artifact. The JSON
// shape matches the ERC-721 metadata attribute convention.
type Trait struct {
	Name  string `json:"trait_type"`
	Value string `json:"value"`
}

// Merge combines generator-declared and visually-inferred traits into the
// final bounded set. Ordering is a deliberate tie-break: prompt first, then
// generator traits, then vision labels only to fill remaining slots.
// Names are unique case-insensitively; generator traits win collisions.
func Merge(prompt string, model, vision []Trait) []Trait {
	merged := make([]Trait, 0, maxTraits)
	merged = append(merged, Trait{Name: PromptTrait, Value: prompt})

	for _, t := range model {
		merged = append(merged, Trait{
			Name:  truncate(t.Name, maxNameLen),
			Value: truncate(t.Value, maxValueLen),
		})
	}

	seen := make(map[string]struct{}, len(merged))
	for _, t := range merged {
		seen[strings.ToLower(t.Name)] = struct{}{}
	}

	for _, t := range vision {
		if len(merged) >= maxTraits {
			break
		}
		key := strings.ToLower(t.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		merged = append(merged, t)
		seen[key] = struct{}{}
	}

	if len(merged) > maxTraits {
		merged = merged[:maxTraits]
	}
	return merged
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
