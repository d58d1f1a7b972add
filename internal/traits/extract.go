package traits

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"veriprompt/internal/generate"
)

const (
	maxModelTraits    = 5
	maxVisionTraits   = 5
	maxModelValueLen  = 500
	maxVisionNameLen  = 100
	excludedFieldName = "content"
)

// FromFields derives trait candidates from the generator's side-channel
// fields. Only non-empty strings up to 500 chars, numbers, and booleans
// qualify; source order is preserved and the result is capped at 5.
func FromFields(fields []generate.Field) []Trait {
	out := make([]Trait, 0, maxModelTraits)
	for _, f := range fields {
		if len(out) >= maxModelTraits {
			break
		}
		if f.Key == excludedFieldName {
			continue
		}
		value, ok := coerce(f.Value)
		if !ok {
			continue
		}
		out = append(out, Trait{Name: f.Key, Value: value})
	}
	return out
}

func coerce(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" || len(t) > maxModelValueLen {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Label is one ranked label from the image-label service. Score is the
// optional confidence in [0, 1].
type Label struct {
	Description string
	Score       *float64
}

// FromLabels converts ranked labels into trait candidates, capped at 5.
// A label with a confidence becomes "<rounded>%", otherwise "present".
func FromLabels(labels []Label) []Trait {
	out := make([]Trait, 0, maxVisionTraits)
	for _, l := range labels {
		if len(out) >= maxVisionTraits {
			break
		}
		if l.Description == "" {
			continue
		}
		value := "present"
		if l.Score != nil {
			value = fmt.Sprintf("%d%%", int(math.Round(*l.Score*100)))
		}
		out = append(out, Trait{
			Name:  truncate(l.Description, maxVisionNameLen),
			Value: value,
		})
	}
	return out
}
