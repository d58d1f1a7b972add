package traits

import (
	"strings"
	"testing"
)

func TestMergeSeedsPromptFirst(t *testing.T) {
	got := Merge("a red fox", nil, nil)
	if len(got) != 1 {
		t.Fatalf("Merge() len = %d, want 1", len(got))
	}
	if got[0].Name != PromptTrait || got[0].Value != "a red fox" {
		t.Fatalf("Merge()[0] = %+v, want {original_prompt, a red fox}", got[0])
	}
}

func TestMergeModelBeforeVision(t *testing.T) {
	model := []Trait{{Name: "seed", Value: "42"}, {Name: "style", Value: "oil painting"}}
	vision := []Trait{{Name: "fox", Value: "97%"}, {Name: "Seed", Value: "12%"}, {Name: "animal", Value: "88%"}}

	got := Merge("a red fox", model, vision)

	want := []Trait{
		{Name: "original_prompt", Value: "a red fox"},
		{Name: "seed", Value: "42"},
		{Name: "style", Value: "oil painting"},
		{Name: "fox", Value: "97%"},
		{Name: "animal", Value: "88%"},
	}
	if len(got) != len(want) {
		t.Fatalf("Merge() len = %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Merge()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMergeCaseInsensitiveDedupe(t *testing.T) {
	model := []Trait{{Name: "Style", Value: "oil"}}
	vision := []Trait{{Name: "sTyLe", Value: "watercolor"}, {Name: "ORIGINAL_PROMPT", Value: "nope"}}

	got := Merge("p", model, vision)
	if len(got) != 2 {
		t.Fatalf("Merge() len = %d, want 2 (%+v)", len(got), got)
	}
	if got[1].Value != "oil" {
		t.Fatalf("model trait lost priority: %+v", got)
	}
}

func TestMergeCapsAtSix(t *testing.T) {
	model := []Trait{
		{Name: "a", Value: "1"}, {Name: "b", Value: "2"},
		{Name: "c", Value: "3"}, {Name: "d", Value: "4"}, {Name: "e", Value: "5"},
	}
	vision := []Trait{{Name: "f", Value: "6"}, {Name: "g", Value: "7"}}

	got := Merge("p", model, vision)
	if len(got) != 6 {
		t.Fatalf("Merge() len = %d, want 6", len(got))
	}
	for _, tr := range got {
		if tr.Name == "g" {
			t.Fatalf("trait past the cap was kept: %+v", got)
		}
	}
}

func TestMergeTruncatesModelTraits(t *testing.T) {
	model := []Trait{{
		Name:  strings.Repeat("n", 150),
		Value: strings.Repeat("v", 250),
	}}

	got := Merge("p", model, nil)
	if len(got[1].Name) != 100 {
		t.Fatalf("name len = %d, want 100", len(got[1].Name))
	}
	if len(got[1].Value) != 200 {
		t.Fatalf("value len = %d, want 200", len(got[1].Value))
	}
}

func TestMergeNamesPairwiseDistinct(t *testing.T) {
	model := []Trait{{Name: "Seed", Value: "1"}, {Name: "style", Value: "x"}}
	vision := []Trait{{Name: "seed", Value: "2"}, {Name: "STYLE", Value: "y"}, {Name: "tone", Value: "z"}}

	got := Merge("p", model, vision)
	seen := make(map[string]bool)
	for _, tr := range got {
		key := strings.ToLower(tr.Name)
		if seen[key] {
			t.Fatalf("duplicate name %q in %+v", tr.Name, got)
		}
		seen[key] = true
	}
}
