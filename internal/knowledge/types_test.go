package knowledge

import (
	"strings"
	"testing"
)

// --- Slugify ---

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Add tile caching", "add-tile-caching"},
		{"punctuation runs", "Fix: the (weird)   bug!!", "fix-the-weird-bug"},
		{"leading trailing junk", "--hello world--", "hello-world"},
		{"uppercase", "REFACTOR Parser", "refactor-parser"},
		{"empty", "   ", "untitled"},
		{"all punctuation", "!!!", "untitled"},
		{"unicode stripped", "café au lait", "caf-au-lait"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugify_TruncatesTo50(t *testing.T) {
	long := strings.Repeat("word ", 30)
	slug := Slugify(long)
	if len(slug) > 50 {
		t.Errorf("slug length = %d, want <= 50", len(slug))
	}
	if strings.HasSuffix(slug, "-") {
		t.Errorf("slug %q has trailing hyphen after truncation", slug)
	}
}

// --- Validation ---

func TestCaseValidate_RejectsBadRegret(t *testing.T) {
	c := &Case{
		ID:      "0001-x",
		Title:   "x",
		Status:  StatusCompleted,
		Outcome: &Outcome{Regret: "7"},
	}
	err := c.Validate()
	if !IsCode(err, CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "outcome.regret") {
		t.Errorf("error should name the field path, got %q", err.Error())
	}
}

func TestCaseValidate_UnknownStatusRejected(t *testing.T) {
	c := &Case{ID: "0001-x", Title: "x", Status: CaseStatus("HALTED")}
	if err := c.Validate(); !IsCode(err, CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestPressureValidate_RequiresNarratives(t *testing.T) {
	ev := &PressureEvent{ID: "PE-0001", CaseID: "0001-x", Expected: "a", Actual: "b", Adaptation: "c"}
	err := ev.Validate()
	if !IsCode(err, CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "lesson") {
		t.Errorf("error should name the missing field, got %q", err.Error())
	}
}

func TestFoundationValidate(t *testing.T) {
	valid := Foundation{
		ID:              "F-0001",
		Title:           "Check API auth first",
		Behavior:        "Verify credentials before blaming the endpoint",
		Tags:            []string{"API"},
		Confidence:      1,
		Scope:           ScopeProject,
		SourcePressures: []string{"PE-0001"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid foundation rejected: %v", err)
	}

	noTags := valid
	noTags.Tags = nil
	if err := noTags.Validate(); !IsCode(err, CodeValidationFailed) {
		t.Errorf("foundation without tags should fail validation, got %v", err)
	}

	noSources := valid
	noSources.SourcePressures = nil
	if err := noSources.Validate(); !IsCode(err, CodeValidationFailed) {
		t.Errorf("foundation without sources should fail validation, got %v", err)
	}

	badConfidence := valid
	badConfidence.Confidence = 4
	if err := badConfidence.Validate(); !IsCode(err, CodeValidationFailed) {
		t.Errorf("confidence 4 should fail validation, got %v", err)
	}
}

// --- Errors ---

func TestAsCode(t *testing.T) {
	if got := AsCode(notFoundf("x")); got != CodeNotFound {
		t.Errorf("AsCode = %q, want %q", got, CodeNotFound)
	}
	if got := AsCode(nil); got != "" {
		t.Errorf("AsCode(nil) = %q, want empty", got)
	}
}
