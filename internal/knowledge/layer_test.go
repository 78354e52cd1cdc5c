package knowledge

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// newLayer builds a layer directly against a directory, bypassing the
// process-wide cache so tests can simulate process restarts.
func newLayer(t *testing.T, dir string) *Layer {
	t.Helper()
	l := &Layer{path: dir}
	if err := l.initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	return l
}

func mustStartCase(t *testing.T, l *Layer, title string) *Case {
	t.Helper()
	c, err := l.StartCase(StartCaseInput{Title: title})
	if err != nil {
		t.Fatalf("StartCase(%q) failed: %v", title, err)
	}
	return c
}

func mustLogPressure(t *testing.T, l *Layer, in LogPressureInput) *PressureEvent {
	t.Helper()
	if in.Expected == "" {
		in.Expected = "expected"
	}
	if in.Actual == "" {
		in.Actual = "actual"
	}
	if in.Adaptation == "" {
		in.Adaptation = "adapted"
	}
	if in.Lesson == "" {
		in.Lesson = "lesson"
	}
	ev, err := l.LogPressure(in)
	if err != nil {
		t.Fatalf("LogPressure failed: %v", err)
	}
	return ev
}

// --- Initialization ---

func TestInitialize_CreatesSkeletonAndConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), LayerDirName)
	l := newLayer(t, dir)

	for _, sub := range []string{CasesDir, DefaultsDir} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("expected %s directory: %v", sub, err)
		}
	}
	if l.Scope() != ScopeProject {
		t.Errorf("Scope = %s, want PROJECT", l.Scope())
	}
	if l.Project() == "" {
		t.Error("project label should default to the containing directory name")
	}
}

func TestInitialize_SeedsCountersFromDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), LayerDirName)
	l := newLayer(t, dir)

	mustStartCase(t, l, "first")
	mustLogPressure(t, l, LogPressureInput{})
	mustLogPressure(t, l, LogPressureInput{})

	// Simulate a process restart: a fresh instance must pick up where the
	// old counters left off.
	reopened := newLayer(t, dir)
	c := mustStartCase(t, reopened, "second")
	if c.ID != "0002-second" {
		t.Errorf("case id after reopen = %s, want 0002-second", c.ID)
	}
	ev := mustLogPressure(t, reopened, LogPressureInput{})
	if ev.ID != "PE-0003" {
		t.Errorf("pressure id after reopen = %s, want PE-0003", ev.ID)
	}
}

func TestInitialize_ClearsStaleActivePointer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), LayerDirName)
	l := newLayer(t, dir)
	c := mustStartCase(t, l, "doomed")

	// Delete the case behind the layer's back, then reopen.
	if err := os.RemoveAll(l.caseDir(c.ID)); err != nil {
		t.Fatal(err)
	}
	reopened := newLayer(t, dir)
	if reopened.ActiveCaseID() != "" {
		t.Errorf("stale active pointer survived: %q", reopened.ActiveCaseID())
	}
	if _, err := os.Stat(reopened.activePath()); !os.IsNotExist(err) {
		t.Error("stale marker file should have been removed")
	}
}

// --- StartCase ---

var caseIDPattern = regexp.MustCompile(`^\d{4}-[a-z0-9-]+$`)

func TestStartCase_IDFormatAndSequence(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))

	a := mustStartCase(t, l, "Add tile caching")
	if a.ID != "0001-add-tile-caching" {
		t.Errorf("first id = %s, want 0001-add-tile-caching", a.ID)
	}

	b := mustStartCase(t, l, "Another One")
	for _, c := range []*Case{a, b} {
		if !caseIDPattern.MatchString(c.ID) {
			t.Errorf("id %q does not match the identifier format", c.ID)
		}
	}
	if caseSeqOf(b.ID) != caseSeqOf(a.ID)+1 {
		t.Errorf("sequence not strictly increasing: %s then %s", a.ID, b.ID)
	}
}

func TestStartCase_BecomesActiveAndPersists(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "track me")

	if l.ActiveCaseID() != c.ID {
		t.Errorf("active = %q, want %q", l.ActiveCaseID(), c.ID)
	}
	loaded, err := l.Case(c.ID)
	if err != nil {
		t.Fatalf("Case failed: %v", err)
	}
	if loaded.Status != StatusActive {
		t.Errorf("status = %s, want ACTIVE", loaded.Status)
	}
	if loaded.Goal != "track me" {
		t.Errorf("goal should fall back to title, got %q", loaded.Goal)
	}
	if len(loaded.PressureIDs) != 0 {
		t.Errorf("new case should own no pressure events, got %v", loaded.PressureIDs)
	}
}

func TestStartCase_EmptyTitleRejected(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	if _, err := l.StartCase(StartCaseInput{Title: "  "}); !IsCode(err, CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

// --- CloseCase and auto-forget ---

func TestCloseCase_ZeroRegretNoPressures_Forgotten(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "clean task")

	res, err := l.CloseCase(c.ID, Outcome{Regret: "0"})
	if err != nil {
		t.Fatalf("CloseCase failed: %v", err)
	}
	if !res.Forgotten {
		t.Error("forgotten = false, want true")
	}
	if _, err := os.Stat(l.caseDir(c.ID)); !os.IsNotExist(err) {
		t.Error("case directory should no longer exist")
	}
	if l.ActiveCaseID() != "" {
		t.Errorf("active pointer should be cleared, got %q", l.ActiveCaseID())
	}
	if _, err := os.Stat(l.activePath()); !os.IsNotExist(err) {
		t.Error("active marker file should be removed")
	}
}

func TestCloseCase_ZeroRegretUnpromotedPressure_Retained(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "keep me")
	mustLogPressure(t, l, LogPressureInput{})

	res, err := l.CloseCase(c.ID, Outcome{Regret: "0"})
	if err != nil {
		t.Fatalf("CloseCase failed: %v", err)
	}
	if res.Forgotten {
		t.Error("forgotten = true, want false: an unpromoted pressure blocks forgetting")
	}
	loaded, err := l.Case(c.ID)
	if err != nil {
		t.Fatalf("case should persist: %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", loaded.Status)
	}
}

func TestCloseCase_ZeroRegretAllPromoted_Forgotten(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "compressed away")
	ev := mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})

	if _, err := l.Promote(PromoteInput{
		Title:    "Check auth first",
		Behavior: "Always verify credentials before debugging the endpoint",
		Tags:     []string{"API"},
		Sources:  []string{ev.ID},
	}); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	res, err := l.CloseCase(c.ID, Outcome{Regret: "0"})
	if err != nil {
		t.Fatalf("CloseCase failed: %v", err)
	}
	if !res.Forgotten {
		t.Error("forgotten = false, want true once every pressure is promoted")
	}
}

func TestCloseCase_NonZeroRegretNeverForgets(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "Add tile caching")
	ev := mustLogPressure(t, l, LogPressureInput{
		Expected: "API returns 200",
		Actual:   "API returns 403",
	})
	if ev.ID != "PE-0001" {
		t.Errorf("pressure id = %s, want PE-0001", ev.ID)
	}

	res, err := l.CloseCase(c.ID, Outcome{Regret: "1"})
	if err != nil {
		t.Fatalf("CloseCase failed: %v", err)
	}
	if res.Forgotten {
		t.Error("regret >= 1 must never auto-forget")
	}
	if res.Case.Status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", res.Case.Status)
	}
}

func TestCloseCase_Errors(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))

	if _, err := l.CloseCase("0099-missing", Outcome{Regret: "0"}); !IsCode(err, CodeNotFound) {
		t.Errorf("unknown case: expected NOT_FOUND, got %v", err)
	}

	c := mustStartCase(t, l, "once only")
	if _, err := l.CloseCase(c.ID, Outcome{Regret: "bad"}); !IsCode(err, CodeValidationFailed) {
		t.Errorf("bad regret: expected VALIDATION_FAILED, got %v", err)
	}
	if _, err := l.CloseCase(c.ID, Outcome{Regret: "2"}); err != nil {
		t.Fatalf("CloseCase failed: %v", err)
	}
	if _, err := l.CloseCase(c.ID, Outcome{Regret: "2"}); !IsCode(err, CodeInvariantViolation) {
		t.Errorf("double close: expected INVARIANT_VIOLATION, got %v", err)
	}
}

func TestCaseSequenceNotReusedAfterForget(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	first := mustStartCase(t, l, "throwaway")
	if _, err := l.CloseCase(first.ID, Outcome{Regret: "0"}); err != nil {
		t.Fatal(err)
	}

	second := mustStartCase(t, l, "next")
	if second.ID != "0002-next" {
		t.Errorf("sequence reused after forget: got %s, want 0002-next", second.ID)
	}
}

// --- LogPressure ---

func TestLogPressure_UsesActiveCase(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "active case")

	ev := mustLogPressure(t, l, LogPressureInput{})
	if ev.CaseID != c.ID {
		t.Errorf("event case = %s, want %s", ev.CaseID, c.ID)
	}

	loaded, err := l.Case(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.PressureIDs) != 1 || loaded.PressureIDs[0] != ev.ID {
		t.Errorf("back-reference list = %v, want [%s]", loaded.PressureIDs, ev.ID)
	}
}

func TestLogPressure_NoActiveCase(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	_, err := l.LogPressure(LogPressureInput{
		Expected: "a", Actual: "b", Adaptation: "c", Lesson: "d",
	})
	if !IsCode(err, CodeNoActiveCase) {
		t.Fatalf("expected NO_ACTIVE_CASE, got %v", err)
	}
}

func TestLogPressure_ExplicitUnknownCase(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	_, err := l.LogPressure(LogPressureInput{
		CaseID:   "0042-ghost",
		Expected: "a", Actual: "b", Adaptation: "c", Lesson: "d",
	})
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

// --- SearchPressures ---

func TestSearchPressures(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	mustStartCase(t, l, "one")
	mustLogPressure(t, l, LogPressureInput{Actual: "API returned 403 Forbidden"})
	mustLogPressure(t, l, LogPressureInput{Tags: []string{"DATABASE"}})
	mustStartCase(t, l, "two")
	mustLogPressure(t, l, LogPressureInput{Lesson: "always check the api token"})

	matches, err := l.SearchPressures("API")
	if err != nil {
		t.Fatalf("SearchPressures failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (case-insensitive, across cases)", len(matches))
	}

	matches, err = l.SearchPressures("database")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("tag search: got %d matches, want 1", len(matches))
	}
}

// --- Foundations ---

func TestPromote_SetsPromotedToImmediately(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "source case")
	a := mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})
	b := mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})

	f, err := l.Promote(PromoteInput{
		Title:         "Retry idempotent calls",
		Behavior:      "Prefer retrying idempotent requests with backoff",
		Tags:          []string{"API", "RELIABILITY"},
		Sources:       []string{a.ID, b.ID},
		OriginProject: "demo",
	})
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if f.ID != "F-0001" {
		t.Errorf("foundation id = %s, want F-0001", f.ID)
	}
	if f.Confidence != 1 {
		t.Errorf("confidence = %d, want 1", f.Confidence)
	}
	if len(f.ValidatedIn) != 1 || f.ValidatedIn[0] != "demo" {
		t.Errorf("validated_in = %v, want [demo]", f.ValidatedIn)
	}

	events, err := l.Pressures(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		if ev.PromotedTo != f.ID {
			t.Errorf("event %s promoted_to = %q, want %q", ev.ID, ev.PromotedTo, f.ID)
		}
	}
}

func TestPromote_DanglingSourceDoesNotBlock(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	mustStartCase(t, l, "whatever")

	f, err := l.Promote(PromoteInput{
		Title:    "Lesson from nowhere",
		Behavior: "Avoid trusting ids you did not verify",
		Tags:     []string{"HYGIENE"},
		Sources:  []string{"PE-9999"},
	})
	if err != nil {
		t.Fatalf("Promote should tolerate dangling sources, got %v", err)
	}
	if f == nil || f.ID == "" {
		t.Fatal("foundation should still be created")
	}
}

func TestFoundations_Filters(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	mustStartCase(t, l, "seed")
	ev := mustLogPressure(t, l, LogPressureInput{})

	for _, in := range []PromoteInput{
		{Title: "A", Behavior: "x", Tags: []string{"API"}, Sources: []string{ev.ID}},
		{Title: "B", Behavior: "y", Tags: []string{"DATABASE"}, Sources: []string{ev.ID}},
	} {
		if _, err := l.Promote(in); err != nil {
			t.Fatal(err)
		}
	}
	three := 3
	if _, err := l.UpdateFoundation("F-0002", FoundationPatch{Confidence: &three}); err != nil {
		t.Fatal(err)
	}

	byTag, err := l.Foundations(FoundationFilter{Tags: []string{"API", "UNRELATED"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTag) != 1 || byTag[0].Title != "A" {
		t.Errorf("tag filter: got %v, want just A", byTag)
	}

	byConfidence, err := l.Foundations(FoundationFilter{MinConfidence: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(byConfidence) != 1 || byConfidence[0].Title != "B" {
		t.Errorf("confidence filter: got %v, want just B", byConfidence)
	}
}

func TestUpdateFoundation_NotFound(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	if _, err := l.UpdateFoundation("F-0001", FoundationPatch{}); !IsCode(err, CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRemoveFoundation(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))

	// Missing collection: no error, just not found.
	found, err := l.RemoveFoundation("F-0001")
	if err != nil {
		t.Fatalf("RemoveFoundation on empty layer errored: %v", err)
	}
	if found {
		t.Error("found = true on empty layer")
	}

	mustStartCase(t, l, "seed")
	ev := mustLogPressure(t, l, LogPressureInput{})
	f, err := l.Promote(PromoteInput{Title: "T", Behavior: "b", Tags: []string{"X"}, Sources: []string{ev.ID}})
	if err != nil {
		t.Fatal(err)
	}

	found, err = l.RemoveFoundation(f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("found = false, want true")
	}
	remaining, err := l.Foundations(FoundationFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("foundation not removed: %v", remaining)
	}
}

// --- Corrupt document handling ---

func TestCases_SkipsCorruptDocuments(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	mustStartCase(t, l, "good")
	bad := mustStartCase(t, l, "bad")

	if err := os.WriteFile(l.casePath(bad.ID), []byte("{{{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases, err := l.Cases()
	if err != nil {
		t.Fatalf("Cases should not abort on one corrupt document: %v", err)
	}
	if len(cases) != 1 || cases[0].Title != "good" {
		t.Errorf("listing = %v, want just the good case", cases)
	}
}

func TestFoundations_CorruptCollectionAborts(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	if err := os.WriteFile(l.foundationsPath(), []byte("{{{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Foundations(FoundationFilter{}); !IsCode(err, CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED for corrupt collection, got %v", err)
	}
}
