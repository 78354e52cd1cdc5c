package knowledge

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSuggestReview_Empty(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))

	review, err := l.SuggestReview()
	if err != nil {
		t.Fatalf("SuggestReview failed: %v", err)
	}
	if review.Summary != "nothing to review" {
		t.Errorf("summary = %q, want %q", review.Summary, "nothing to review")
	}
	if len(review.ForgetBlockers)+len(review.UncapturedRegrets)+len(review.Clusters) != 0 {
		t.Errorf("expected an empty review, got %+v", review)
	}
}

func TestSuggestReview_ForgetBlockers(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "blocked")
	ev := mustLogPressure(t, l, LogPressureInput{})
	if _, err := l.CloseCase(c.ID, Outcome{Regret: "0"}); err != nil {
		t.Fatal(err)
	}

	review, err := l.SuggestReview()
	if err != nil {
		t.Fatal(err)
	}
	if len(review.ForgetBlockers) != 1 {
		t.Fatalf("got %d blockers, want 1", len(review.ForgetBlockers))
	}
	b := review.ForgetBlockers[0]
	if b.CaseID != c.ID || b.Count != 1 || b.Unpromoted[0] != ev.ID {
		t.Errorf("blocker = %+v, want case %s with unpromoted %s", b, c.ID, ev.ID)
	}
	if !strings.Contains(review.Summary, "blocked from forgetting") {
		t.Errorf("summary should mention blockers, got %q", review.Summary)
	}
}

func TestSuggestReview_UncapturedRegret(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "painful but silent")
	if _, err := l.CloseCase(c.ID, Outcome{Regret: "2"}); err != nil {
		t.Fatal(err)
	}

	// Regret 1 with no events is not reported.
	low := mustStartCase(t, l, "mild")
	if _, err := l.CloseCase(low.ID, Outcome{Regret: "1"}); err != nil {
		t.Fatal(err)
	}

	review, err := l.SuggestReview()
	if err != nil {
		t.Fatal(err)
	}
	if len(review.UncapturedRegrets) != 1 {
		t.Fatalf("got %d uncaptured regrets, want 1", len(review.UncapturedRegrets))
	}
	if review.UncapturedRegrets[0].CaseID != c.ID {
		t.Errorf("reported case = %s, want %s", review.UncapturedRegrets[0].CaseID, c.ID)
	}
}

func TestSuggestReview_Clusters(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))

	a := mustStartCase(t, l, "first")
	evA := mustLogPressure(t, l, LogPressureInput{
		Tags:   []string{"DATABASE", "PERFORMANCE"},
		Lesson: "index before you iterate",
	})
	if _, err := l.CloseCase(a.ID, Outcome{Regret: "1"}); err != nil {
		t.Fatal(err)
	}

	b := mustStartCase(t, l, "second")
	evB := mustLogPressure(t, l, LogPressureInput{
		Tags:   []string{"DATABASE", "PERFORMANCE"},
		Lesson: "measure the query plan",
	})
	if _, err := l.CloseCase(b.ID, Outcome{Regret: "1"}); err != nil {
		t.Fatal(err)
	}

	review, err := l.SuggestReview()
	if err != nil {
		t.Fatal(err)
	}

	// Both DATABASE and PERFORMANCE group the same two events; the cluster
	// must be reported once, with the full shared tag subset.
	if len(review.Clusters) != 1 {
		t.Fatalf("got %d clusters, want 1 (identical member sets deduplicated)", len(review.Clusters))
	}
	cluster := review.Clusters[0]
	wantMembers := map[string]bool{evA.ID: true, evB.ID: true}
	if len(cluster.Members) != 2 || !wantMembers[cluster.Members[0]] || !wantMembers[cluster.Members[1]] {
		t.Errorf("members = %v, want %s and %s", cluster.Members, evA.ID, evB.ID)
	}
	if len(cluster.SharedTags) != 2 || cluster.SharedTags[0] != "DATABASE" || cluster.SharedTags[1] != "PERFORMANCE" {
		t.Errorf("shared tags = %v, want [DATABASE PERFORMANCE]", cluster.SharedTags)
	}
	if len(cluster.Lessons) != 2 {
		t.Errorf("lessons = %v, want both one-liners", cluster.Lessons)
	}
}

func TestSuggestReview_PromotedEventsNotClustered(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	c := mustStartCase(t, l, "already compressed")
	evA := mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})
	evB := mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})
	if _, err := l.Promote(PromoteInput{
		Title:    "API lesson",
		Behavior: "check the contract",
		Tags:     []string{"API"},
		Sources:  []string{evA.ID, evB.ID},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CloseCase(c.ID, Outcome{Regret: "1"}); err != nil {
		t.Fatal(err)
	}

	review, err := l.SuggestReview()
	if err != nil {
		t.Fatal(err)
	}
	if len(review.Clusters) != 0 {
		t.Errorf("promoted events must not cluster, got %v", review.Clusters)
	}
}

func TestSuggestReview_IgnoresOpenCases(t *testing.T) {
	l := newLayer(t, filepath.Join(t.TempDir(), LayerDirName))
	mustStartCase(t, l, "still running")
	mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})
	mustStartCase(t, l, "also running")
	mustLogPressure(t, l, LogPressureInput{Tags: []string{"API"}})

	review, err := l.SuggestReview()
	if err != nil {
		t.Fatal(err)
	}
	if review.Summary != "nothing to review" {
		t.Errorf("open cases should be invisible to review, got %q", review.Summary)
	}
}
