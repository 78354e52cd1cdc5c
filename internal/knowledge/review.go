package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// ForgetBlocker is a completed zero-regret case that auto-forget could not
// delete because it still holds unpromoted pressure events.
type ForgetBlocker struct {
	CaseID     string   `json:"case_id"`
	Count      int      `json:"count"`
	Unpromoted []string `json:"unpromoted"`
}

// UncapturedRegret is a completed high-regret case with no pressure events:
// surprises happened but nothing was recorded.
type UncapturedRegret struct {
	CaseID string `json:"case_id"`
	Regret string `json:"regret"`
}

// Cluster is a group of unpromoted pressure events sharing a context tag —
// a candidate for compression into one foundation.
type Cluster struct {
	Tag        string   `json:"tag"`
	Members    []string `json:"members"`
	Lessons    []string `json:"lessons"`
	SharedTags []string `json:"shared_tags"`
}

// Review is the retrospective analysis over a layer's completed cases.
type Review struct {
	ForgetBlockers    []ForgetBlocker    `json:"forget_blockers"`
	UncapturedRegrets []UncapturedRegret `json:"uncaptured_regrets"`
	Clusters          []Cluster          `json:"clusters"`
	Summary           string             `json:"summary"`
}

// SuggestReview scans the layer's COMPLETED cases for forget-blockers,
// high-regret cases with no captured evidence, and clusters of unpromoted
// pressure events worth compressing. Read-only.
func (l *Layer) SuggestReview() (*Review, error) {
	cases, err := l.Cases()
	if err != nil {
		return nil, err
	}

	review := &Review{}
	var unpromoted []PressureEvent

	for _, c := range cases {
		if c.Status != StatusCompleted || c.Outcome == nil {
			continue
		}
		events, err := l.Pressures(c.ID)
		if err != nil {
			continue
		}

		regret := c.Outcome.RegretScore()

		var blocking []string
		for _, ev := range events {
			if ev.PromotedTo == "" {
				blocking = append(blocking, ev.ID)
				unpromoted = append(unpromoted, ev)
			}
		}

		if regret == 0 && len(blocking) > 0 {
			review.ForgetBlockers = append(review.ForgetBlockers, ForgetBlocker{
				CaseID:     c.ID,
				Count:      len(blocking),
				Unpromoted: blocking,
			})
		}
		if regret >= 2 && len(events) == 0 {
			review.UncapturedRegrets = append(review.UncapturedRegrets, UncapturedRegret{
				CaseID: c.ID,
				Regret: c.Outcome.Regret,
			})
		}
	}

	review.Clusters = clusterByTag(unpromoted)
	review.Summary = reviewSummary(review)
	return review, nil
}

// clusterByTag groups unpromoted events by each individual tag they carry.
// A tag shared by two or more events forms a candidate cluster. Two
// clusters with the same member set (under different grouping tags) are
// reported once.
func clusterByTag(events []PressureEvent) []Cluster {
	byTag := map[string][]PressureEvent{}
	for _, ev := range events {
		for _, tag := range ev.Tags {
			byTag[tag] = append(byTag[tag], ev)
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	seen := map[string]bool{}
	var clusters []Cluster
	for _, tag := range tags {
		group := byTag[tag]
		if len(group) < 2 {
			continue
		}

		members := make([]string, len(group))
		lessons := make([]string, len(group))
		for i, ev := range group {
			members[i] = ev.ID
			lessons[i] = ev.Lesson
		}

		key := memberKey(members)
		if seen[key] {
			continue
		}
		seen[key] = true

		clusters = append(clusters, Cluster{
			Tag:        tag,
			Members:    members,
			Lessons:    lessons,
			SharedTags: sharedTags(group),
		})
	}
	return clusters
}

func memberKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// sharedTags returns the tags carried by every member of a group, not just
// the tag that formed it.
func sharedTags(group []PressureEvent) []string {
	counts := map[string]int{}
	for _, ev := range group {
		for _, tag := range ev.Tags {
			counts[tag]++
		}
	}

	var shared []string
	for tag, n := range counts {
		if n == len(group) {
			shared = append(shared, tag)
		}
	}
	sort.Strings(shared)
	return shared
}

func reviewSummary(r *Review) string {
	var parts []string
	if n := len(r.ForgetBlockers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d case(s) blocked from forgetting by unpromoted pressure events", n))
	}
	if n := len(r.UncapturedRegrets); n > 0 {
		parts = append(parts, fmt.Sprintf("%d high-regret case(s) with no pressure events captured", n))
	}
	if n := len(r.Clusters); n > 0 {
		parts = append(parts, fmt.Sprintf("%d compression candidate cluster(s)", n))
	}
	if len(parts) == 0 {
		return "nothing to review"
	}
	return strings.Join(parts, "; ")
}
