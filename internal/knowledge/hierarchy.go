package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LayerDirName is the marker directory that makes its parent a project root.
const LayerDirName = ".hindsight"

// GlobalLayerDir returns the well-known user-wide layer directory.
// HINDSIGHT_HOME overrides the default of ~/.hindsight.
func GlobalLayerDir() string {
	if dir := os.Getenv("HINDSIGHT_HOME"); dir != "" {
		abs, err := filepath.Abs(dir)
		if err == nil {
			return abs
		}
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, LayerDirName)
}

// Hierarchy composes the layers that apply to a working directory into one
// logical knowledge base: the nearest project layer(s) first, the user-wide
// layer last. Case and pressure operations go to the nearest layer only;
// foundation operations fan out, merge, and annotate with provenance.
type Hierarchy struct {
	layers []*Layer
}

// Discover walks upward from start collecting every directory that contains
// a layer marker, then appends the well-known global layer if present.
// The resulting order is deterministic: nearest first, global last.
func Discover(start string) (*Hierarchy, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", start, err)
	}

	var paths []string
	seen := map[string]bool{}
	current := abs
	for {
		candidate := filepath.Join(current, LayerDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() && !seen[candidate] {
			paths = append(paths, candidate)
			seen[candidate] = true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	if global := GlobalLayerDir(); global != "" && !seen[global] {
		if info, err := os.Stat(global); err == nil && info.IsDir() {
			paths = append(paths, global)
		}
	}

	if len(paths) == 0 {
		return nil, noLayerFound(abs)
	}

	h := &Hierarchy{}
	for _, p := range paths {
		layer, err := OpenLayer(p)
		if err != nil {
			return nil, err
		}
		h.layers = append(h.layers, layer)
	}
	return h, nil
}

// Init creates the project layer under start if needed and discovers the
// resulting hierarchy.
func Init(start string) (*Hierarchy, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", start, err)
	}
	if _, err := OpenLayer(filepath.Join(abs, LayerDirName)); err != nil {
		return nil, err
	}
	return Discover(abs)
}

// Nearest returns the first (project-nearest) layer. Cases and pressure
// events live here exclusively; they are deliberately not shared across
// scopes.
func (h *Hierarchy) Nearest() *Layer {
	return h.layers[0]
}

// Layers returns all layers in resolution order.
func (h *Hierarchy) Layers() []*Layer {
	return h.layers
}

// global returns the user-wide layer, or nil if none was discovered.
func (h *Hierarchy) global() *Layer {
	for _, l := range h.layers {
		if l.Scope() == ScopeGlobal {
			return l
		}
	}
	return nil
}

// --- Merged foundation listing ---

// MergedFoundation is a foundation annotated with its source layer.
type MergedFoundation struct {
	Foundation
	SourceLayer string `json:"source_layer"`
	Global      bool   `json:"global"`
}

// MergedFoundations lists foundations across all layers, deduplicated by
// title: iterating nearest-first, the first occurrence of a title wins and
// later same-titled entries are suppressed. Project wins over global.
func (h *Hierarchy) MergedFoundations(filter FoundationFilter) ([]MergedFoundation, error) {
	byTitle := map[string]bool{}
	var merged []MergedFoundation
	for _, layer := range h.layers {
		foundations, err := layer.Foundations(filter)
		if err != nil {
			return nil, err
		}
		for _, f := range foundations {
			if byTitle[f.Title] {
				continue
			}
			byTitle[f.Title] = true
			merged = append(merged, MergedFoundation{
				Foundation:  f,
				SourceLayer: layer.Path(),
				Global:      layer.Scope() == ScopeGlobal,
			})
		}
	}
	return merged, nil
}

// --- Conflict detection ---

// Conflict kinds.
const (
	ConflictShadows     = "shadows"     // same title, project hides global
	ConflictContradicts = "contradicts" // lexical contradiction on overlapping tags
)

// Conflict is a suspect pairing between a project foundation and a global
// one.
type Conflict struct {
	ProjectID string   `json:"project_id"`
	GlobalID  string   `json:"global_id"`
	Kind      string   `json:"kind"`
	Tags      []string `json:"tags,omitempty"` // overlapping tags, for contradictions
}

// Conflicts inspects project foundations against global ones. An exact
// case-insensitive title match always conflicts (the project record shadows
// the global one). For differing titles, pairs sharing at least one context
// tag are checked with a coarse lexical heuristic: one behavior saying
// "always" while the other says "never", or "prefer" against "avoid".
// Returns nil when no global layer exists.
func (h *Hierarchy) Conflicts() ([]Conflict, error) {
	global := h.global()
	if global == nil {
		return nil, nil
	}
	globalFoundations, err := global.Foundations(FoundationFilter{})
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for _, layer := range h.layers {
		if layer.Scope() == ScopeGlobal {
			continue
		}
		projectFoundations, err := layer.Foundations(FoundationFilter{})
		if err != nil {
			return nil, err
		}
		for _, p := range projectFoundations {
			for _, g := range globalFoundations {
				if strings.EqualFold(p.Title, g.Title) {
					conflicts = append(conflicts, Conflict{
						ProjectID: p.ID,
						GlobalID:  g.ID,
						Kind:      ConflictShadows,
					})
					continue
				}
				overlap := tagIntersection(p.Tags, g.Tags)
				if len(overlap) == 0 {
					continue
				}
				if contradicts(p.Behavior, g.Behavior) {
					conflicts = append(conflicts, Conflict{
						ProjectID: p.ID,
						GlobalID:  g.ID,
						Kind:      ConflictContradicts,
						Tags:      overlap,
					})
				}
			}
		}
	}
	return conflicts, nil
}

// contradicts applies the keyword heuristic. Deliberately dumb: these exact
// trigger words are the contract, not a semantic analysis.
func contradicts(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	opposed := func(x, y string) bool {
		return (strings.Contains(la, x) && strings.Contains(lb, y)) ||
			(strings.Contains(la, y) && strings.Contains(lb, x))
	}
	return opposed("always", "never") || opposed("prefer", "avoid")
}

func tagIntersection(a, b []string) []string {
	inB := map[string]bool{}
	for _, t := range b {
		inB[strings.ToUpper(t)] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, t := range a {
		u := strings.ToUpper(t)
		if inB[u] && !seen[u] {
			out = append(out, u)
			seen[u] = true
		}
	}
	sort.Strings(out)
	return out
}

// --- Relevance ranking ---

// Relevance annotations.
const (
	RelevanceDirect  = "directly_relevant"
	RelevanceGeneral = "general"
)

// RankedFoundation is a merged foundation scored against the active case.
type RankedFoundation struct {
	MergedFoundation
	Score     int    `json:"score"`
	Relevance string `json:"relevance,omitempty"`
}

// RankFoundations orders merged foundations by tag overlap with the active
// case's context: its affected surfaces plus touched areas, case-normalized.
// With no active case, or one carrying no such tags, candidates come back
// unordered and unannotated.
func (h *Hierarchy) RankFoundations(filter FoundationFilter) ([]RankedFoundation, error) {
	merged, err := h.MergedFoundations(filter)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedFoundation, len(merged))
	for i, m := range merged {
		ranked[i] = RankedFoundation{MergedFoundation: m}
	}

	active, err := h.Nearest().ActiveCase()
	if err != nil {
		return nil, err
	}
	context := caseTagSet(active)
	if len(context) == 0 {
		return ranked, nil
	}

	for i := range ranked {
		score := 0
		for _, tag := range ranked[i].Tags {
			if context[strings.ToUpper(tag)] {
				score++
			}
		}
		ranked[i].Score = score
		ranked[i].Relevance = RelevanceGeneral
		if score > 0 {
			ranked[i].Relevance = RelevanceDirect
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

func caseTagSet(c *Case) map[string]bool {
	if c == nil {
		return nil
	}
	set := map[string]bool{}
	if c.Signals != nil {
		for _, s := range c.Signals.AffectedSurfaces {
			set[strings.ToUpper(s)] = true
		}
	}
	for _, a := range c.TouchedAreas {
		set[strings.ToUpper(a)] = true
	}
	return set
}

// --- Scope elevation ---

// Elevate copies a project foundation into the global layer — new GF id,
// scope forced GLOBAL, origin project recorded, behavior annotated with the
// reason when one is given — then removes the project record.
func (h *Hierarchy) Elevate(id, reason string) (*Foundation, error) {
	global := h.global()
	if global == nil {
		return nil, invariantf("cannot elevate %s: no global layer exists", id)
	}

	var source *Foundation
	var sourceLayer *Layer
	for _, layer := range h.layers {
		if layer.Scope() == ScopeGlobal {
			continue
		}
		f, found, err := layer.foundationByID(id)
		if err != nil {
			return nil, err
		}
		if found {
			source, sourceLayer = f, layer
			break
		}
	}
	if source == nil {
		return nil, notFoundf("foundation %q not found in any project layer", id)
	}

	elevated := *source
	elevated.ID = global.nextFoundationID(ScopeGlobal)
	elevated.Scope = ScopeGlobal
	elevated.OriginProject = sourceLayer.Project()
	elevated.UpdatedAt = timestamp()
	if reason != "" {
		elevated.Behavior = fmt.Sprintf("%s\n\nElevated to global scope: %s", source.Behavior, reason)
	}
	if err := elevated.Validate(); err != nil {
		return nil, err
	}

	if err := global.appendFoundation(elevated); err != nil {
		return nil, err
	}
	if _, err := sourceLayer.RemoveFoundation(id); err != nil {
		return nil, err
	}
	return &elevated, nil
}

// --- Cross-validation ---

// minValidations is how many distinct projects must have validated a
// foundation before confidence moves.
const minValidations = 3

// maxConfidence caps the confidence scale.
const maxConfidence = 3

// ValidateFoundation records that the current project observed a foundation
// holding up in practice. The project label is added to validated_in once;
// confidence only increments (capped) after three or more distinct projects
// have validated. The update lands in the record's originating layer.
func (h *Hierarchy) ValidateFoundation(id string) (*Foundation, error) {
	project := h.Nearest().Project()

	for _, layer := range h.layers {
		f, found, err := layer.foundationByID(id)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		validated := append([]string(nil), f.ValidatedIn...)
		already := false
		for _, p := range validated {
			if p == project {
				already = true
				break
			}
		}
		if !already {
			validated = append(validated, project)
		}

		patch := FoundationPatch{ValidatedIn: validated}
		if len(distinct(validated)) >= minValidations && f.Confidence < maxConfidence {
			confidence := f.Confidence + 1
			patch.Confidence = &confidence
		}

		target := layer
		if f.Scope == ScopeGlobal {
			if g := h.global(); g != nil {
				target = g
			}
		}
		return target.UpdateFoundation(id, patch)
	}
	return nil, notFoundf("foundation %q not found in any layer", id)
}

func distinct(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
