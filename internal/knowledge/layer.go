package knowledge

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the per-layer configuration document.
	ConfigFile = "config.yaml"
	// ActiveCaseFile is a plain-text marker holding the active case id.
	ActiveCaseFile = ".active-case"
	// CasesDir holds one subdirectory per case.
	CasesDir = "cases"
	// CaseFile is the case document inside a case directory.
	CaseFile = "case.yaml"
	// PressuresFile is the pressure-event collection inside a case directory.
	PressuresFile = "pressures.yaml"
	// DefaultsDir holds layer-wide defaults, including foundations.
	DefaultsDir = "defaults"
	// FoundationsFile is the foundation collection document.
	FoundationsFile = "foundations.yaml"
)

// pressureDoc is the on-disk shape of a case's pressure collection.
type pressureDoc struct {
	Events []PressureEvent `yaml:"events"`
}

// foundationDoc is the on-disk shape of a layer's foundation collection.
type foundationDoc struct {
	Foundations []Foundation `yaml:"foundations"`
}

// Layer owns one scope directory: entity persistence, ID counters, the
// active-case pointer, and policy evaluation. It knows nothing about other
// layers.
//
// ID counters are in-memory per instance, seeded once by scanning persisted
// entities. They are not safe across multiple OS processes pointed at the
// same directory.
type Layer struct {
	path   string
	cfg    LayerConfig
	active string

	caseSeq       int
	pressureSeq   int
	foundationSeq int
}

// Each layer directory is owned by at most one live instance per process,
// keyed by resolved path, so repeated opens skip re-initialization.
var (
	layerMu    sync.Mutex
	layerCache = map[string]*Layer{}
)

// OpenLayer returns the process-wide instance for a layer directory,
// initializing the directory skeleton on first open.
func OpenLayer(path string) (*Layer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving layer path %s: %w", path, err)
	}

	layerMu.Lock()
	defer layerMu.Unlock()

	if l, ok := layerCache[abs]; ok {
		return l, nil
	}

	l := &Layer{path: abs}
	if err := l.initialize(); err != nil {
		return nil, err
	}
	layerCache[abs] = l
	return l, nil
}

// initialize ensures the directory skeleton exists, writes a default config
// if missing, restores the active-case pointer, and seeds the three ID
// counter families by scanning persisted entities.
func (l *Layer) initialize() error {
	for _, dir := range []string{l.casesPath(), filepath.Join(l.path, DefaultsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating layer directory %s: %w", dir, err)
		}
	}

	if err := l.loadOrCreateConfig(); err != nil {
		return err
	}
	if err := l.seedCounters(); err != nil {
		return err
	}
	return l.restoreActivePointer()
}

func (l *Layer) loadOrCreateConfig() error {
	path := filepath.Join(l.path, ConfigFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		l.cfg = defaultConfig(l.path)
		return writeYAML(path, &l.cfg)
	}
	if err != nil {
		return fmt.Errorf("reading layer config: %w", err)
	}

	var cfg LayerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &StoreError{Code: CodeValidationFailed, Message: "config.yaml is not valid YAML", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.cfg = cfg
	return nil
}

// defaultConfig derives a fresh config for a layer directory. The global
// layer is recognized by its well-known location; everything else is a
// project layer labeled after the directory that contains it.
func defaultConfig(path string) LayerConfig {
	scope := ScopeProject
	project := filepath.Base(filepath.Dir(path))
	if path == GlobalLayerDir() {
		scope = ScopeGlobal
		project = "global"
	}
	return LayerConfig{Project: project, Version: ConfigVersion, Scope: scope}
}

// seedCounters scans persisted entities for the highest numeric suffix in
// each of the three independent identifier families.
func (l *Layer) seedCounters() error {
	entries, err := os.ReadDir(l.casesPath())
	if err != nil {
		return fmt.Errorf("reading cases directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if n := caseSeqOf(entry.Name()); n > l.caseSeq {
			l.caseSeq = n
		}
		var doc pressureDoc
		if err := readYAML(l.pressuresPath(entry.Name()), &doc); err != nil {
			continue // best-effort: corrupt pressure docs don't block init
		}
		for _, ev := range doc.Events {
			if n := idSeqOf(ev.ID); n > l.pressureSeq {
				l.pressureSeq = n
			}
		}
	}

	doc, err := l.loadFoundations()
	if err != nil {
		return err
	}
	// Both scope prefixes (F-, GF-) share the one counter family.
	for _, f := range doc.Foundations {
		if n := idSeqOf(f.ID); n > l.foundationSeq {
			l.foundationSeq = n
		}
	}
	return nil
}

// restoreActivePointer reads the marker file and validates that the case it
// references still exists; a stale marker is deleted.
func (l *Layer) restoreActivePointer() error {
	data, err := os.ReadFile(l.activePath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading active-case marker: %w", err)
	}

	id := strings.TrimSpace(string(data))
	if _, statErr := os.Stat(l.casePath(id)); statErr != nil {
		return l.clearActive()
	}
	l.active = id
	return nil
}

// caseSeqOf extracts the numeric prefix of a case directory name ("0001-slug").
func caseSeqOf(name string) int {
	idx := strings.Index(name, "-")
	if idx <= 0 {
		return 0
	}
	n, err := strconv.Atoi(name[:idx])
	if err != nil {
		return 0
	}
	return n
}

// idSeqOf extracts the numeric suffix of a prefixed id ("PE-0012", "GF-0003").
func idSeqOf(id string) int {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// --- Accessors ---

// Path returns the layer's directory.
func (l *Layer) Path() string { return l.path }

// Config returns the layer's configuration document.
func (l *Layer) Config() LayerConfig { return l.cfg }

// Project returns the layer's project label.
func (l *Layer) Project() string { return l.cfg.Project }

// Scope returns the layer's scope tag.
func (l *Layer) Scope() Scope { return l.cfg.Scope }

// ActiveCaseID returns the active case id, or "" when none is set.
func (l *Layer) ActiveCaseID() string { return l.active }

// --- Path helpers ---

func (l *Layer) casesPath() string         { return filepath.Join(l.path, CasesDir) }
func (l *Layer) caseDir(id string) string  { return filepath.Join(l.path, CasesDir, id) }
func (l *Layer) casePath(id string) string { return filepath.Join(l.path, CasesDir, id, CaseFile) }
func (l *Layer) pressuresPath(id string) string {
	return filepath.Join(l.path, CasesDir, id, PressuresFile)
}
func (l *Layer) foundationsPath() string {
	return filepath.Join(l.path, DefaultsDir, FoundationsFile)
}
func (l *Layer) activePath() string { return filepath.Join(l.path, ActiveCaseFile) }

// --- Case operations ---

// StartCaseInput holds the input for creating a new case.
type StartCaseInput struct {
	Title        string
	Goal         string
	Signals      *ContextSignals
	TouchedAreas []string
}

// StartCase allocates the next case identifier, persists the case with an
// empty pressure collection, and makes it the layer's active case.
func (l *Layer) StartCase(in StartCaseInput) (*Case, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationErr("title", "must not be empty")
	}
	goal := strings.TrimSpace(in.Goal)
	if goal == "" {
		goal = title
	}

	l.caseSeq++
	c := &Case{
		ID:           fmt.Sprintf("%04d-%s", l.caseSeq, Slugify(title)),
		Title:        title,
		Goal:         goal,
		Status:       StatusActive,
		CreatedAt:    timestamp(),
		Signals:      in.Signals,
		TouchedAreas: in.TouchedAreas,
		PressureIDs:  []string{},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := writeYAML(l.casePath(c.ID), c); err != nil {
		return nil, err
	}
	if err := writeYAML(l.pressuresPath(c.ID), &pressureDoc{Events: []PressureEvent{}}); err != nil {
		return nil, err
	}
	if err := l.setActive(c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// Case loads a single case document by id.
func (l *Layer) Case(id string) (*Case, error) {
	data, err := os.ReadFile(l.casePath(id))
	if os.IsNotExist(err) {
		return nil, notFoundf("case %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading case %s: %w", id, err)
	}

	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &StoreError{Code: CodeValidationFailed, Message: fmt.Sprintf("case %s is not valid YAML", id), Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Cases lists every case in the layer, sorted by id. Corrupt case documents
// are skipped so one bad file cannot take down the whole listing.
func (l *Layer) Cases() ([]Case, error) {
	entries, err := os.ReadDir(l.casesPath())
	if err != nil {
		return nil, fmt.Errorf("reading cases directory: %w", err)
	}

	var result []Case
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		c, err := l.Case(entry.Name())
		if err != nil {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ActiveCase loads the active case, or nil when none is set.
func (l *Layer) ActiveCase() (*Case, error) {
	if l.active == "" {
		return nil, nil
	}
	c, err := l.Case(l.active)
	if IsCode(err, CodeNotFound) {
		// Stale pointer: the case vanished out from under the marker.
		if clearErr := l.clearActive(); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}
	return c, err
}

// CloseResult reports the outcome of closing a case.
type CloseResult struct {
	Case      *Case `json:"case"`
	Forgotten bool  `json:"forgotten"`
}

// CloseCase merges the outcome into the case, marks it COMPLETED, clears the
// active pointer if it pointed here, and applies the auto-forget rule:
// a case closed with regret 0 whose every pressure event has been promoted
// (vacuously, a case with none) is deleted outright, pressure events and all.
// Knowledge must outlive its container; a container with nothing left to
// teach is removed, never archived.
func (l *Layer) CloseCase(id string, out Outcome) (*CloseResult, error) {
	c, err := l.Case(id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCompleted {
		return nil, invariantf("case %s is already closed", id)
	}

	regret := out.RegretScore()
	if regret < 0 || regret > 3 {
		return nil, validationErr("regret", fmt.Sprintf("must be 0-3, got %q", out.Regret))
	}
	out.Regret = strconv.Itoa(regret)

	c.Outcome = &out
	c.Status = StatusCompleted
	c.ClosedAt = timestamp()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := writeYAML(l.casePath(id), c); err != nil {
		return nil, err
	}

	if l.active == id {
		if err := l.clearActive(); err != nil {
			return nil, err
		}
	}

	if regret != 0 {
		return &CloseResult{Case: c, Forgotten: false}, nil
	}
	events, err := l.Pressures(id)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.PromotedTo == "" {
			return &CloseResult{Case: c, Forgotten: false}, nil
		}
	}

	if err := os.RemoveAll(l.caseDir(id)); err != nil {
		return nil, fmt.Errorf("forgetting case %s: %w", id, err)
	}
	return &CloseResult{Case: c, Forgotten: true}, nil
}

func (l *Layer) setActive(id string) error {
	if err := os.WriteFile(l.activePath(), []byte(id+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing active-case marker: %w", err)
	}
	l.active = id
	return nil
}

func (l *Layer) clearActive() error {
	if err := os.Remove(l.activePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing active-case marker: %w", err)
	}
	l.active = ""
	return nil
}

// --- Pressure operations ---

// LogPressureInput holds the input for recording a pressure event.
type LogPressureInput struct {
	CaseID     string
	Category   string
	Tags       []string
	Expected   string
	Actual     string
	Adaptation string
	Lesson     string
}

// LogPressure records a divergence between expectation and reality against
// an explicit case, or the active case when none is given.
func (l *Layer) LogPressure(in LogPressureInput) (*PressureEvent, error) {
	caseID := in.CaseID
	if caseID == "" {
		caseID = l.active
	}
	if caseID == "" {
		return nil, noActiveCase()
	}

	c, err := l.Case(caseID)
	if err != nil {
		return nil, err
	}

	l.pressureSeq++
	ev := &PressureEvent{
		ID:         fmt.Sprintf("PE-%04d", l.pressureSeq),
		CaseID:     c.ID,
		CreatedAt:  timestamp(),
		Category:   in.Category,
		Tags:       in.Tags,
		Expected:   in.Expected,
		Actual:     in.Actual,
		Adaptation: in.Adaptation,
		Lesson:     in.Lesson,
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	doc, err := l.loadPressures(c.ID)
	if err != nil {
		return nil, err
	}
	doc.Events = append(doc.Events, *ev)
	if err := writeYAML(l.pressuresPath(c.ID), doc); err != nil {
		return nil, err
	}

	// Second write: the case's back-reference list. A crash between the two
	// leaves them inconsistent; accepted, see SuggestReview for recovery.
	c.PressureIDs = append(c.PressureIDs, ev.ID)
	if err := writeYAML(l.casePath(c.ID), c); err != nil {
		return nil, err
	}
	return ev, nil
}

// Pressures returns all pressure events owned by a case.
func (l *Layer) Pressures(caseID string) ([]PressureEvent, error) {
	doc, err := l.loadPressures(caseID)
	if err != nil {
		return nil, err
	}
	return doc.Events, nil
}

// SearchPressures does a case-insensitive substring scan across the
// narrative fields and tags of every pressure event in the layer.
// No ranking; matches come back in case order.
func (l *Layer) SearchPressures(query string) ([]PressureEvent, error) {
	q := strings.ToLower(query)

	entries, err := os.ReadDir(l.casesPath())
	if err != nil {
		return nil, fmt.Errorf("reading cases directory: %w", err)
	}

	var matches []PressureEvent
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var doc pressureDoc
		if err := readYAML(l.pressuresPath(entry.Name()), &doc); err != nil {
			continue
		}
		for _, ev := range doc.Events {
			if pressureMatches(&ev, q) {
				matches = append(matches, ev)
			}
		}
	}
	return matches, nil
}

func pressureMatches(ev *PressureEvent, q string) bool {
	for _, field := range []string{ev.Expected, ev.Actual, ev.Adaptation, ev.Lesson} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, tag := range ev.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (l *Layer) loadPressures(caseID string) (*pressureDoc, error) {
	var doc pressureDoc
	err := readYAML(l.pressuresPath(caseID), &doc)
	if os.IsNotExist(err) {
		return &pressureDoc{}, nil
	}
	if err != nil {
		return nil, &StoreError{Code: CodeValidationFailed, Message: fmt.Sprintf("pressure collection for %s is unreadable", caseID), Err: err}
	}
	return &doc, nil
}

// --- Foundation operations ---

// FoundationFilter narrows foundation listings.
type FoundationFilter struct {
	Tags          []string // any overlap
	MinConfidence int      // inclusive; 0 passes everything
}

// Foundations returns the layer's foundations, optionally filtered.
func (l *Layer) Foundations(filter FoundationFilter) ([]Foundation, error) {
	doc, err := l.loadFoundations()
	if err != nil {
		return nil, err
	}

	var result []Foundation
	for _, f := range doc.Foundations {
		if f.Confidence < filter.MinConfidence {
			continue
		}
		if len(filter.Tags) > 0 && !tagsOverlap(f.Tags, filter.Tags) {
			continue
		}
		result = append(result, f)
	}
	return result, nil
}

func tagsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// PromoteInput holds the input for compressing pressure events into a
// foundation.
type PromoteInput struct {
	Title         string
	Behavior      string
	Tags          []string
	CounterTags   []string
	ExitCriteria  string
	Sources       []string // pressure event ids
	OriginProject string
}

// Promote creates a foundation at confidence 1 from one or more pressure
// events, then marks each locatable source event as promoted. A source id
// that cannot be found anywhere in the layer is logged and skipped —
// a dangling reference never blocks foundation creation.
func (l *Layer) Promote(in PromoteInput) (*Foundation, error) {
	f := Foundation{
		ID:              l.nextFoundationID(l.cfg.Scope),
		Title:           in.Title,
		Behavior:        in.Behavior,
		Tags:            in.Tags,
		CounterTags:     in.CounterTags,
		Confidence:      1,
		Scope:           l.cfg.Scope,
		OriginProject:   in.OriginProject,
		ExitCriteria:    in.ExitCriteria,
		SourcePressures: in.Sources,
		CreatedAt:       timestamp(),
		UpdatedAt:       timestamp(),
	}
	if in.OriginProject != "" {
		f.ValidatedIn = []string{in.OriginProject}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := l.appendFoundation(f); err != nil {
		return nil, err
	}

	for _, src := range in.Sources {
		if err := l.markPromoted(src, f.ID); err != nil {
			log.Printf("WARNING: source pressure %s not marked as promoted: %v", src, err)
		}
	}
	return &f, nil
}

// nextFoundationID allocates from the shared foundation counter, choosing
// the prefix by scope.
func (l *Layer) nextFoundationID(scope Scope) string {
	l.foundationSeq++
	prefix := "F"
	if scope == ScopeGlobal {
		prefix = "GF"
	}
	return fmt.Sprintf("%s-%04d", prefix, l.foundationSeq)
}

func (l *Layer) appendFoundation(f Foundation) error {
	doc, err := l.loadFoundations()
	if err != nil {
		return err
	}
	doc.Foundations = append(doc.Foundations, f)
	return writeYAML(l.foundationsPath(), doc)
}

// markPromoted locates the case owning a pressure event (the event id alone
// does not encode its owner, so this scans all cases) and stamps its
// promoted_to field. The field is only ever set once.
func (l *Layer) markPromoted(pressureID, foundationID string) error {
	entries, err := os.ReadDir(l.casesPath())
	if err != nil {
		return fmt.Errorf("reading cases directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var doc pressureDoc
		if err := readYAML(l.pressuresPath(entry.Name()), &doc); err != nil {
			continue
		}
		for i := range doc.Events {
			if doc.Events[i].ID != pressureID {
				continue
			}
			if doc.Events[i].PromotedTo == "" {
				doc.Events[i].PromotedTo = foundationID
				if err := writeYAML(l.pressuresPath(entry.Name()), &doc); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return notFoundf("pressure event %q not found in any case", pressureID)
}

// FoundationPatch holds partial update fields for a foundation. Nil fields
// are left untouched.
type FoundationPatch struct {
	Title        *string
	Behavior     *string
	Tags         []string
	CounterTags  []string
	Confidence   *int
	ExitCriteria *string
	ValidatedIn  []string
}

// UpdateFoundation merges a patch into an existing foundation, stamps the
// update timestamp, re-validates, and persists.
func (l *Layer) UpdateFoundation(id string, patch FoundationPatch) (*Foundation, error) {
	doc, err := l.loadFoundations()
	if err != nil {
		return nil, err
	}

	for i := range doc.Foundations {
		if doc.Foundations[i].ID != id {
			continue
		}
		f := &doc.Foundations[i]
		if patch.Title != nil {
			f.Title = *patch.Title
		}
		if patch.Behavior != nil {
			f.Behavior = *patch.Behavior
		}
		if patch.Tags != nil {
			f.Tags = patch.Tags
		}
		if patch.CounterTags != nil {
			f.CounterTags = patch.CounterTags
		}
		if patch.Confidence != nil {
			f.Confidence = *patch.Confidence
		}
		if patch.ExitCriteria != nil {
			f.ExitCriteria = *patch.ExitCriteria
		}
		if patch.ValidatedIn != nil {
			f.ValidatedIn = patch.ValidatedIn
		}
		f.UpdatedAt = timestamp()
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if err := writeYAML(l.foundationsPath(), doc); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, notFoundf("foundation %q not found", id)
}

// RemoveFoundation deletes a foundation by id, reporting whether an entry
// was found. A missing id or missing collection is not an error.
func (l *Layer) RemoveFoundation(id string) (bool, error) {
	doc, err := l.loadFoundations()
	if err != nil {
		return false, err
	}

	for i := range doc.Foundations {
		if doc.Foundations[i].ID == id {
			doc.Foundations = append(doc.Foundations[:i], doc.Foundations[i+1:]...)
			return true, writeYAML(l.foundationsPath(), doc)
		}
	}
	return false, nil
}

// foundationByID finds a foundation in this layer.
func (l *Layer) foundationByID(id string) (*Foundation, bool, error) {
	doc, err := l.loadFoundations()
	if err != nil {
		return nil, false, err
	}
	for i := range doc.Foundations {
		if doc.Foundations[i].ID == id {
			return &doc.Foundations[i], true, nil
		}
	}
	return nil, false, nil
}

func (l *Layer) loadFoundations() (*foundationDoc, error) {
	var doc foundationDoc
	err := readYAML(l.foundationsPath(), &doc)
	if os.IsNotExist(err) {
		return &foundationDoc{}, nil
	}
	if err != nil {
		// Unlike case documents, a corrupt foundation collection aborts:
		// silently dropping durable guidance would be worse than failing.
		return nil, &StoreError{Code: CodeValidationFailed, Message: "foundation collection is unreadable", Err: err}
	}
	return &doc, nil
}

// --- Document helpers ---

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

func timestamp() string {
	return timeNow().UTC().Format(time.RFC3339)
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
