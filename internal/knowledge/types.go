// Package knowledge implements the hierarchical knowledge store behind
// Hindsight: cases (units of work), pressure events (expectation vs. reality
// divergences logged during a case), and foundations (durable guidance
// compressed from repeated pressure events).
//
// State lives in layer directories. A project layer sits in a `.hindsight/`
// directory discovered by walking up from the working directory; a single
// user-wide layer lives under the home directory. Cases and pressure events
// belong to the nearest project layer only; foundations are merged across
// layers with the project layer shadowing the global one.
package knowledge

import (
	"fmt"
	"strconv"
	"strings"
)

// --- Case status enum ---

// CaseStatus tracks the lifecycle of a case.
type CaseStatus string

const (
	StatusActive    CaseStatus = "ACTIVE"
	StatusCompleted CaseStatus = "COMPLETED"
	// StatusAbandoned is reserved: no operation currently produces it,
	// but persisted documents carrying it remain valid.
	StatusAbandoned CaseStatus = "ABANDONED"
)

// validStatuses is the set of allowed case statuses.
var validStatuses = map[CaseStatus]bool{
	StatusActive:    true,
	StatusCompleted: true,
	StatusAbandoned: true,
}

// --- Scope enum ---

// Scope marks where a layer or foundation lives in the hierarchy.
type Scope string

const (
	ScopeGlobal  Scope = "GLOBAL"
	ScopeProject Scope = "PROJECT"
)

// --- Context and outcome signals ---

// ContextSignals describe the decision context of a case. All values are
// open vocabularies: the documented constants below are the reference set
// used by the policy table, and unrecognized values are never rejected.
type ContextSignals struct {
	RiskLevel        string   `yaml:"risk_level,omitempty" json:"risk_level,omitempty"`
	Reversibility    string   `yaml:"reversibility,omitempty" json:"reversibility,omitempty"`
	ChangeFrequency  string   `yaml:"change_frequency,omitempty" json:"change_frequency,omitempty"`
	RepoScope        string   `yaml:"repo_scope,omitempty" json:"repo_scope,omitempty"`
	Uncertainty      string   `yaml:"uncertainty,omitempty" json:"uncertainty,omitempty"`
	Novelty          string   `yaml:"novelty,omitempty" json:"novelty,omitempty"`
	AffectedSurfaces []string `yaml:"affected_surfaces,omitempty" json:"affected_surfaces,omitempty"`
}

// Reference vocabulary for the policy table (see policy.go).
const (
	RiskHigh           = "HIGH"
	RiskMedium         = "MEDIUM"
	ReversibilityHard  = "HARD"
	RepoScopeCrossRepo = "CROSS_REPO"
	UncertaintyHigh    = "HIGH"

	SurfaceCoreDomain       = "CORE_DOMAIN"
	SurfaceDataModel        = "DATA_MODEL"
	SurfaceSecurityBoundary = "SECURITY_BOUNDARY"
	SurfaceInfraDeploy      = "INFRA_DEPLOY"
	SurfacePerfCritical     = "PERFORMANCE_CRITICAL"
	SurfaceIntegration      = "INTEGRATION"
)

// Outcome captures how a case ended. Set once, at close.
type Outcome struct {
	Regret      string   `yaml:"regret" json:"regret"`
	Regressions []string `yaml:"regressions,omitempty" json:"regressions,omitempty"`
	Notes       string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// RegretScore returns the numeric regret, or -1 if it doesn't parse.
func (o *Outcome) RegretScore() int {
	n, err := strconv.Atoi(strings.TrimSpace(o.Regret))
	if err != nil {
		return -1
	}
	return n
}

// --- Core entities ---

// Case is a bounded unit of work. It owns its pressure events and can be
// deleted wholesale when closing leaves nothing worth keeping.
type Case struct {
	ID           string          `yaml:"id" json:"id"`
	Title        string          `yaml:"title" json:"title"`
	Goal         string          `yaml:"goal" json:"goal"`
	Status       CaseStatus      `yaml:"status" json:"status"`
	CreatedAt    string          `yaml:"created_at" json:"created_at"`
	ClosedAt     string          `yaml:"closed_at,omitempty" json:"closed_at,omitempty"`
	Signals      *ContextSignals `yaml:"signals,omitempty" json:"signals,omitempty"`
	TouchedAreas []string        `yaml:"touched_areas,omitempty" json:"touched_areas,omitempty"`
	Outcome      *Outcome        `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	PressureIDs  []string        `yaml:"pressure_ids" json:"pressure_ids"`
}

// PressureEvent records one moment where reality diverged from expectation.
// Immutable after creation except for PromotedTo, which is set exactly once
// when the event is compressed into a foundation.
type PressureEvent struct {
	ID         string   `yaml:"id" json:"id"`
	CaseID     string   `yaml:"case_id" json:"case_id"`
	CreatedAt  string   `yaml:"created_at" json:"created_at"`
	Category   string   `yaml:"category,omitempty" json:"category,omitempty"`
	Tags       []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Expected   string   `yaml:"expected" json:"expected"`
	Actual     string   `yaml:"actual" json:"actual"`
	Adaptation string   `yaml:"adaptation" json:"adaptation"`
	Lesson     string   `yaml:"lesson" json:"lesson"`
	PromotedTo string   `yaml:"promoted_to,omitempty" json:"promoted_to,omitempty"`
}

// Foundation is durable guidance distilled from pressure events. It outlives
// the cases it came from; nothing deletes it except an explicit remove.
type Foundation struct {
	ID              string   `yaml:"id" json:"id"`
	Title           string   `yaml:"title" json:"title"`
	Behavior        string   `yaml:"behavior" json:"behavior"`
	Tags            []string `yaml:"tags" json:"tags"`
	CounterTags     []string `yaml:"counter_tags,omitempty" json:"counter_tags,omitempty"`
	Confidence      int      `yaml:"confidence" json:"confidence"`
	Scope           Scope    `yaml:"scope" json:"scope"`
	OriginProject   string   `yaml:"origin_project,omitempty" json:"origin_project,omitempty"`
	ValidatedIn     []string `yaml:"validated_in,omitempty" json:"validated_in,omitempty"`
	ExitCriteria    string   `yaml:"exit_criteria,omitempty" json:"exit_criteria,omitempty"`
	SourcePressures []string `yaml:"source_pressures" json:"source_pressures"`
	CreatedAt       string   `yaml:"created_at" json:"created_at"`
	UpdatedAt       string   `yaml:"updated_at" json:"updated_at"`
}

// LayerConfig is the per-layer configuration document.
type LayerConfig struct {
	Project    string            `yaml:"project" json:"project"`
	Version    int               `yaml:"version" json:"version"`
	Scope      Scope             `yaml:"scope" json:"scope"`
	Extensions map[string]string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

// ConfigVersion is the schema version written into new layer configs.
const ConfigVersion = 1

// --- Validation ---

// Validate checks structural validity of a case document.
func (c *Case) Validate() error {
	if c.ID == "" {
		return validationErr("id", "must not be empty")
	}
	if strings.TrimSpace(c.Title) == "" {
		return validationErr("title", "must not be empty")
	}
	if !validStatuses[c.Status] {
		return validationErr("status", fmt.Sprintf("unknown status %q", c.Status))
	}
	if c.Outcome != nil {
		if n := c.Outcome.RegretScore(); n < 0 || n > 3 {
			return validationErr("outcome.regret", fmt.Sprintf("must be 0-3, got %q", c.Outcome.Regret))
		}
	}
	return nil
}

// Validate checks structural validity of a pressure event.
func (p *PressureEvent) Validate() error {
	if p.ID == "" {
		return validationErr("id", "must not be empty")
	}
	if p.CaseID == "" {
		return validationErr("case_id", "must not be empty")
	}
	narratives := []struct{ field, value string }{
		{"expected", p.Expected},
		{"actual", p.Actual},
		{"adaptation", p.Adaptation},
		{"lesson", p.Lesson},
	}
	for _, n := range narratives {
		if strings.TrimSpace(n.value) == "" {
			return validationErr(n.field, "must not be empty")
		}
	}
	return nil
}

// Validate checks structural validity of a foundation.
func (f *Foundation) Validate() error {
	if f.ID == "" {
		return validationErr("id", "must not be empty")
	}
	if strings.TrimSpace(f.Title) == "" {
		return validationErr("title", "must not be empty")
	}
	if strings.TrimSpace(f.Behavior) == "" {
		return validationErr("behavior", "must not be empty")
	}
	if len(f.Tags) == 0 {
		return validationErr("tags", "at least one context tag is required")
	}
	if f.Confidence < 0 || f.Confidence > 3 {
		return validationErr("confidence", fmt.Sprintf("must be 0-3, got %d", f.Confidence))
	}
	if f.Scope != ScopeGlobal && f.Scope != ScopeProject {
		return validationErr("scope", fmt.Sprintf("unknown scope %q", f.Scope))
	}
	if len(f.SourcePressures) == 0 {
		return validationErr("source_pressures", "at least one source pressure event is required")
	}
	return nil
}

// Validate checks structural validity of a layer config document.
func (c *LayerConfig) Validate() error {
	if strings.TrimSpace(c.Project) == "" {
		return validationErr("project", "must not be empty")
	}
	if c.Scope != ScopeGlobal && c.Scope != ScopeProject {
		return validationErr("scope", fmt.Sprintf("unknown scope %q", c.Scope))
	}
	return nil
}

// --- Slug generation ---

const maxSlugLen = 50

// Slugify converts a case title into the slug part of its identifier.
// Lowercases, collapses runs of non-alphanumeric characters into a single
// hyphen, trims leading/trailing hyphens, and truncates to 50 characters.
// A title with no usable characters yields "untitled".
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}
