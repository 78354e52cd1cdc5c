package knowledge

import "strings"

// Validation levels, strictest first.
const (
	ValidationStrict   = "STRICT"
	ValidationStandard = "STANDARD"
	ValidationBasic    = "BASIC"
)

// PolicyResult is the outcome of evaluating context signals against the
// decision policy table.
type PolicyResult struct {
	RequireOptionsComparison bool   `yaml:"require_options_comparison" json:"require_options_comparison"`
	ValidationLevel          string `yaml:"validation_level" json:"validation_level"`
}

// CheckPolicy evaluates the decision table over a case's context signals.
// Pure function, no I/O. Each condition is evaluated independently; any
// match sets the corresponding flag. Signal values are compared
// case-insensitively since the vocabularies are open.
func CheckPolicy(sig ContextSignals) PolicyResult {
	risk := strings.ToUpper(sig.RiskLevel)
	reversibility := strings.ToUpper(sig.Reversibility)
	repoScope := strings.ToUpper(sig.RepoScope)
	uncertainty := strings.ToUpper(sig.Uncertainty)
	surfaces := make(map[string]bool, len(sig.AffectedSurfaces))
	for _, s := range sig.AffectedSurfaces {
		surfaces[strings.ToUpper(s)] = true
	}

	result := PolicyResult{ValidationLevel: ValidationBasic}

	if reversibility == ReversibilityHard ||
		risk == RiskHigh ||
		repoScope == RepoScopeCrossRepo ||
		surfaces[SurfaceCoreDomain] || surfaces[SurfaceDataModel] || surfaces[SurfaceSecurityBoundary] ||
		uncertainty == UncertaintyHigh {
		result.RequireOptionsComparison = true
	}

	switch {
	case risk == RiskHigh ||
		reversibility == ReversibilityHard ||
		surfaces[SurfaceSecurityBoundary] || surfaces[SurfaceInfraDeploy] ||
		surfaces[SurfacePerfCritical] || surfaces[SurfaceDataModel] ||
		uncertainty == UncertaintyHigh:
		result.ValidationLevel = ValidationStrict
	case risk == RiskMedium ||
		repoScope == RepoScopeCrossRepo ||
		surfaces[SurfaceIntegration] || surfaces[SurfaceCoreDomain]:
		result.ValidationLevel = ValidationStandard
	}

	return result
}
