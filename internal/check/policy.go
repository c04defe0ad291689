package check

import (
	"strings"

	"github.com/FryrAI/keel/internal/graph"
)

// Policy configures the universal severity rules applied to every violation
// (§4.5 "Universal rules", §9).
type Policy struct {
	// ProgressiveAdoption downgrades ERROR to WARNING for violations on code
	// that predates keel's initialization in this repo, when true.
	ProgressiveAdoption bool
	// Suppressions lists inline/configured suppression keys of the form
	// "<code>" or "<code>:<hash>"; a match turns a violation into S001.
	Suppressions map[string]bool
}

// DefaultPolicy matches spec.md's default: progressive adoption on,
// confidence downgrade always on (it is not configurable, §9), no
// suppressions until configured.
func DefaultPolicy() Policy {
	return Policy{ProgressiveAdoption: true, Suppressions: map[string]bool{}}
}

// Apply runs the universal severity rules over a freshly produced violation:
// confidence-based downgrade, progressive-adoption downgrade, and
// suppression. firstSeenUnix/keelInitUnix are both "0, false" when unknown,
// in which case progressive adoption does not apply (conservatively treated
// as new code).
func (p Policy) Apply(v *graph.Violation, firstSeenUnix int64, hasFirstSeen bool, keelInitUnix int64, hasKeelInit bool) {
	if v.Severity == graph.SeverityError && v.Confidence < graph.DowngradeConfidenceThreshold {
		// Dynamic-dispatch gating (§9): never ERROR below the confidence
		// threshold, regardless of which rule produced the violation.
		v.Severity = graph.SeverityWarn
	}

	if p.ProgressiveAdoption && v.Severity == graph.SeverityError && hasFirstSeen && hasKeelInit && firstSeenUnix < keelInitUnix {
		v.Severity = graph.SeverityWarn
	}

	if p.isSuppressed(v) {
		v.Severity = graph.SeverityInfo
		v.Category = "suppressed"
		v.Code = "S001"
	}
}

func (p Policy) isSuppressed(v *graph.Violation) bool {
	if p.Suppressions == nil {
		return false
	}
	if p.Suppressions[v.Code] {
		return true
	}
	return p.Suppressions[v.Code+":"+v.Hash]
}

// InlineSuppressed reports whether a source line carries keel's inline
// suppression marker ("// keel:ignore" or "// keel:ignore CODE1,CODE2"),
// optionally scoped to a specific violation code.
func InlineSuppressed(line, code string) bool {
	idx := strings.Index(line, "keel:ignore")
	if idx < 0 {
		return false
	}
	rest := strings.TrimSpace(line[idx+len("keel:ignore"):])
	if rest == "" {
		return true
	}
	for _, c := range strings.Split(rest, ",") {
		if strings.EqualFold(strings.TrimSpace(c), code) {
			return true
		}
	}
	return false
}
