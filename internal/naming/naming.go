// Package naming implements keel's location-aware name suggestion (the
// `name <description>` command, §6): given a free-text description of what a
// new function/class does, suggest a name that matches the naming convention
// and vocabulary already established in a module, refusing to guess when the
// description doesn't resemble anything the module already does.
package naming

import (
	"fmt"
	"strings"

	"github.com/FryrAI/keel/internal/discover"
	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/store"
)

// ConfidenceThreshold is the minimum keyword-overlap score a suggestion must
// clear before it is offered; below it `name` aborts rather than guess
// (§6 "abort with low-confidence message below threshold").
const ConfidenceThreshold = 0.2

// Convention is the dominant identifier casing observed among a module's
// existing names.
type Convention string

const (
	ConventionSnakeCase Convention = "snake_case"
	ConventionCamelCase Convention = "camelCase"
	ConventionPascalCase Convention = "PascalCase"
)

// Suggestion is the answer to a `name` query.
type Suggestion struct {
	Name       string
	Convention Convention
	Module     string // module's file path
	Confidence float64
	Rationale  string
}

// stopWords are filtered out of a description before keyword extraction;
// they carry no naming signal on their own.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "for": true,
	"and": true, "or": true, "that": true, "this": true, "it": true,
	"is": true, "are": true, "with": true, "from": true, "into": true,
	"by": true, "on": true, "in": true, "new": true, "function": true,
}

// Suggest resolves moduleSelector (any selector discover.Resolve accepts) to
// its module, scores description's keywords against the module's profile and
// sibling names, and returns a name following the module's convention. It
// returns an error (not a Suggestion) when the best score falls below
// ConfidenceThreshold, per the command's abort contract.
func Suggest(s *store.GraphStore, moduleSelector, description string) (*Suggestion, error) {
	n, _, err := discover.Resolve(s, moduleSelector)
	if err != nil {
		return nil, err
	}

	moduleID := n.ModuleID
	modulePath := n.FilePath
	if n.Kind == graph.KindModule {
		moduleID = n.ID
	}

	profile, err := s.GetModuleProfile(moduleID)
	if err != nil {
		return nil, err
	}

	siblings, err := s.NodesByFile(modulePath)
	if err != nil {
		return nil, err
	}

	keywords := extractKeywords(description)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("naming: description %q yields no usable keywords", description)
	}

	score, matched := scoreKeywords(keywords, profile)
	if score < ConfidenceThreshold {
		return nil, fmt.Errorf("naming: %q does not resemble module %s closely enough (score %.2f below threshold %.2f); refusing to guess a name", description, modulePath, score, ConfidenceThreshold)
	}

	conv := detectConvention(siblings)
	prefix := dominantPrefix(profile)
	name := assemble(prefix, matched, keywords, conv)

	rationale := fmt.Sprintf("matched keyword(s) [%s] against module %s's profile", strings.Join(matched, ", "), modulePath)
	if prefix != "" {
		rationale += fmt.Sprintf("; reused existing prefix %q", prefix)
	}

	return &Suggestion{
		Name:       name,
		Convention: conv,
		Module:     modulePath,
		Confidence: score,
		Rationale:  rationale,
	}, nil
}

// extractKeywords lowercases, splits description on runs of characters other
// than ASCII letters and digits, and
// drops stop words and single-letter tokens.
func extractKeywords(description string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		w := cur.String()
		cur.Reset()
		if len(w) < 2 || stopWords[w] {
			return
		}
		out = append(out, w)
	}
	for _, r := range strings.ToLower(description) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// scoreKeywords rates description keywords against a module's
// ResponsibilityKeywords and NamePrefixes, returning the fraction of
// keywords that matched something and which ones did.
func scoreKeywords(keywords []string, p *graph.ModuleProfile) (float64, []string) {
	if p == nil || len(keywords) == 0 {
		return 0, nil
	}
	vocab := map[string]bool{}
	for _, kw := range p.ResponsibilityKeywords {
		vocab[strings.ToLower(kw)] = true
	}
	for _, pre := range p.NamePrefixes {
		vocab[strings.ToLower(pre)] = true
	}

	var matched []string
	for _, kw := range keywords {
		for v := range vocab {
			if v != "" && (strings.Contains(v, kw) || strings.Contains(kw, v)) {
				matched = append(matched, kw)
				break
			}
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	return float64(len(matched)) / float64(len(keywords)), matched
}

// dominantPrefix returns the module's most common existing name prefix, if
// any, so a suggestion can slot into an established family (e.g. `parse_*`).
func dominantPrefix(p *graph.ModuleProfile) string {
	if p == nil || len(p.NamePrefixes) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, pre := range p.NamePrefixes {
		if pre != "" {
			counts[pre]++
		}
	}
	best, bestCount := "", 0
	// stable order: iterate NamePrefixes, not the map, so ties resolve to
	// first-seen rather than map order.
	seen := map[string]bool{}
	for _, pre := range p.NamePrefixes {
		if pre == "" || seen[pre] {
			continue
		}
		seen[pre] = true
		if counts[pre] > bestCount {
			best, bestCount = pre, counts[pre]
		}
	}
	return best
}

// detectConvention inspects sibling function/class names for underscore vs.
// capitalization patterns and returns whichever the majority follows.
func detectConvention(siblings []graph.Node) Convention {
	var snake, camel, pascal int
	for _, n := range siblings {
		if n.Kind == graph.KindModule || n.Name == "" {
			continue
		}
		switch {
		case strings.Contains(n.Name, "_"):
			snake++
		case n.Name[0] >= 'A' && n.Name[0] <= 'Z':
			pascal++
		default:
			camel++
		}
	}
	switch {
	case snake >= camel && snake >= pascal && snake > 0:
		return ConventionSnakeCase
	case pascal >= camel && pascal > 0:
		return ConventionPascalCase
	default:
		return ConventionCamelCase
	}
}

// assemble builds the final identifier: prefix (if any) followed by the
// matched keywords (all extracted keywords only when none matched), rendered
// in conv.
func assemble(prefix string, matched, all []string, conv Convention) string {
	words := matched
	if len(words) == 0 {
		words = all
	}
	if prefix != "" {
		already := false
		for _, w := range words {
			if w == strings.ToLower(prefix) {
				already = true
				break
			}
		}
		if !already {
			words = append([]string{strings.ToLower(prefix)}, words...)
		}
	}

	switch conv {
	case ConventionSnakeCase:
		return strings.Join(words, "_")
	case ConventionPascalCase:
		return joinCase(words, true)
	default:
		return joinCase(words, false)
	}
}

func joinCase(words []string, firstUpper bool) string {
	var b strings.Builder
	for i, w := range words {
		if w == "" {
			continue
		}
		if i == 0 && !firstUpper {
			b.WriteString(w)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}
