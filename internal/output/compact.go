package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FryrAI/keel/internal/graph"
)

// DefaultMaxTokens is the default LLM-compact token budget (§4.9).
const DefaultMaxTokens = 10_000

// EstimateTokens approximates a token count from byte length, using the
// common ~4-bytes-per-token heuristic; exact tokenization is model-specific
// and out of scope for a deterministic CLI budget check.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// RenderCompact renders a Result's violations in the LLM-compact shape:
// one line per violation, signature/docstring/body intentionally omitted
// (retrievable via `discover`), budget-truncated deterministically.
func RenderCompact(r Result, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if r.IsClean() {
		return ""
	}

	all := append(append([]graph.Violation{}, r.Errors...), r.Warnings...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].File != all[j].File {
			return all[i].File < all[j].File
		}
		return all[i].Line < all[j].Line
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Command, r.Status)

	used := EstimateTokens(b.String())
	shown := 0
	for _, v := range all {
		line := compactViolationLine(v)
		cost := EstimateTokens(line) + 1
		if used+cost > maxTokens {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
		used += cost
		shown++
	}
	if shown < len(all) {
		fmt.Fprintf(&b, "...%d more (elided, budget %d tokens)\n", len(all)-shown, maxTokens)
	}
	return b.String()
}

func compactViolationLine(v graph.Violation) string {
	hash7 := v.Hash
	if len(hash7) > 7 {
		hash7 = hash7[:7]
	}
	return fmt.Sprintf("%s:%s %s:%d %s", v.Code, string(v.Severity)[:1], v.File, v.Line, hash7)
}

// FunctionMapEntry is one function's compact-map row (§4.9 "per-function
// name:hash7↑in↓out (plus E marker for endpoint-owners)").
type FunctionMapEntry struct {
	Name        string
	Hash        string
	CallersIn   int
	CalleesOut  int
	HasEndpoint bool
}

// ModuleMapEntry is one module's compact-map row (§4.9 "mod:name[N_fns,M_E]").
type ModuleMapEntry struct {
	ModuleID      string
	FunctionCount int
	EndpointCount int
	Functions     []FunctionMapEntry
}

// RenderModuleMapCompact renders the LLM-compact structural map used by
// `map`/`discover`/`analyze` (§4.9), budget-truncated deterministically by a
// stable sort on module id then function name.
func RenderModuleMapCompact(entries []ModuleMapEntry, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ModuleID < entries[j].ModuleID })

	var b strings.Builder
	used := 0
	elidedModules := 0
	for _, m := range entries {
		sort.SliceStable(m.Functions, func(i, j int) bool { return m.Functions[i].Name < m.Functions[j].Name })

		header := fmt.Sprintf("mod:%s[%d_fns,%d_E]", m.ModuleID, m.FunctionCount, m.EndpointCount)
		headerCost := EstimateTokens(header) + 1
		if used+headerCost > maxTokens {
			elidedModules++
			continue
		}
		b.WriteString(header)
		b.WriteByte('\n')
		used += headerCost

		elidedFns := 0
		for _, f := range m.Functions {
			line := functionMapLine(f)
			cost := EstimateTokens(line) + 1
			if used+cost > maxTokens {
				elidedFns++
				continue
			}
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
			used += cost
		}
		if elidedFns > 0 {
			fmt.Fprintf(&b, "  ...%d more (elided)\n", elidedFns)
		}
	}
	if elidedModules > 0 {
		fmt.Fprintf(&b, "...%d more modules (elided, budget %d tokens)\n", elidedModules, maxTokens)
	}
	return b.String()
}

func functionMapLine(f FunctionMapEntry) string {
	hash7 := f.Hash
	if len(hash7) > 7 {
		hash7 = hash7[:7]
	}
	line := fmt.Sprintf("%s:%s↑%d↓%d", f.Name, hash7, f.CallersIn, f.CalleesOut)
	if f.HasEndpoint {
		line += "E"
	}
	return line
}
