package engine

import (
	"github.com/FryrAI/keel/internal/enhance"
	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/parser"
	"github.com/FryrAI/keel/internal/store"
)

// runStructuralChecks runs the per-node checkers (E001-E004, W001-W002)
// over one file's node delta and returns every raw violation before policy/
// breaker/batch have been applied (§4.6 step 8).
func (e *Engine) runStructuralChecks(changes []store.NodeChange, removed []graph.Node, removedEdgesIn map[string][]graph.Edge, profiles []graph.ModuleProfile) ([]graph.Violation, error) {
	var out []graph.Violation

	for _, nc := range changes {
		if nc.Node.Kind != graph.KindFunction {
			continue
		}

		if nc.Kind == store.ChangeUpdated {
			v, err := e.Checker.CheckSignatureChange(nc)
			if err != nil {
				return nil, err
			}
			if v != nil {
				out = append(out, *v)
			}
		}

		if v := e.Checker.CheckMissingTypeHints(nc.Node); v != nil {
			out = append(out, *v)
		} else {
			e.Breaker.Succeed("E002", nc.Node.Hash)
		}
		if v := e.Checker.CheckMissingDocstring(nc.Node); v != nil {
			out = append(out, *v)
		} else {
			e.Breaker.Succeed("E003", nc.Node.Hash)
		}
		if nc.Kind == store.ChangeAdded {
			v, err := e.Checker.CheckDuplicateName(nc.Node)
			if err != nil {
				return nil, err
			}
			if v != nil {
				out = append(out, *v)
			}

			var currentProfile *graph.ModuleProfile
			for i := range profiles {
				if profiles[i].ModuleID == nc.Node.ModuleID {
					currentProfile = &profiles[i]
					break
				}
			}
			if v := e.Checker.CheckPlacement(nc.Node, currentProfile, profiles); v != nil {
				out = append(out, *v)
			}
		}
	}

	for _, r := range removed {
		if r.Kind != graph.KindFunction {
			continue
		}
		if v := e.Checker.CheckRemoved(r, removedEdgesIn[r.ID]); v != nil {
			out = append(out, *v)
		}
	}

	return out, nil
}

// runArityChecks implements E005 over every call reference that resolves to
// a known callee, including references found in fanned-out neighbor files
// whose own fingerprint did not change (§4.6 step 2, step 8).
func (e *Engine) runArityChecks(refs []parser.Reference, resolvedTarget func(parser.Reference) (graph.Node, bool)) []graph.Violation {
	var out []graph.Violation
	for _, ref := range refs {
		if ref.Kind != parser.RefCall {
			continue
		}
		callee, ok := resolvedTarget(ref)
		if !ok {
			continue
		}
		if v := e.Checker.CheckArity(ref, callee); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// runAnnotatedChecks turns an enhancer's diagnostic annotations into
// violations instead of letting the edge (which carries no resolvable
// TargetID) be silently discarded. Today the only annotation this covers is
// Go's "unexported cross-package reference" (§4.3 scenario 4); other
// annotations (e.g. "interface dispatch") describe a resolved-but-uncertain
// edge, not a violation, and are left alone.
func (e *Engine) runAnnotatedChecks(resolved []enhance.Resolved, refs []parser.Reference, callerFor func(parser.Reference) (graph.Node, bool)) []graph.Violation {
	var out []graph.Violation
	for _, res := range resolved {
		if res.Annotation != "unexported cross-package reference" {
			continue
		}
		ref := findRefByLoc(refs, res.Edge.FilePath, res.Edge.Line)
		caller, ok := callerFor(ref)
		if !ok {
			continue
		}
		if v := e.Checker.CheckUnexportedReference(ref, caller); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// applyPolicyChain runs the universal severity policy, then the circuit
// breaker, then batch containment, over one violation (§4.6 step 8-9). The
// returned bool reports whether the violation should appear in this
// invocation's immediate output (false if batch deferred it).
func (e *Engine) applyPolicyChain(v graph.Violation, nowUnix int64) (graph.Violation, bool) {
	firstSeen, hasFirstSeen, _ := e.Store.NodeFirstSeen(v.NodeID)
	keelInit, hasKeelInit, _ := e.Store.KeelInitAt()

	e.Checker.Policy.Apply(&v, firstSeen, hasFirstSeen, keelInit, hasKeelInit)
	e.Breaker.Apply(&v)

	deferred := e.Batch.Offer(v, unixToTime(nowUnix))
	return v, !deferred
}
