package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/FryrAI/keel/internal/enhance"
	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/output"
	"github.com/FryrAI/keel/internal/parser"
	"github.com/FryrAI/keel/internal/store"
)

// unit is one file carried through the pipeline: its fresh parse, its
// previously stored nodes, and whether it is a primary (reparsed-because-
// selected) file or a one-hop fan-out neighbor pulled in read-only to
// re-validate call sites against an updated callee (§4.6 step 2).
type unit struct {
	path     string
	content  []byte
	parsed   *parser.ParsedFile
	built    built
	existing []graph.Node
	isFanOut bool

	changes  []store.NodeChange
	removed  []graph.Node
	resolved []enhance.Resolved
	profile  graph.ModuleProfile
}

// Compile runs one compile invocation end to end (§4.6) and returns the
// rendered Result.
func (e *Engine) Compile(ctx context.Context, opts Options) (output.Result, error) {
	ctx = ensureCtx(ctx)
	now := time.Now()

	if opts.BatchStart {
		e.Batch.Start(now)
	}

	// Step 1: resolve selector to a canonical, ignore-filtered file list.
	selected, err := e.selectFiles(ctx, opts)
	if err != nil {
		return output.Result{}, fmt.Errorf("engine: select files: %w", err)
	}
	explicit := len(opts.Files) > 0 || opts.Changed || opts.Since != "" || opts.Command == "map"

	// Step 2 (fingerprint half): skip files whose content fingerprint is
	// unchanged, unless explicitly named or this is a full `map`.
	var units []*unit
	touched := map[string]bool{}
	for _, rel := range selected {
		content, err := os.ReadFile(filepath.Join(e.Root, rel))
		if err != nil {
			logger().Warn("skip unreadable file %s: %v", rel, err)
			continue
		}
		fp := fmt.Sprintf("%d", parser.ContentFingerprint(content))
		stored, had, _ := e.Store.GetFingerprint(rel)
		if had && stored == fp && !explicit {
			continue
		}
		units = append(units, &unit{path: rel, content: content})
		touched[rel] = true
	}

	runID := store.NewRunID()

	// Step 3: pre-fetch existing nodes per touched file, one indexed query
	// per file rather than per checker.
	for _, u := range units {
		existing, err := e.Store.NodesByFile(u.path)
		if err != nil {
			return output.Result{}, fmt.Errorf("engine: prefetch nodes for %s: %w", u.path, err)
		}
		u.existing = existing
	}

	// Step 4: parse selected files in parallel.
	inputs := make([]parser.FileInput, len(units))
	for i, u := range units {
		inputs[i] = parser.FileInput{Path: u.path, Content: u.content}
	}
	results := parser.ParseAll(e.Grammars, inputs)

	byPath := make(map[string]*parser.ParsedFile, len(results))
	var parseFailures []graph.Violation
	for i, r := range results {
		if r.Err != nil {
			logger().Warn("parse error: %v", r.Err)
			parseFailures = append(parseFailures, graph.Violation{
				Code: "E000", Severity: graph.SeverityWarn, Category: "parse_error",
				Message: r.Err.Error(), File: units[i].path,
			})
			continue
		}
		units[i].parsed = r.Parsed
		byPath[r.Path] = r.Parsed
		units[i].built = buildNodes(r.Parsed)
	}

	// Step 2 (fan-out half): one-hop propagation to direct callers of a
	// function whose signature just changed, parsed read-only so their
	// call sites can be re-validated (E005) without committing their own
	// node/edge state (§4.6 step 2, §9 Open Question (a): one hop).
	var updatedFuncIDs []string
	for _, u := range units {
		if u.parsed == nil {
			continue
		}
		changes, _ := diffNodes(u.existing, u.built)
		for _, c := range changes {
			if c.Kind == store.ChangeUpdated && c.Node.Kind == graph.KindFunction {
				updatedFuncIDs = append(updatedFuncIDs, c.Node.ID)
			}
		}
	}
	fanOutPaths, err := e.fanOut(updatedFuncIDs, touched)
	if err != nil {
		return output.Result{}, fmt.Errorf("engine: fan-out: %w", err)
	}
	for _, rel := range fanOutPaths {
		content, err := os.ReadFile(filepath.Join(e.Root, rel))
		if err != nil {
			continue
		}
		pf, perr := parser.ParseFile(e.Grammars, rel, content)
		if perr != nil {
			continue
		}
		byPath[rel] = pf
		units = append(units, &unit{path: rel, content: content, parsed: pf, built: buildNodes(pf), isFanOut: true})
	}

	// Step 5: enhancer dispatch, lazily instantiated per language present.
	idx := buildIndex(byPath, units)
	enhancers := map[parser.Language]enhance.Enhancer{}

	for _, u := range units {
		if u.parsed == nil {
			continue
		}
		enh := enhancers[u.parsed.Language]
		if enh == nil {
			enh = enhance.ForLanguage(u.parsed.Language)
			enhancers[u.parsed.Language] = enh
		}
		if enh == nil {
			continue
		}
		resolved := enh.Enhance(u.parsed, idx)
		resolved, err = e.resolveWithStoreFallback(u.parsed.Refs, resolved)
		if err != nil {
			return output.Result{}, fmt.Errorf("engine: store fallback resolve: %w", err)
		}
		u.resolved = resolved

		if !u.isFanOut {
			changes, removed := diffNodes(u.existing, u.built)
			u.changes = changes
			u.removed = removed
			u.profile = computeModuleProfile(u.built.moduleID, u.path, valuesOf(u.built.nodes))
		}
	}

	// Snapshot every removed function's in-edges BEFORE any
	// DeleteEdgesForFile call below can erase an incoming edge recorded
	// against a sibling file in this same batch (§3 Lifecycle).
	removedEdgesIn := map[string][]graph.Edge{}
	var nodeChanges []store.NodeChange
	var removedNodes []graph.Node
	for _, u := range units {
		if u.isFanOut {
			continue
		}
		nodeChanges = append(nodeChanges, u.changes...)
		removedNodes = append(removedNodes, u.removed...)
		for _, r := range u.removed {
			if r.Kind != graph.KindFunction {
				continue
			}
			in, _ := e.Store.Edges(r.ID, store.DirectionIn)
			removedEdgesIn[r.ID] = in
		}
	}

	// Step 6/7: clear each primary file's previously recorded edges, then
	// build the fresh edge set with SourceID resolved against this file's
	// own node set (or the module node, for a top-level call).
	var edgeChanges []store.EdgeChange
	for _, u := range units {
		if u.isFanOut || u.parsed == nil {
			continue
		}
		if err := e.Store.DeleteEdgesForFile(u.path); err != nil {
			return output.Result{}, fmt.Errorf("engine: delete stale edges for %s: %w", u.path, err)
		}
		for _, res := range u.resolved {
			if res.Edge.TargetID == "" {
				continue // unresolved reference: no edge is stored without a target node
			}
			ref := findRefByLoc(u.parsed.Refs, res.Edge.FilePath, res.Edge.Line)
			res.Edge.SourceID = edgeSourceID(u.built, ref)
			edgeChanges = append(edgeChanges, store.EdgeChange{Kind: store.ChangeAdded, Edge: res.Edge})
		}
	}

	if err := e.Store.Apply(nodeChanges, edgeChanges); err != nil {
		return output.Result{}, fmt.Errorf("engine: apply: %w", err)
	}

	for _, nc := range nodeChanges {
		if nc.Kind == store.ChangeAdded {
			_ = e.Store.RecordNodeFirstSeen(nc.Node.ID, now.Unix())
		}
		if len(nc.Node.ExternalEndpoints) > 0 {
			_ = e.Store.PutEndpoints(nc.Node.ID, nc.Node.ExternalEndpoints)
		}
	}
	for _, u := range units {
		if u.isFanOut || u.parsed == nil {
			continue
		}
		_ = e.Store.PutModuleProfile(u.profile)
	}

	allProfiles, err := e.Store.AllModuleProfiles()
	if err != nil {
		return output.Result{}, fmt.Errorf("engine: load profiles: %w", err)
	}

	// Step 8: violation checkers over the delta + pre-fetched neighborhood.
	raw, err := e.runStructuralChecks(nodeChanges, removedNodes, removedEdgesIn, allProfiles)
	if err != nil {
		return output.Result{}, fmt.Errorf("engine: checks: %w", err)
	}

	for _, u := range units {
		if u.parsed == nil {
			continue
		}
		calleeFor := func(ref parser.Reference) (graph.Node, bool) {
			for _, r := range u.resolved {
				if r.Edge.FilePath == ref.FilePath && r.Edge.Line == ref.Line && r.Edge.TargetID != "" {
					if n, ok := u.built.nodes[r.Edge.TargetID]; ok {
						return n, true
					}
					if n, err := e.Store.GetNodeByID(r.Edge.TargetID); err == nil && n != nil {
						return *n, true
					}
				}
			}
			return graph.Node{}, false
		}
		raw = append(raw, e.runArityChecks(u.parsed.Refs, calleeFor)...)

		callerFor := func(ref parser.Reference) (graph.Node, bool) {
			id := edgeSourceID(u.built, ref)
			if n, ok := u.built.nodes[id]; ok {
				return n, true
			}
			if n, err := e.Store.GetNodeByID(id); err == nil && n != nil {
				return *n, true
			}
			return graph.Node{}, false
		}
		raw = append(raw, e.runAnnotatedChecks(u.resolved, u.parsed.Refs, callerFor)...)
	}
	raw = append(raw, parseFailures...)

	// Step 8-9: dynamic-dispatch/progressive-adoption/suppression policy,
	// circuit breaker, batch containment.
	var immediate []graph.Violation
	for _, v := range raw {
		final, show := e.applyPolicyChain(v, now.Unix())
		if show {
			immediate = append(immediate, final)
		}
	}
	if opts.BatchEnd {
		immediate = append(immediate, e.Batch.End()...)
	}

	var errs, warns []graph.Violation
	for _, v := range immediate {
		switch v.Severity {
		case graph.SeverityError:
			errs = append(errs, v)
		case graph.SeverityWarn:
			warns = append(warns, v)
		}
	}

	// Step 10: delta bucketing against the prior snapshot.
	combined := append(append([]graph.Violation{}, errs...), warns...)
	if opts.Delta {
		prevRunID, _ := e.Store.LastRunID(runID)
		if buckets, err := e.Store.DiffSnapshot(prevRunID, combined); err == nil {
			errs, warns = bucketToSeverityLists(buckets)
			combined = append(append([]graph.Violation{}, errs...), warns...)
		}
	}

	// Step 11: write the new snapshot; record fresh fingerprints.
	_ = e.Store.WriteSnapshot(runID, combined, now.Unix())
	for _, u := range units {
		if u.isFanOut || u.parsed == nil {
			continue
		}
		_ = e.Store.PutFingerprint(u.path, fmt.Sprintf("%d", u.parsed.Fingerprint), runID)
	}

	var filesAnalyzed []string
	for _, u := range units {
		if !u.isFanOut {
			filesAnalyzed = append(filesAnalyzed, u.path)
		}
	}

	info := &output.Info{NodesUpdated: len(nodeChanges), EdgesUpdated: len(edgeChanges)}
	for _, nc := range nodeChanges {
		if nc.Kind == store.ChangeUpdated {
			info.HashesChanged = append(info.HashesChanged, nc.Node.Hash)
		}
	}

	// Step 12: hand off to the Output Assembler.
	result := output.New(opts.Command, filesAnalyzed, errs, warns, info)
	result.Verbose = opts.Verbose
	return result, nil
}

// buildIndex folds every unit's freshly built node set into one workspace
// view for Tier 2 resolution, so a call into a fan-out neighbor (or another
// primary file in this same batch) resolves against the in-memory Index
// rather than falling all the way through to the store query.
func buildIndex(byPath map[string]*parser.ParsedFile, units []*unit) *enhance.Index {
	var defs []enhance.DefRecord
	for _, u := range units {
		if u.parsed == nil {
			continue
		}
		for id, n := range u.built.nodes {
			defs = append(defs, enhance.DefRecord{
				Definition: parser.Definition{
					Kind: n.Kind, Name: n.Name, Signature: n.Signature, FilePath: n.FilePath,
					LineStart: n.LineStart, LineEnd: n.LineEnd, IsPublic: n.IsPublic,
				},
				NodeID: id,
			})
		}
	}
	return enhance.NewIndex(byPath, defs)
}

func findRefByLoc(refs []parser.Reference, file string, line int) parser.Reference {
	for _, r := range refs {
		if r.FilePath == file && r.Line == line {
			return r
		}
	}
	return parser.Reference{}
}

// edgeSourceID resolves an edge's source side: the enclosing definition
// named by ref.FromName within the same file, or the file's module node
// when the reference is at top level.
func edgeSourceID(b built, ref parser.Reference) string {
	if ref.FromName == "" {
		return b.moduleID
	}
	for id, n := range b.nodes {
		if n.Name == ref.FromName && n.FilePath == ref.FilePath && n.Kind != graph.KindModule {
			return id
		}
	}
	return b.moduleID
}

func valuesOf(m map[string]graph.Node) []graph.Node {
	out := make([]graph.Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	return out
}

func bucketToSeverityLists(buckets map[store.DeltaBucket][]graph.Violation) (errs, warns []graph.Violation) {
	for _, bucket := range []store.DeltaBucket{store.DeltaNew, store.DeltaPreExisting} {
		for _, v := range buckets[bucket] {
			switch v.Severity {
			case graph.SeverityError:
				errs = append(errs, v)
			default:
				warns = append(warns, v)
			}
		}
	}
	return errs, warns
}
