// Package graph defines keel's structural data model: nodes, edges, external
// endpoints, module profiles, the resolution cache, circuit-breaker counters,
// batch state and violations. Every other package operates on these types.
package graph

import "fmt"

// NodeKind distinguishes the three structural entity kinds keel tracks.
type NodeKind string

const (
	KindModule   NodeKind = "module"
	KindClass    NodeKind = "class"
	KindFunction NodeKind = "function"
)

// EdgeKind distinguishes the four relationship kinds keel tracks.
type EdgeKind string

const (
	EdgeCalls    EdgeKind = "calls"
	EdgeImports  EdgeKind = "imports"
	EdgeInherits EdgeKind = "inherits"
	EdgeContains EdgeKind = "contains"
)

// ResolutionTier records which stage of the resolution pipeline produced an
// edge or node-level annotation. Machine-readable per spec (§6).
type ResolutionTier string

const (
	TierAST             ResolutionTier = "tier1_ast"
	TierTSResolver       ResolutionTier = "tier2_ts"
	TierPyHeuristic      ResolutionTier = "tier2_py_heuristic"
	TierPyTypecheck      ResolutionTier = "tier2_py_typecheck"
	TierGo               ResolutionTier = "tier2_go"
	TierRustHeuristic    ResolutionTier = "tier2_rust_heuristic"
	TierRustDeep         ResolutionTier = "tier2_rust_deep"
	TierExternalIndex    ResolutionTier = "tier3_external_index"
)

// MaxPreviousHashes bounds the rename-tracking history retained per node (§3).
const MaxPreviousHashes = 3

// DowngradeConfidenceThreshold is the single knob deciding ERROR-vs-WARNING for
// low-confidence resolutions (§4.5, §9).
const DowngradeConfidenceThreshold = 0.7

// ExternalEndpoint records a detected framework route/RPC binding on a function.
type ExternalEndpoint struct {
	Kind      string // "HTTP" | "gRPC" | "GraphQL" | "MessageQueue"
	Method    string
	Path      string
	Direction string // "serves" | "calls"
}

// Node is a Module, Class, or Function observed in the source tree.
type Node struct {
	ID                string
	Hash              string
	Kind              NodeKind
	Name              string
	Signature         string
	FilePath          string
	LineStart         int
	LineEnd           int
	Docstring         string
	IsPublic          bool
	TypeHintsPresent  bool
	HasDocstring      bool
	ModuleID          string
	PreviousHashes    []string
	ResolutionTier    ResolutionTier
	ExternalEndpoints []ExternalEndpoint
}

// PushPreviousHash records a superseded hash, keeping at most MaxPreviousHashes,
// most-recent-first.
func (n *Node) PushPreviousHash(oldHash string) {
	if oldHash == "" || oldHash == n.Hash {
		return
	}
	n.PreviousHashes = append([]string{oldHash}, n.PreviousHashes...)
	if len(n.PreviousHashes) > MaxPreviousHashes {
		n.PreviousHashes = n.PreviousHashes[:MaxPreviousHashes]
	}
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	SourceID   string
	TargetID   string
	Kind       EdgeKind
	FilePath   string
	Line       int
	Confidence float64
}

// IsLowConfidence reports whether the edge falls below the severity-downgrade
// threshold (§4.5, §9).
func (e Edge) IsLowConfidence() bool {
	return e.Confidence < DowngradeConfidenceThreshold
}

// ModuleProfile summarizes a module for placement (W001) and naming.
type ModuleProfile struct {
	ModuleID              string
	FunctionCount         int
	ClassCount            int
	LineCount             int
	NamePrefixes          []string
	PrimaryTypes          []string
	ImportSources         []string
	ExportTargets         []string
	ResponsibilityKeywords []string
}

// ResolutionCacheEntry memoizes a call-site resolution keyed by its fingerprint.
type ResolutionCacheEntry struct {
	Fingerprint    string // hash(file + line + callee_expression)
	FilePath       string // owning file, used to invalidate on re-parse
	ResolvedNodeID string
	Confidence     float64
	Tier           ResolutionTier
}

// CircuitBreakerCounter tracks consecutive failures for one (error_code, hash) pair.
type CircuitBreakerCounter struct {
	ErrorCode          string
	Hash               string
	ConsecutiveFailures int
	LastFailureTime    int64 // unix millis, caller-supplied (no wall-clock in this package)
	Downgraded         bool
}

// Key returns the map key for this counter's (error_code, hash) pair.
func (c CircuitBreakerCounter) Key() string {
	return c.ErrorCode + "\x00" + c.Hash
}

// BatchState describes whether batch-mode deferral is currently active and
// what it has collected so far (§3, §4.8).
type BatchState struct {
	Active    bool
	StartedAt int64 // unix seconds
	Deferred  []Violation
}

// Severity is the level at which a Violation is reported.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARNING"
	SeverityInfo  Severity = "INFO"
)

// Violation is a single finding produced by a checker (§4.5).
type Violation struct {
	Code           string
	Severity       Severity
	Category       string
	Message        string
	File           string
	Line           int
	Hash           string
	NodeID         string // stable node identity, used for progressive-adoption first-seen lookup
	Confidence     float64
	ResolutionTier ResolutionTier
	FixHint        string
	Affected       []AffectedRef
}

// AffectedRef names a specific caller/callee location implicated by a violation.
type AffectedRef struct {
	Hash string
	Name string
	File string
	Line int
}

// StructuralCodes are violations that always surface immediately, even inside
// an active batch (§4.8).
var StructuralCodes = map[string]bool{
	"E001": true, // broken_caller
	"E004": true, // function_removed
	"E005": true, // arity_mismatch
}

// NonStructuralCodes are deferrable while a batch is active (§4.8).
var NonStructuralCodes = map[string]bool{
	"E002": true, // missing_type_hints
	"E003": true, // missing_docstring
	"W001": true, // placement
	"W002": true, // duplicate_name
}

// IsStructural reports whether a violation code must surface immediately
// regardless of batch state.
func IsStructural(code string) bool {
	return StructuralCodes[code]
}

// String renders a Violation as a one-line `CODE [SEVERITY] file:line message`
// summary.
func (v Violation) String() string {
	return fmt.Sprintf("%s [%s] %s:%d %s", v.Code, v.Severity, v.File, v.Line, v.Message)
}
