package flow

import (
	"github.com/Masterminds/semver/v3"
	"github.com/VictoriaMetrics/metrics"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diagnostics"
	"github.com/lumen-lang/lumen/internal/types"
)

const (
	diagPossiblyUnassigned = diagnostics.CategoryPossiblyUnassigned
	diagMissingReturn      = diagnostics.CategoryMissingReturn
	diagDeadCode           = diagnostics.CategoryDeadCode
)

var (
	functionsAnalyzedTotal = metrics.NewCounter(`lumen_flow_functions_analyzed_total`)
	findingsTotal          = metrics.NewCounter(`lumen_flow_findings_total`)
)

// MinSoundFlowVersion is the language version at which sound flow analysis
// (type promotion and definite assignment) is enabled. Below it the engine
// still computes reachability models but neither promotes variables nor
// reports possibly-unassigned reads.
var MinSoundFlowVersion = semver.MustParse("2.12.0")

// Options configures one analysis run. The zero value enables everything.
type Options struct {
	// LanguageVersion gates sound flow analysis; nil means latest.
	LanguageVersion *semver.Version

	// StaticTypes lets the external type inferencer override the engine's
	// built-in expression typing node by node.
	StaticTypes map[ast.Expression]*types.Type

	// Suppress disables reporting for the given categories. The underlying
	// models are computed regardless.
	Suppress []diagnostics.Category
}

func (o *Options) soundFlow() bool {
	if o == nil || o.LanguageVersion == nil {
		return true
	}

	return !o.LanguageVersion.LessThan(MinSoundFlowVersion)
}

// Result holds everything one analysis run computed: per-node flow models,
// accumulated break/continue models, findings and the exit reachability.
// All queries are side-effect-free reads of memoized values.
type Result struct {
	fn        *ast.FuncDecl
	assigned  *AssignedVariables
	collector *diagnostics.Collector

	stmtBefore map[ast.Statement]*FlowModel
	stmtAfter  map[ast.Statement]*FlowModel
	exprBefore map[ast.Expression]*FlowModel
	exprInfo   map[ast.Expression]ExprInfo

	breakModels    map[ast.Statement]*FlowModel
	continueModels map[ast.Statement]*FlowModel

	exitReachable bool
}

// analyzer carries the mutable traversal state of one run. It is created
// by AnalyzeFunc and discarded when the run completes; nothing here is
// global.
type analyzer struct {
	oracle             types.Oracle
	assigned           *AssignedVariables
	res                *Result
	targets            []*branchTarget
	staticTypes        map[ast.Expression]*types.Type
	promotionEnabled   bool
	definiteAssignment bool
}

// AnalyzeFunc runs flow analysis over one function. It always completes
// and always produces a Result; findings are reported on the result's
// collector, never as errors.
func AnalyzeFunc(oracle types.Oracle, fn *ast.FuncDecl, opts *Options) *Result {
	functionsAnalyzedTotal.Inc()

	res := &Result{
		fn:             fn,
		assigned:       ComputeAssigned(fn.Body),
		collector:      diagnostics.NewCollector(),
		stmtBefore:     make(map[ast.Statement]*FlowModel),
		stmtAfter:      make(map[ast.Statement]*FlowModel),
		exprBefore:     make(map[ast.Expression]*FlowModel),
		exprInfo:       make(map[ast.Expression]ExprInfo),
		breakModels:    make(map[ast.Statement]*FlowModel),
		continueModels: make(map[ast.Statement]*FlowModel),
	}

	sound := opts.soundFlow()
	if !sound {
		res.collector.Suppress(diagPossiblyUnassigned)
	}

	if opts != nil {
		for _, cat := range opts.Suppress {
			res.collector.Suppress(cat)
		}
	}

	a := &analyzer{
		oracle:             oracle,
		assigned:           res.assigned,
		res:                res,
		promotionEnabled:   sound,
		definiteAssignment: sound,
	}

	if opts != nil {
		a.staticTypes = opts.StaticTypes
	}

	// Parameters always hold a value on entry, even though no visible
	// assignment produced it.
	entry := newFlowModel(entryReachability(), make(map[*ast.Variable]*VariableModel))
	for _, p := range fn.Params {
		entry = entry.declare(p, true)
	}

	exit := a.visitStmt(fn.Body, entry)
	res.exitReachable = exit.Reachable()

	if res.exitReachable && !admitsImplicitReturn(fn.ReturnType) {
		res.collector.Report(diagMissingReturn, fn.Span,
			"function %q can complete normally but its return type %s does not allow returning null implicitly",
			fn.Name, fn.ReturnType)
	}

	findingsTotal.Add(res.collector.Len())

	return res
}

// admitsImplicitReturn reports whether falling off the end of the function
// is allowed: the return type must accept an implicit null result.
func admitsImplicitReturn(ret *types.Type) bool {
	if ret == nil {
		return true
	}

	switch ret.Kind {
	case types.KindVoid, types.KindDynamic, types.KindNull:
		return true
	default:
		return ret.AdmitsNull()
	}
}

// Before returns the model holding immediately before node.
func (r *Result) Before(node ast.Node) *FlowModel {
	if s, ok := node.(ast.Statement); ok {
		return r.stmtBefore[s]
	}

	if e, ok := node.(ast.Expression); ok {
		return r.exprBefore[e]
	}

	return nil
}

// After returns the model holding immediately after node.
func (r *Result) After(node ast.Node) *FlowModel {
	if s, ok := node.(ast.Statement); ok {
		return r.stmtAfter[s]
	}

	if e, ok := node.(ast.Expression); ok {
		return r.exprInfo[e].After
	}

	return nil
}

// True returns the model conditioned on e evaluating to true.
func (r *Result) True(e ast.Expression) *FlowModel { return r.exprInfo[e].True }

// False returns the model conditioned on e evaluating to false.
func (r *Result) False(e ast.Expression) *FlowModel { return r.exprInfo[e].False }

// Null returns the model conditioned on e evaluating to null.
func (r *Result) Null(e ast.Expression) *FlowModel { return r.exprInfo[e].Null }

// NotNull returns the model conditioned on e evaluating to non-null.
func (r *Result) NotNull(e ast.Expression) *FlowModel { return r.exprInfo[e].NotNull }

// StaticType returns the static type the analysis used for e.
func (r *Result) StaticType(e ast.Expression) *types.Type { return r.exprInfo[e].Type }

// PromotedType returns v's effective static type immediately before node,
// or nil when v is not in scope there.
func (r *Result) PromotedType(v *ast.Variable, node ast.Node) *types.Type {
	m := r.Before(node)
	if m == nil {
		return nil
	}

	vm := m.VariableModel(v)
	if vm == nil {
		return nil
	}

	return vm.EffectiveType()
}

// DefinitelyAssigned reports whether v is definitely assigned immediately
// before node.
func (r *Result) DefinitelyAssigned(v *ast.Variable, node ast.Node) bool {
	m := r.Before(node)
	if m == nil {
		return false
	}

	vm := m.VariableModel(v)

	return vm != nil && vm.Assigned()
}

// Assigned exposes the pre-pass index: whether v is lexically assigned
// within the subtree rooted at node.
func (r *Result) Assigned(node ast.Node, v *ast.Variable) bool {
	return r.assigned.Assigned(node, v)
}

// BreakModel returns the join of the models at every break targeting s, or
// nil when s has none.
func (r *Result) BreakModel(s ast.Statement) *FlowModel { return r.breakModels[s] }

// ContinueModel returns the join of the models at every continue targeting
// s, or nil when s has none.
func (r *Result) ContinueModel(s ast.Statement) *FlowModel { return r.continueModels[s] }

// ExitReachable reports whether the function's exit point is reachable.
func (r *Result) ExitReachable() bool { return r.exitReachable }

// Diagnostics returns the findings in source order.
func (r *Result) Diagnostics() []diagnostics.Diagnostic { return r.collector.All() }

// HasErrors reports whether any error-level finding was recorded.
func (r *Result) HasErrors() bool { return r.collector.HasErrors() }
