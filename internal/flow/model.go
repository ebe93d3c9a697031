// Package flow implements the Lumen flow analysis engine: type promotion,
// definite assignment and reachability analysis over a single function
// body.
//
// The engine is a synchronous recursive descent in two passes. Pass one
// folds the tree into a per-subtree index of lexically assigned and
// write-captured variables. Pass two computes, for every statement and
// expression, immutable flow models describing what is known immediately
// before and after the node, including models conditioned on the node
// evaluating to true, false, null or non-null. All models are persistent
// values; one Result owns the memoized models for one run and no state is
// shared between runs.
package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/types"
)

// Reachability is a persistent stack of booleans. The top element reflects
// reachability from the innermost open control-flow split; the bottom
// element reflects reachability from function entry. Depth always equals
// the control-flow nesting depth at the point the owning model was built.
type Reachability struct {
	parent *Reachability
	// locallyReachable is this element's own value.
	locallyReachable bool
	// overallReachable is the AND of this element and everything below it.
	overallReachable bool
	depth            int
}

// entryReachability is the stack seeded by the driver: a single true.
func entryReachability() *Reachability {
	return &Reachability{locallyReachable: true, overallReachable: true, depth: 1}
}

// Split pushes a fresh true element.
func (r *Reachability) Split() *Reachability {
	return &Reachability{
		parent:           r,
		locallyReachable: true,
		overallReachable: r.overallReachable,
		depth:            r.depth + 1,
	}
}

// SetUnreachable returns a stack whose top element is false.
func (r *Reachability) SetUnreachable() *Reachability {
	if !r.locallyReachable {
		return r
	}

	return &Reachability{parent: r.parent, depth: r.depth}
}

// Unsplit pops the top element, ANDing its value into the new top.
func (r *Reachability) Unsplit() *Reachability {
	if r.locallyReachable {
		return r.parent
	}

	return r.parent.SetUnreachable()
}

// FunctionReachable returns the bottom element: whether this point is
// reachable from function entry ignoring enclosing provisional splits.
func (r *Reachability) FunctionReachable() bool {
	base := r
	for base.parent != nil {
		base = base.parent
	}

	return base.locallyReachable
}

// Depth returns the number of elements on the stack.
func (r *Reachability) Depth() int { return r.depth }

// Equal reports whether two stacks have identical depth and values.
func (r *Reachability) Equal(other *Reachability) bool {
	for r != nil && other != nil {
		if r.depth != other.depth || r.locallyReachable != other.locallyReachable {
			return false
		}

		r, other = r.parent, other.parent
	}

	return r == nil && other == nil
}

func (r *Reachability) String() string {
	var elems []string
	for cur := r; cur != nil; cur = cur.parent {
		elems = append([]string{fmt.Sprintf("%t", cur.locallyReachable)}, elems...)
	}

	return "[" + strings.Join(elems, " ") + "]"
}

// VariableModel is the per-variable lattice element. It is immutable;
// every update allocates. The declared type is identical across all models
// for one variable within one function body.
type VariableModel struct {
	declaredType  *types.Type // nil for declarations with no annotation
	promotedTypes []*types.Type
	testSites     []*types.Type
	assigned      bool
	unassigned    bool
	writeCaptured bool
}

// DeclaredType returns the variable's nominal type, or nil when the
// declaration carried no annotation.
func (vm *VariableModel) DeclaredType() *types.Type { return vm.declaredType }

// PromotedTypes returns the promotion chain, outermost first. Callers must
// not mutate the returned slice.
func (vm *VariableModel) PromotedTypes() []*types.Type { return vm.promotedTypes }

// TestSites returns the types this variable has been tested against.
func (vm *VariableModel) TestSites() []*types.Type { return vm.testSites }

// Assigned reports definite assignment.
func (vm *VariableModel) Assigned() bool { return vm.assigned }

// Unassigned reports definite unassignment.
func (vm *VariableModel) Unassigned() bool { return vm.unassigned }

// WriteCaptured reports whether a closure may assign this variable.
func (vm *VariableModel) WriteCaptured() bool { return vm.writeCaptured }

// EffectiveType returns the variable's current promoted type: the last
// entry of the promotion chain, the declared type when the chain is empty,
// or dynamic for an unannotated declaration.
func (vm *VariableModel) EffectiveType() *types.Type {
	if n := len(vm.promotedTypes); n > 0 {
		return vm.promotedTypes[n-1]
	}

	if vm.declaredType != nil {
		return vm.declaredType
	}

	return types.Dynamic
}

func (vm *VariableModel) clone() *VariableModel {
	out := *vm
	return &out
}

// Equal reports field-wise equality with structural type comparison.
func (vm *VariableModel) Equal(other *VariableModel) bool {
	if vm == other {
		return true
	}

	if vm == nil || other == nil {
		return false
	}

	if vm.assigned != other.assigned || vm.unassigned != other.unassigned ||
		vm.writeCaptured != other.writeCaptured || !types.Equal(vm.declaredType, other.declaredType) {
		return false
	}

	return typesEqual(vm.promotedTypes, other.promotedTypes) && typesEqual(vm.testSites, other.testSites)
}

func (vm *VariableModel) String() string {
	var flags []string
	if vm.assigned {
		flags = append(flags, "assigned")
	}

	if vm.unassigned {
		flags = append(flags, "unassigned")
	}

	if vm.writeCaptured {
		flags = append(flags, "captured")
	}

	return fmt.Sprintf("%s%s", vm.EffectiveType(), formatFlags(flags))
}

func formatFlags(flags []string) string {
	if len(flags) == 0 {
		return ""
	}

	return " (" + strings.Join(flags, ", ") + ")"
}

func typesEqual(a, b []*types.Type) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

// FlowModel is the per-program-point lattice element: a reachability stack
// plus a mapping from every variable in lexical scope to its VariableModel.
// FlowModels are immutable; operations return fresh values sharing
// unchanged substructure.
type FlowModel struct {
	reachable *Reachability
	variables map[*ast.Variable]*VariableModel
}

func newFlowModel(r *Reachability, vars map[*ast.Variable]*VariableModel) *FlowModel {
	return &FlowModel{reachable: r, variables: vars}
}

// Reachable reports whether this point is reachable from every enclosing
// split (the AND of the whole stack).
func (m *FlowModel) Reachable() bool { return m.reachable.overallReachable }

// FunctionReachable reports the bottom element of the reachability stack.
// A model is truly dead only when this is false; a false element higher in
// the stack marks provisionally unreachable code whose promotion data is
// still tracked.
func (m *FlowModel) FunctionReachable() bool { return m.reachable.FunctionReachable() }

// Reachability exposes the stack itself.
func (m *FlowModel) Reachability() *Reachability { return m.reachable }

// VariableModel returns the model for a variable in scope, or nil.
func (m *FlowModel) VariableModel(v *ast.Variable) *VariableModel {
	return m.variables[v]
}

// Split pushes a fresh reachability element; used when entering a
// conditionally-reached sub-computation.
func (m *FlowModel) Split() *FlowModel {
	return newFlowModel(m.reachable.Split(), m.variables)
}

// Unsplit pops the element pushed by the matching Split, ANDing it into the
// new top; equivalent to Join(m, m).
func (m *FlowModel) Unsplit() *FlowModel {
	return newFlowModel(m.reachable.Unsplit(), m.variables)
}

// UnsplitTo pops until the stack has the given depth.
func (m *FlowModel) UnsplitTo(depth int) *FlowModel {
	out := m
	for out.reachable.depth > depth {
		out = out.Unsplit()
	}

	return out
}

// SetUnreachable marks the current point unreachable; used after throw,
// return, break, continue and exit-producing expressions.
func (m *FlowModel) SetUnreachable() *FlowModel {
	return newFlowModel(m.reachable.SetUnreachable(), m.variables)
}

// Depth returns the reachability stack depth.
func (m *FlowModel) Depth() int { return m.reachable.depth }

// declare brings a variable into scope.
func (m *FlowModel) declare(v *ast.Variable, assigned bool) *FlowModel {
	vars := copyVariables(m.variables)
	vars[v] = &VariableModel{
		declaredType: v.DeclaredType,
		assigned:     assigned,
		unassigned:   !assigned,
	}

	return newFlowModel(m.reachable, vars)
}

// forget drops a variable that has left scope.
func (m *FlowModel) forget(v *ast.Variable) *FlowModel {
	if _, ok := m.variables[v]; !ok {
		return m
	}

	vars := copyVariables(m.variables)
	delete(vars, v)

	return newFlowModel(m.reachable, vars)
}

// updateVariable replaces one variable's model.
func (m *FlowModel) updateVariable(v *ast.Variable, vm *VariableModel) *FlowModel {
	vars := copyVariables(m.variables)
	vars[v] = vm

	return newFlowModel(m.reachable, vars)
}

func copyVariables(src map[*ast.Variable]*VariableModel) map[*ast.Variable]*VariableModel {
	dst := make(map[*ast.Variable]*VariableModel, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}

	return dst
}

// Equal reports value equality: identical reachability stacks and
// field-wise equal variable models over the same scope.
func (m *FlowModel) Equal(other *FlowModel) bool {
	if m == other {
		return true
	}

	if m == nil || other == nil {
		return false
	}

	if !m.reachable.Equal(other.reachable) || len(m.variables) != len(other.variables) {
		return false
	}

	for v, vm := range m.variables {
		if !vm.Equal(other.variables[v]) {
			return false
		}
	}

	return true
}

// String renders the model with variables in name order, for debugging and
// test failure output.
func (m *FlowModel) String() string {
	names := make([]*ast.Variable, 0, len(m.variables))
	for v := range m.variables {
		names = append(names, v)
	}

	sort.Slice(names, func(i, j int) bool { return names[i].Name < names[j].Name })

	parts := make([]string, len(names))
	for i, v := range names {
		parts[i] = fmt.Sprintf("%s: %s", v.Name, m.variables[v])
	}

	return fmt.Sprintf("FlowModel(%s, {%s})", m.reachable, strings.Join(parts, ", "))
}
