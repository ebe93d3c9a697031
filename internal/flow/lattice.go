package flow

import (
	"sort"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/types"
)

// Join combines the models of two control-flow branches that diverged at
// one shared split. Both inputs must be one split deeper than the desired
// result; Join pops that split on both sides, so drop(M) == Join(M, M).
// A dead branch contributes nothing: the result carries the reachable
// side's variable knowledge unchanged. Commutative and associative up to
// Equal.
func Join(m1, m2 *FlowModel) *FlowModel {
	return merge(m1.Unsplit(), m2.Unsplit())
}

// merge combines two models at the same stack depth whose reachability
// elements share a parent.
func merge(m1, m2 *FlowModel) *FlowModel {
	r1, r2 := m1.reachable, m2.reachable

	switch {
	case r1.locallyReachable && !r2.locallyReachable:
		return m1
	case r2.locallyReachable && !r1.locallyReachable:
		return m2
	default:
		// Same top value on both sides; the stacks are interchangeable.
		return newFlowModel(r1, joinVariables(m1.variables, m2.variables))
	}
}

// joinVariables is the key-wise joinV restricted to variables present in
// both scopes; a variable out of scope on either branch is dropped.
func joinVariables(v1, v2 map[*ast.Variable]*VariableModel) map[*ast.Variable]*VariableModel {
	out := make(map[*ast.Variable]*VariableModel, len(v1))

	for v, a := range v1 {
		b, ok := v2[v]
		if !ok {
			continue
		}

		out[v] = joinVariable(a, b)
	}

	return out
}

// joinVariable merges two models of the same variable: the promotion chain
// becomes the longest common prefix (both chains being prefixes of one
// narrowing order), test sites union, assignment flags AND, write capture
// OR. Commutative and associative.
func joinVariable(a, b *VariableModel) *VariableModel {
	if a == b {
		return a
	}

	out := &VariableModel{
		declaredType:  a.declaredType,
		promotedTypes: commonPrefix(a.promotedTypes, b.promotedTypes),
		testSites:     unionTypes(a.testSites, b.testSites),
		assigned:      a.assigned && b.assigned,
		unassigned:    a.unassigned && b.unassigned,
		writeCaptured: a.writeCaptured || b.writeCaptured,
	}

	if out.writeCaptured {
		out.promotedTypes = nil
	}

	return out
}

func commonPrefix(a, b []*types.Type) []*types.Type {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	i := 0
	for i < n && types.Equal(a[i], b[i]) {
		i++
	}

	return a[:i:i]
}

// unionTypes returns the set union of a and b in a canonical order, so
// the result of a join compares Equal no matter which operand came first.
// The inputs are never mutated.
func unionTypes(a, b []*types.Type) []*types.Type {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	out := make([]*types.Type, 0, len(a)+len(b))
	out = append(out, a...)

	for _, t := range b {
		if !containsType(out, t) {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })

	return out
}

func containsType(list []*types.Type, t *types.Type) bool {
	for _, e := range list {
		if types.Equal(e, t) {
			return true
		}
	}

	return false
}

// conservativeJoin widens a model against an unanalyzed control-flow edge
// (a loop back-edge or an exception path): variables in written lose their
// promotions and their definitely-unassigned status, variables in captured
// become write-captured. Test sites survive for written variables, which
// is what lets a later assignment re-promote them.
func conservativeJoin(m *FlowModel, written, captured []*ast.Variable) *FlowModel {
	if len(written) == 0 && len(captured) == 0 {
		return m
	}

	vars := copyVariables(m.variables)

	for _, v := range written {
		vm, ok := vars[v]
		if !ok {
			continue
		}

		nvm := vm.clone()
		nvm.promotedTypes = nil
		nvm.unassigned = false
		vars[v] = nvm
	}

	for _, v := range captured {
		vm, ok := vars[v]
		if !ok {
			continue
		}

		nvm := vm.clone()
		nvm.promotedTypes = nil
		nvm.testSites = nil
		nvm.unassigned = false
		nvm.writeCaptured = true
		vars[v] = nvm
	}

	return newFlowModel(m.reachable, vars)
}

// accumulate folds m into a running branch-target model (break or continue
// edges). Either side may be nil, meaning no edges have flowed in yet; a
// switch whose every case exits folds a nil break model.
func accumulate(acc, m *FlowModel) *FlowModel {
	switch {
	case acc == nil:
		return m
	case m == nil:
		return acc
	}

	return merge(acc, m)
}
