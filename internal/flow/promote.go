package flow

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/types"
)

// Promotion policy: how a VariableModel reacts to a type test or to an
// assignment of a known-type expression. All decisions consume only yes/no
// subtype answers.

// strictlyNarrower reports t <: s and not s <: t.
func strictlyNarrower(oracle types.Oracle, t, s *types.Type) bool {
	return oracle.IsSubtype(t, s) && !oracle.IsSubtype(s, t)
}

// testType records tested as a type of interest for v and, when onSuccess
// is true, promotes v to tested if it is strictly narrower than the
// current promoted type. Used for `is` tests, `as` casts and null checks.
func (a *analyzer) testType(m *FlowModel, v *ast.Variable, tested *types.Type, onSuccess bool) *FlowModel {
	vm := m.VariableModel(v)
	if vm == nil || vm.writeCaptured || !a.promotionEnabled {
		return m
	}

	nvm := vm.clone()
	nvm.testSites = unionTypes(nvm.testSites, []*types.Type{tested})

	if onSuccess && strictlyNarrower(a.oracle, tested, nvm.EffectiveType()) {
		chain := nvm.promotedTypes
		nvm.promotedTypes = append(chain[:len(chain):len(chain)], tested)
	}

	return m.updateVariable(v, nvm)
}

// markNonNull promotes v to the non-null variant of its current type, as
// established by a `!= null` comparison or an if-null operator.
func (a *analyzer) markNonNull(m *FlowModel, v *ast.Variable) *FlowModel {
	vm := m.VariableModel(v)
	if vm == nil {
		return m
	}

	return a.testType(m, v, vm.EffectiveType().NonNull(), true)
}

// writeVariable applies an assignment of a value of the given static type.
// Assignment status always updates; promotion and demotion apply only when
// the variable is not write-captured.
//
// Promotion on assignment requires the assigned type to have been recorded
// at an earlier test site, with one exception: a variable declared without
// annotation or promotions, still definitely unassigned and never tested,
// takes its first assignment's type as its effective type. When both
// situations could apply, the test-site rule governs: a variable tested
// before its first write is never treated as a fresh initialization.
func (a *analyzer) writeVariable(m *FlowModel, v *ast.Variable, assignedType *types.Type) *FlowModel {
	vm := m.VariableModel(v)
	if vm == nil {
		return m
	}

	nvm := vm.clone()
	nvm.assigned = true
	nvm.unassigned = false

	if vm.writeCaptured || !a.promotionEnabled || assignedType == nil {
		return m.updateVariable(v, nvm)
	}

	// Demotion: keep the prefix of the chain the assigned value still
	// inhabits; narrower entries no longer hold.
	chain := vm.promotedTypes
	keep := 0
	for keep < len(chain) && a.oracle.IsSubtype(assignedType, chain[keep]) {
		keep++
	}
	chain = chain[:keep:keep]

	current := vm.declaredType
	if keep > 0 {
		current = chain[keep-1]
	}
	if current == nil {
		current = types.Dynamic
	}

	if strictlyNarrower(a.oracle, assignedType, current) {
		switch {
		case containsType(vm.testSites, assignedType):
			chain = append(chain, assignedType)
		case vm.unassigned && len(vm.promotedTypes) == 0 && vm.declaredType == nil && len(vm.testSites) == 0:
			chain = append(chain, assignedType)
		}
	}

	nvm.promotedTypes = chain

	return m.updateVariable(v, nvm)
}
