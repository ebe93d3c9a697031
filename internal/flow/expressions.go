package flow

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/types"
)

var boolType = types.NewInterface("bool")

// ExprInfo bundles the models published for one expression: the
// unconditional after model plus the four models conditioned on the
// expression's value. For expressions where a condition is meaningless the
// variants coincide with After.
type ExprInfo struct {
	After   *FlowModel
	True    *FlowModel
	False   *FlowModel
	Null    *FlowModel
	NotNull *FlowModel
	// Type is the expression's static type as seen by this analysis (the
	// external inferencer may override it through Options.StaticTypes).
	Type *types.Type

	// variable is set when the expression is syntactically a reference to
	// a local variable, so that an enclosing test can promote it.
	variable      *ast.Variable
	isNullLiteral bool
}

// uniform builds the info for an expression whose rule only defines After:
// the conditioned variants default to After, except that a type which can
// never be null makes the Null variant unreachable (and symmetrically for
// the Null type itself).
func uniform(after *FlowModel, typ *types.Type) ExprInfo {
	info := ExprInfo{After: after, True: after, False: after, Null: after, NotNull: after, Type: typ}

	if typ != nil && !typ.AdmitsNull() {
		info.Null = after.SetUnreachable()
	}

	if typ != nil && typ.Kind == types.KindNull {
		info.NotNull = after.SetUnreachable()
	}

	return info
}

// boolInfo builds the info for an expression whose rule defines True and
// False: notNull is their join, null is unreachable, after equals notNull.
func boolInfo(trueM, falseM *FlowModel) ExprInfo {
	notNull := merge(trueM, falseM)

	return ExprInfo{
		After:   notNull,
		True:    trueM,
		False:   falseM,
		Null:    notNull.SetUnreachable(),
		NotNull: notNull,
		Type:    boolType,
	}
}

// analyzeExpr computes the info for e given the model holding immediately
// before its evaluation, and memoizes both in the result.
func (a *analyzer) analyzeExpr(e ast.Expression, before *FlowModel) ExprInfo {
	info := a.dispatchExpr(e, before)

	if override, ok := a.staticTypes[e]; ok {
		info.Type = override
	}

	a.res.exprBefore[e] = before
	a.res.exprInfo[e] = info

	return info
}

func (a *analyzer) dispatchExpr(e ast.Expression, before *FlowModel) ExprInfo {
	switch n := e.(type) {
	case *ast.BoolLiteral:
		// `true` can never evaluate to false: the false branch is
		// unreachable (and symmetrically for `false`).
		if n.Value {
			return boolInfo(before, before.SetUnreachable())
		}

		return boolInfo(before.SetUnreachable(), before)

	case *ast.IntLiteral:
		return uniform(before, types.NewInterface("int"))

	case *ast.StringLiteral:
		return uniform(before, types.NewInterface("String"))

	case *ast.NullLiteral:
		info := uniform(before, types.Null)
		info.isNullLiteral = true

		return info

	case *ast.VariableRef:
		return a.variableRead(n, before)

	case *ast.AssignExpr:
		return a.assignment(n, before)

	case *ast.NotExpr:
		oi := a.analyzeExpr(n.Operand, before)

		return boolInfo(oi.False, oi.True)

	case *ast.LogicalExpr:
		return a.logical(n, before)

	case *ast.EqualityExpr:
		return a.equality(n, before)

	case *ast.IfNullExpr:
		return a.ifNull(n, before)

	case *ast.ConditionalExpr:
		return a.conditional(n, before)

	case *ast.IsExpr:
		return a.isTest(n, before)

	case *ast.AsExpr:
		oi := a.analyzeExpr(n.Operand, before)
		after := oi.After

		if oi.variable != nil {
			after = a.testType(after, oi.variable, n.Target, true)
		}

		return uniform(after, n.Target)

	case *ast.CallExpr:
		m := before
		for _, arg := range n.Args {
			m = a.analyzeExpr(arg, m).After
		}

		typ := n.ResultType
		if typ == nil {
			typ = types.Dynamic
		}

		// A call that cannot complete normally is an exit point.
		if typ.Kind == types.KindNever {
			m = m.SetUnreachable()
		}

		return uniform(m, typ)

	case *ast.FuncLiteral:
		// The closure may run anywhere downstream; every variable it
		// assigns is write-captured from here on. Its body has its own
		// flow context and is analyzed as a separate unit.
		after := conservativeJoin(before, nil, a.assigned.CapturedIn(n))

		return uniform(after, types.NewInterface("Function"))

	default:
		return uniform(before, types.Dynamic)
	}
}

func (a *analyzer) variableRead(n *ast.VariableRef, before *FlowModel) ExprInfo {
	vm := before.VariableModel(n.Variable)
	typ := types.Dynamic

	if vm != nil {
		typ = vm.EffectiveType()

		// Only definite assignment suppresses the finding; "unknown" is
		// still a possibly-unassigned read. Reads in unreachable code are
		// not reported.
		if !vm.Assigned() && before.Reachable() && a.definiteAssignment {
			a.res.collector.Report(diagPossiblyUnassigned, n.Span,
				"variable %q may be unassigned at this point", n.Variable.Name)
		}
	}

	info := uniform(before, typ)
	info.variable = n.Variable
	info.NotNull = a.markNonNull(before, n.Variable)

	return info
}

func (a *analyzer) assignment(n *ast.AssignExpr, before *FlowModel) ExprInfo {
	vi := a.analyzeExpr(n.Value, before)

	write := func(m *FlowModel) *FlowModel {
		return a.writeVariable(m, n.Variable, vi.Type)
	}

	return ExprInfo{
		After:   write(vi.After),
		True:    write(vi.True),
		False:   write(vi.False),
		Null:    write(vi.Null),
		NotNull: write(vi.NotNull),
		Type:    vi.Type,
	}
}

// logical implements the short-circuit rules: the right operand is only
// evaluated when the left operand's value did not already decide the
// result, so promotions established by that outcome are in scope for it.
func (a *analyzer) logical(n *ast.LogicalExpr, before *FlowModel) ExprInfo {
	li := a.analyzeExpr(n.Left, before)

	if n.Op == ast.LogicalAnd {
		ri := a.analyzeExpr(n.Right, li.True.Split())
		trueM := ri.True.Unsplit()
		falseM := Join(li.False.Split(), ri.False)

		return boolInfo(trueM, falseM)
	}

	ri := a.analyzeExpr(n.Right, li.False.Split())
	falseM := ri.False.Unsplit()
	trueM := Join(li.True.Split(), ri.True)

	return boolInfo(trueM, falseM)
}

// equality draws information only from comparisons against the null
// literal; any other equality is an opaque boolean.
func (a *analyzer) equality(n *ast.EqualityExpr, before *FlowModel) ExprInfo {
	li := a.analyzeExpr(n.Left, before)
	ri := a.analyzeExpr(n.Right, li.After)
	after := ri.After

	var v *ast.Variable

	switch {
	case li.variable != nil && ri.isNullLiteral:
		v = li.variable
	case ri.variable != nil && li.isNullLiteral:
		v = ri.variable
	}

	if v == nil {
		return boolInfo(after, after)
	}

	nullSide := after
	notNullSide := a.markNonNull(after, v)

	if n.Negated {
		return boolInfo(notNullSide, nullSide)
	}

	return boolInfo(nullSide, notNullSide)
}

func (a *analyzer) ifNull(n *ast.IfNullExpr, before *FlowModel) ExprInfo {
	li := a.analyzeExpr(n.Left, before)

	// The right operand only runs when the left evaluated to null.
	ri := a.analyzeExpr(n.Right, li.Null.Split())

	nullM := ri.Null.Unsplit()
	notNullM := Join(li.NotNull.Split(), ri.NotNull)
	after := merge(nullM, notNullM)

	typ := li.Type
	if typ != nil && ri.Type != nil && !ri.Type.AdmitsNull() {
		typ = typ.NonNull()
	}

	return ExprInfo{After: after, True: after, False: after, Null: nullM, NotNull: notNullM, Type: typ}
}

func (a *analyzer) conditional(n *ast.ConditionalExpr, before *FlowModel) ExprInfo {
	ci := a.analyzeExpr(n.Cond, before)
	ti := a.analyzeExpr(n.Then, ci.True.Split())
	ei := a.analyzeExpr(n.Else, ci.False.Split())

	typ := types.Dynamic
	if types.Equal(ti.Type, ei.Type) {
		typ = ti.Type
	}

	return ExprInfo{
		After:   Join(ti.After, ei.After),
		True:    Join(ti.True, ei.True),
		False:   Join(ti.False, ei.False),
		Null:    Join(ti.Null, ei.Null),
		NotNull: Join(ti.NotNull, ei.NotNull),
		Type:    typ,
	}
}

func (a *analyzer) isTest(n *ast.IsExpr, before *FlowModel) ExprInfo {
	oi := a.analyzeExpr(n.Operand, before)

	if oi.variable == nil {
		return boolInfo(oi.After, oi.After)
	}

	promoted := a.testType(oi.After, oi.variable, n.Target, true)
	unpromoted := a.testType(oi.After, oi.variable, n.Target, false)

	if n.Negated {
		return boolInfo(unpromoted, promoted)
	}

	return boolInfo(promoted, unpromoted)
}
