package flow

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-cmp/cmp"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diagnostics"
	"github.com/lumen-lang/lumen/internal/types"
)

func testOracle() *types.Hierarchy {
	h := types.NewHierarchy()
	h.AddClass("num")
	h.AddClass("int", "num")
	h.AddClass("double", "num")
	h.AddClass("String")
	h.AddClass("bool")

	return h
}

func ref(line int, v *ast.Variable) *ast.VariableRef {
	return &ast.VariableRef{Span: sp(line), Variable: v}
}

func call(line int, name string, result *types.Type, args ...ast.Expression) *ast.CallExpr {
	return &ast.CallExpr{Span: sp(line), Name: name, Args: args, ResultType: result}
}

func block(line int, stmts ...ast.Statement) *ast.BlockStmt {
	return &ast.BlockStmt{Span: sp(line), Stmts: stmts}
}

func notNullCheck(line int, v *ast.Variable) *ast.EqualityExpr {
	return &ast.EqualityExpr{Span: sp(line), Left: ref(line, v), Right: &ast.NullLiteral{Span: sp(line)}, Negated: true}
}

func fnInt(name string, body ast.Statement, params ...*ast.Variable) *ast.FuncDecl {
	return &ast.FuncDecl{Span: sp(1), Name: name, Params: params, ReturnType: intType, Body: body}
}

func categories(res *Result) []diagnostics.Category {
	var out []diagnostics.Category
	for _, d := range res.Diagnostics() {
		out = append(out, d.Category)
	}

	return out
}

// A null check promotes the checked variable inside the guarded branch and
// the function needs no explicit trailing diagnostic.
func TestAnalyzeNullCheckPromotion(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType.AsNullable(), Span: sp(1)}

	thenReturn := &ast.ReturnStmt{Span: sp(3), Value: call(3, "length", intType, ref(3, s))}
	guard := &ast.IfStmt{Span: sp(2), Cond: notNullCheck(2, s), Then: block(2, thenReturn)}
	fn := fnInt("stringLength", block(1,
		guard,
		&ast.ReturnStmt{Span: sp(5), Value: &ast.IntLiteral{Span: sp(5), Value: 0}},
	), s)

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.Diagnostics(); len(got) != 0 {
		t.Fatalf("want no findings, got %v", got)
	}

	if got := res.PromotedType(s, thenReturn); !types.Equal(got, strType) {
		t.Errorf("inside the guard s should be String, got %s", got)
	}

	// Outside the guard the promotion does not hold.
	if got := res.After(guard).VariableModel(s).EffectiveType(); !types.Equal(got, strType.AsNullable()) {
		t.Errorf("after the if s should be String?, got %s", got)
	}

	if res.ExitReachable() {
		t.Error("both paths return; the implicit exit should be unreachable")
	}
}

// A guarded return with no else leaves a path that falls off the end of a
// non-void function.
func TestAnalyzeMissingReturn(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType.AsNullable(), Span: sp(1)}

	fn := fnInt("stringLength", block(1,
		&ast.IfStmt{Span: sp(2), Cond: notNullCheck(2, s), Then: block(2,
			&ast.ReturnStmt{Span: sp(3), Value: call(3, "length", intType, ref(3, s))},
		)},
	), s)

	res := AnalyzeFunc(testOracle(), fn, nil)

	if !res.ExitReachable() {
		t.Fatal("the else path falls through; exit should be reachable")
	}

	got := categories(res)
	if len(got) != 1 || got[0] != diagnostics.CategoryMissingReturn {
		t.Errorf("want exactly one missing-return finding, got %v", res.Diagnostics())
	}

	if !res.HasErrors() {
		t.Error("missing return is an error-level finding")
	}
}

// Reading a variable assigned on only one branch is a possibly-unassigned
// read; assigning on both branches clears it.
func TestAnalyzeDefiniteAssignment(t *testing.T) {
	build := func(withElse bool) (*ast.FuncDecl, *ast.Variable, ast.Statement) {
		b := &ast.Variable{Name: "b", DeclaredType: boolType, Span: sp(1)}
		s := &ast.Variable{Name: "s", DeclaredType: strType, Span: sp(2)}

		ifStmt := &ast.IfStmt{Span: sp(3), Cond: ref(3, b), Then: block(3,
			&ast.ExprStmt{Span: sp(4), E: &ast.AssignExpr{Span: sp(4), Variable: s, Value: &ast.StringLiteral{Span: sp(4), Value: "x"}}},
		)}
		if withElse {
			ifStmt.Else = block(5,
				&ast.ExprStmt{Span: sp(6), E: &ast.AssignExpr{Span: sp(6), Variable: s, Value: &ast.StringLiteral{Span: sp(6), Value: "y"}}},
			)
		}

		ret := &ast.ReturnStmt{Span: sp(7), Value: call(7, "length", intType, ref(7, s))}
		fn := fnInt("f", block(1,
			&ast.VarDeclStmt{Span: sp(2), Variable: s},
			ifStmt,
			ret,
		), b)

		return fn, s, ret
	}

	t.Run("one branch", func(t *testing.T) {
		fn, s, ret := build(false)
		res := AnalyzeFunc(testOracle(), fn, nil)

		got := categories(res)
		if len(got) != 1 || got[0] != diagnostics.CategoryPossiblyUnassigned {
			t.Fatalf("want exactly one possibly-unassigned finding, got %v", res.Diagnostics())
		}

		if res.DefinitelyAssigned(s, ret) {
			t.Error("s is assigned on only one path")
		}
	})

	t.Run("both branches", func(t *testing.T) {
		fn, s, ret := build(true)
		res := AnalyzeFunc(testOracle(), fn, nil)

		if got := res.Diagnostics(); len(got) != 0 {
			t.Fatalf("want no findings, got %v", got)
		}

		if !res.DefinitelyAssigned(s, ret) {
			t.Error("s is assigned on every path")
		}
	})
}

// A short-circuit condition that is statically false makes the guarded
// body unreachable, yet the models inside it stay well defined and the
// code after the if is unaffected.
func TestAnalyzeShortCircuitDeadBranch(t *testing.T) {
	a := &ast.Variable{Name: "a", DeclaredType: intType.AsNullable(), Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(3), E: call(3, "use", types.Void, ref(3, a))}
	thenBlock := block(3, use)
	ifStmt := &ast.IfStmt{
		Span: sp(2),
		Cond: &ast.LogicalExpr{Span: sp(2), Op: ast.LogicalAnd,
			Left:  &ast.BoolLiteral{Span: sp(2), Value: false},
			Right: notNullCheck(2, a),
		},
		Then: thenBlock,
	}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Body: block(1,
		&ast.VarDeclStmt{Span: sp(1), Variable: a, Init: &ast.NullLiteral{Span: sp(1)}},
		ifStmt,
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if res.Before(use).Reachable() {
		t.Error("the guarded body cannot run")
	}

	// Deadness discovered by value analysis is advisory territory, not
	// the dead-code walker's: the bottom of the stack stays true.
	if !res.Before(use).FunctionReachable() {
		t.Error("value-analysis deadness must not mark function-level unreachability")
	}

	if got := res.Diagnostics(); len(got) != 0 {
		t.Fatalf("want no findings, got %v", got)
	}

	// Promotion facts computed inside the dead region are still present.
	if got := res.PromotedType(a, use); !types.Equal(got, intType) {
		t.Errorf("inside the guard a should be int, got %s", got)
	}

	if !res.After(ifStmt).Reachable() {
		t.Error("code after the if is reachable")
	}
}

// Statements lexically after a return are flagged once as dead code.
func TestAnalyzeDeadCodeAdvisory(t *testing.T) {
	dead := &ast.ExprStmt{Span: sp(3), E: call(3, "sideEffect", types.Void)}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Body: block(1,
		&ast.ReturnStmt{Span: sp(2)},
		dead,
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	got := res.Diagnostics()
	if len(got) != 1 || got[0].Category != diagnostics.CategoryDeadCode {
		t.Fatalf("want exactly one dead-code finding, got %v", got)
	}

	if got[0].Level != diagnostics.LevelInfo {
		t.Error("dead code is advisory, not an error")
	}

	if res.HasErrors() {
		t.Error("an advisory alone must not flip HasErrors")
	}

	if res.Before(dead).FunctionReachable() {
		t.Error("the flagged statement is unreachable from function entry")
	}
}

// An is-test promotes inside the true branch; the promotion disappears at
// the join. A negated test promotes the false branch instead.
func TestAnalyzeIsTestPromotion(t *testing.T) {
	o := &ast.Variable{Name: "o", DeclaredType: types.Object, Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(3), E: call(3, "use", types.Void, ref(3, o))}
	after := &ast.ExprStmt{Span: sp(5), E: call(5, "use", types.Void, ref(5, o))}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{o}, Body: block(1,
		&ast.IfStmt{Span: sp(2),
			Cond: &ast.IsExpr{Span: sp(2), Operand: ref(2, o), Target: strType},
			Then: block(2, use),
		},
		after,
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.PromotedType(o, use); !types.Equal(got, strType) {
		t.Errorf("in the true branch o should be String, got %s", got)
	}

	if got := res.PromotedType(o, after); !types.Equal(got, types.Object) {
		t.Errorf("after the join o should be Object again, got %s", got)
	}
}

func TestAnalyzeNegatedIsTestPromotesElse(t *testing.T) {
	o := &ast.Variable{Name: "o", DeclaredType: types.Object, Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, o))}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{o}, Body: block(1,
		&ast.IfStmt{Span: sp(2),
			Cond: &ast.IsExpr{Span: sp(2), Operand: ref(2, o), Target: strType, Negated: true},
			Then: block(2, &ast.ReturnStmt{Span: sp(3), Value: &ast.IntLiteral{Span: sp(3), Value: 0}}),
			Else: block(4, use),
		},
		&ast.ReturnStmt{Span: sp(6), Value: &ast.IntLiteral{Span: sp(6), Value: 1}},
	), ReturnType: intType}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.PromotedType(o, use); !types.Equal(got, strType) {
		t.Errorf("in the else branch o should be String, got %s", got)
	}
}

// Assigning a value whose type was recorded at an earlier test site
// re-promotes the variable; without the test site the assignment is inert.
func TestAnalyzeAssignmentPromotion(t *testing.T) {
	build := func(withTest bool) (*ast.FuncDecl, *ast.Variable, ast.Statement) {
		n := &ast.Variable{Name: "n", DeclaredType: numType, Span: sp(1)}

		stmts := []ast.Statement{}
		if withTest {
			stmts = append(stmts, &ast.IfStmt{Span: sp(2),
				Cond: &ast.IsExpr{Span: sp(2), Operand: ref(2, n), Target: intType},
				Then: block(2),
			})
		}

		use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, n))}
		stmts = append(stmts,
			&ast.ExprStmt{Span: sp(3), E: &ast.AssignExpr{Span: sp(3), Variable: n, Value: &ast.IntLiteral{Span: sp(3), Value: 7}}},
			use,
		)

		return &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{n}, Body: block(1, stmts...)}, n, use
	}

	t.Run("with test site", func(t *testing.T) {
		fn, n, use := build(true)
		res := AnalyzeFunc(testOracle(), fn, nil)

		if got := res.PromotedType(n, use); !types.Equal(got, intType) {
			t.Errorf("assignment of a tested type should promote, got %s", got)
		}
	})

	t.Run("without test site", func(t *testing.T) {
		fn, n, use := build(false)
		res := AnalyzeFunc(testOracle(), fn, nil)

		if got := res.PromotedType(n, use); !types.Equal(got, numType) {
			t.Errorf("assignment alone must not promote, got %s", got)
		}
	})
}

// Assigning a wider value truncates the promotion chain to the prefix the
// value still inhabits.
func TestAnalyzeAssignmentDemotion(t *testing.T) {
	o := &ast.Variable{Name: "o", DeclaredType: types.Object, Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(5), E: call(5, "use", types.Void, ref(5, o))}
	inner := &ast.IfStmt{Span: sp(3),
		Cond: &ast.IsExpr{Span: sp(3), Operand: ref(3, o), Target: intType},
		Then: block(3,
			&ast.ExprStmt{Span: sp(4), E: &ast.AssignExpr{Span: sp(4), Variable: o, Value: call(4, "someNum", numType)}},
			use,
		),
	}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{o}, Body: block(1,
		&ast.IfStmt{Span: sp(2),
			Cond: &ast.IsExpr{Span: sp(2), Operand: ref(2, o), Target: numType},
			Then: block(2, inner),
		},
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	// Chain was [num, int]; a num write keeps num and drops int.
	if got := res.PromotedType(o, use); !types.Equal(got, numType) {
		t.Errorf("after the num write o should be num, got %s", got)
	}
}

// An unannotated variable takes its initializer's type, unless it was
// tested before the first write.
func TestAnalyzeInitializationPromotion(t *testing.T) {
	t.Run("plain initialization", func(t *testing.T) {
		a := &ast.Variable{Name: "a", DeclaredType: intType.AsNullable(), Span: sp(1)}
		z := &ast.Variable{Name: "z", Span: sp(2)}

		use := &ast.ExprStmt{Span: sp(3), E: call(3, "use", types.Void, ref(3, z))}
		fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{a}, Body: block(1,
			&ast.VarDeclStmt{Span: sp(2), Variable: z, Init: &ast.IfNullExpr{Span: sp(2), Left: ref(2, a), Right: &ast.IntLiteral{Span: sp(2), Value: 0}}},
			use,
		)}

		res := AnalyzeFunc(testOracle(), fn, nil)

		if got := res.Diagnostics(); len(got) != 0 {
			t.Fatalf("want no findings, got %v", got)
		}

		// `a ?? 0` has type int: the right operand is non-null.
		if got := res.PromotedType(z, use); !types.Equal(got, intType) {
			t.Errorf("z should take the initializer type int, got %s", got)
		}
	})

	t.Run("test site wins over initialization", func(t *testing.T) {
		x := &ast.Variable{Name: "x", Span: sp(1)}

		use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, x))}
		fn := &ast.FuncDecl{Span: sp(1), Name: "f", Body: block(1,
			&ast.VarDeclStmt{Span: sp(1), Variable: x},
			&ast.IfStmt{Span: sp(2),
				Cond: &ast.IsExpr{Span: sp(2), Operand: ref(2, x), Target: intType},
				Then: block(2, &ast.ReturnStmt{Span: sp(2)}),
			},
			&ast.ExprStmt{Span: sp(3), E: &ast.AssignExpr{Span: sp(3), Variable: x, Value: &ast.StringLiteral{Span: sp(3), Value: "s"}}},
			use,
		)}

		res := AnalyzeFunc(testOracle(), fn, &Options{Suppress: []diagnostics.Category{diagnostics.CategoryPossiblyUnassigned}})

		// x was tested before its first write, so the String write does
		// not count as a fresh initialization.
		if got := res.PromotedType(x, use); !types.Equal(got, types.Dynamic) {
			t.Errorf("a tested variable must not init-promote, got %s", got)
		}
	})
}

// A closure that writes a variable write-captures it: promotions stop
// applying from the closure's appearance onward.
func TestAnalyzeWriteCapture(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType.AsNullable(), Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, s))}
	closure := &ast.FuncLiteral{Span: sp(2), Body: block(2,
		&ast.ExprStmt{Span: sp(2), E: &ast.AssignExpr{Span: sp(2), Variable: s, Value: &ast.NullLiteral{Span: sp(2)}}},
	)}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{s}, Body: block(1,
		&ast.ExprStmt{Span: sp(2), E: closure},
		&ast.IfStmt{Span: sp(3), Cond: notNullCheck(3, s), Then: block(3, use)},
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.PromotedType(s, use); !types.Equal(got, strType.AsNullable()) {
		t.Errorf("a write-captured variable must not promote, got %s", got)
	}

	if !res.Before(use).VariableModel(s).WriteCaptured() {
		t.Error("s should be write-captured after the closure")
	}
}

// Inside a loop a promotion of a variable the loop assigns is cleared,
// since a later iteration may have run the assignment already.
func TestAnalyzeLoopClearsPromotions(t *testing.T) {
	x := &ast.Variable{Name: "x", DeclaredType: intType.AsNullable(), Span: sp(1)}
	c := &ast.Variable{Name: "c", DeclaredType: boolType, Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, x))}
	loop := &ast.WhileStmt{Span: sp(3), Cond: ref(3, c), Body: block(3,
		use,
		&ast.ExprStmt{Span: sp(5), E: &ast.AssignExpr{Span: sp(5), Variable: x, Value: &ast.NullLiteral{Span: sp(5)}}},
	)}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{x, c}, Body: block(1,
		&ast.IfStmt{Span: sp(2), Cond: notNullCheck(2, x), Then: block(2, loop)},
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.PromotedType(x, loop); !types.Equal(got, intType) {
		t.Errorf("before the loop x is promoted to int, got %s", got)
	}

	if got := res.PromotedType(x, use); !types.Equal(got, intType.AsNullable()) {
		t.Errorf("inside the loop the promotion is cleared, got %s", got)
	}
}

// `while (true)` only completes through break.
func TestAnalyzeWhileTrue(t *testing.T) {
	c := &ast.Variable{Name: "c", DeclaredType: boolType, Span: sp(1)}

	t.Run("no break", func(t *testing.T) {
		loop := &ast.WhileStmt{Span: sp(2), Cond: &ast.BoolLiteral{Span: sp(2), Value: true}, Body: block(2)}
		fn := fnInt("spin", block(1, loop), c)

		res := AnalyzeFunc(testOracle(), fn, nil)

		if res.After(loop).Reachable() {
			t.Error("a breakless while(true) never completes")
		}

		// No missing-return finding: the exit is unreachable.
		if got := res.Diagnostics(); len(got) != 0 {
			t.Errorf("want no findings, got %v", got)
		}
	})

	t.Run("conditional break", func(t *testing.T) {
		loop := &ast.WhileStmt{Span: sp(2), Cond: &ast.BoolLiteral{Span: sp(2), Value: true}, Body: block(2,
			&ast.IfStmt{Span: sp(3), Cond: ref(3, c), Then: block(3, &ast.BreakStmt{Span: sp(3)})},
		)}
		fn := &ast.FuncDecl{Span: sp(1), Name: "spin", Params: []*ast.Variable{c}, Body: block(1, loop)}

		res := AnalyzeFunc(testOracle(), fn, nil)

		if !res.After(loop).Reachable() {
			t.Error("the break edge makes the loop exit reachable")
		}

		if res.BreakModel(loop) == nil {
			t.Error("the accumulated break model should be recorded")
		}
	})
}

// A do-while body runs at least once, so its assignments are definite
// afterwards.
func TestAnalyzeDoWhileRunsOnce(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType, Span: sp(1)}
	c := &ast.Variable{Name: "c", DeclaredType: boolType, Span: sp(1)}

	ret := &ast.ReturnStmt{Span: sp(5), Value: call(5, "length", intType, ref(5, s))}
	fn := fnInt("f", block(1,
		&ast.VarDeclStmt{Span: sp(2), Variable: s},
		&ast.DoWhileStmt{Span: sp(3), Body: block(3,
			&ast.ExprStmt{Span: sp(4), E: &ast.AssignExpr{Span: sp(4), Variable: s, Value: &ast.StringLiteral{Span: sp(4), Value: "x"}}},
		), Cond: ref(4, c)},
		ret,
	), c)

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.Diagnostics(); len(got) != 0 {
		t.Fatalf("want no findings, got %v", got)
	}

	if !res.DefinitelyAssigned(s, ret) {
		t.Error("the do-while body always runs, so s is assigned")
	}
}

// Labeled break targets the named enclosing loop, not the innermost one.
func TestAnalyzeLabeledBreak(t *testing.T) {
	c := &ast.Variable{Name: "c", DeclaredType: boolType, Span: sp(1)}

	inner := &ast.WhileStmt{Span: sp(3), Cond: &ast.BoolLiteral{Span: sp(3), Value: true}, Body: block(3,
		&ast.BreakStmt{Span: sp(4), Label: "outer"},
	)}
	outer := &ast.WhileStmt{Span: sp(2), Label: "outer", Cond: &ast.BoolLiteral{Span: sp(2), Value: true}, Body: block(2, inner)}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{c}, Body: block(1, outer)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if res.BreakModel(inner) != nil {
		t.Error("the labeled break must not accumulate on the inner loop")
	}

	if res.BreakModel(outer) == nil {
		t.Error("the labeled break should accumulate on the outer loop")
	}

	if !res.After(outer).Reachable() {
		t.Error("the outer loop completes through the labeled break")
	}

	if res.After(inner).Reachable() {
		t.Error("the inner loop itself never completes")
	}
}

// An exhaustive switch whose every arm exits leaves no fall-through path;
// dropping exhaustiveness restores the implicit skip edge.
func TestAnalyzeSwitchExhaustiveness(t *testing.T) {
	v := &ast.Variable{Name: "v", DeclaredType: intType, Span: sp(1)}

	build := func(exhaustive bool) (*ast.FuncDecl, *ast.SwitchStmt) {
		sw := &ast.SwitchStmt{Span: sp(2), Value: ref(2, v), Exhaustive: exhaustive, Cases: []*ast.SwitchCase{
			{Span: sp(3), Values: []ast.Expression{&ast.IntLiteral{Span: sp(3), Value: 0}}, Body: []ast.Statement{
				&ast.ReturnStmt{Span: sp(3), Value: &ast.IntLiteral{Span: sp(3), Value: 10}},
			}},
			{Span: sp(4), Values: []ast.Expression{&ast.IntLiteral{Span: sp(4), Value: 1}}, Body: []ast.Statement{
				&ast.ReturnStmt{Span: sp(4), Value: &ast.IntLiteral{Span: sp(4), Value: 20}},
			}},
		}}

		return fnInt("pick", block(1, sw), v), sw
	}

	// Every case exits and nothing breaks to the switch. Analysis must
	// still complete, with the point after the switch unreachable.
	t.Run("exhaustive", func(t *testing.T) {
		fn, sw := build(true)

		res := AnalyzeFunc(testOracle(), fn, nil)
		if got := res.Diagnostics(); len(got) != 0 {
			t.Errorf("want no findings, got %v", got)
		}

		if res.After(sw).Reachable() {
			t.Error("no case completes normally, so the switch cannot either")
		}
	})

	t.Run("non-exhaustive", func(t *testing.T) {
		fn, _ := build(false)

		res := AnalyzeFunc(testOracle(), fn, nil)
		got := categories(res)
		if len(got) != 1 || got[0] != diagnostics.CategoryMissingReturn {
			t.Errorf("want exactly one missing-return finding, got %v", res.Diagnostics())
		}
	})
}

// A catch clause may be entered before the body's assignments ran, and a
// finally clause runs on the exceptional path too.
func TestAnalyzeTryCatch(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType, Span: sp(1)}

	after := &ast.ExprStmt{Span: sp(6), E: call(6, "use", types.Void, ref(6, s))}
	try := &ast.TryStmt{Span: sp(2),
		Body: block(2,
			&ast.ExprStmt{Span: sp(3), E: &ast.AssignExpr{Span: sp(3), Variable: s, Value: call(3, "load", strType)}},
		),
		Catches: []*ast.CatchClause{
			{Span: sp(4), Body: block(4,
				&ast.ExprStmt{Span: sp(5), E: &ast.AssignExpr{Span: sp(5), Variable: s, Value: &ast.StringLiteral{Span: sp(5), Value: "fallback"}}},
			)},
		},
	}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Body: block(1,
		&ast.VarDeclStmt{Span: sp(1), Variable: s},
		try,
		after,
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	if got := res.Diagnostics(); len(got) != 0 {
		t.Fatalf("want no findings, got %v", got)
	}

	// Either the body completed or the catch did; both assign s.
	if !res.DefinitelyAssigned(s, after) {
		t.Error("s is assigned on both the normal and the exceptional path")
	}

	catchBody := try.Catches[0].Body.Stmts[0]
	if res.DefinitelyAssigned(s, catchBody) {
		t.Error("inside the catch the body's assignment may not have run")
	}
}

func TestAnalyzeTryDiscardsBodyPromotions(t *testing.T) {
	o := &ast.Variable{Name: "o", DeclaredType: types.Object, Span: sp(1)}

	catchUse := &ast.ExprStmt{Span: sp(5), E: call(5, "use", types.Void, ref(5, o))}
	after := &ast.ExprStmt{Span: sp(6), E: call(6, "use", types.Void, ref(6, o))}
	try := &ast.TryStmt{Span: sp(2),
		Body: block(2,
			&ast.IfStmt{Span: sp(3),
				Cond: &ast.IsExpr{Span: sp(3), Operand: ref(3, o), Target: strType, Negated: true},
				Then: block(3, &ast.ThrowStmt{Span: sp(3), Value: call(3, "oops", types.Object)}),
			},
			&ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, o))},
		),
		Catches: []*ast.CatchClause{{Span: sp(5), Body: block(5, catchUse)}},
	}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{o}, Body: block(1, try, after)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	bodyUse := try.Body.Stmts[1]
	if got := res.PromotedType(o, bodyUse); !types.Equal(got, strType) {
		t.Errorf("past the throw guard o should be String, got %s", got)
	}

	if got := res.PromotedType(o, catchUse); !types.Equal(got, types.Object) {
		t.Errorf("the catch must not see the body's promotion, got %s", got)
	}

	if got := res.PromotedType(o, after); !types.Equal(got, types.Object) {
		t.Errorf("after the try the promotion is gone, got %s", got)
	}
}

func TestAnalyzeTryFinally(t *testing.T) {
	cleanup := &ast.ExprStmt{Span: sp(4), E: call(4, "cleanup", types.Void)}
	try := &ast.TryStmt{Span: sp(2),
		Body:    block(2, &ast.ThrowStmt{Span: sp(3), Value: call(3, "oops", types.Object)}),
		Finally: block(4, cleanup),
	}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Body: block(1, try)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	// The finally clause runs even though the body always throws.
	if !res.Before(cleanup).Reachable() {
		t.Error("the finally clause is reachable on the exceptional path")
	}

	if res.After(try).Reachable() {
		t.Error("nothing survives a body that always throws")
	}

	if got := res.Diagnostics(); len(got) != 0 {
		t.Errorf("want no findings, got %v", got)
	}
}

// The else branch of `s == null || ...` sees s promoted: the right operand
// and the false outcome both imply the null test failed.
func TestAnalyzeLogicalOrPromotion(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType.AsNullable(), Span: sp(1)}
	b := &ast.Variable{Name: "b", DeclaredType: boolType, Span: sp(1)}

	bRef := ref(2, b)
	use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, s))}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{s, b}, Body: block(1,
		&ast.IfStmt{Span: sp(2),
			Cond: &ast.LogicalExpr{Span: sp(2), Op: ast.LogicalOr,
				Left:  &ast.EqualityExpr{Span: sp(2), Left: ref(2, s), Right: &ast.NullLiteral{Span: sp(2)}},
				Right: bRef,
			},
			Then: block(3, &ast.ReturnStmt{Span: sp(3)}),
			Else: block(4, use),
		},
	)}

	res := AnalyzeFunc(testOracle(), fn, nil)

	// The right operand only evaluates when s == null was false.
	if got := res.PromotedType(s, bRef); !types.Equal(got, strType) {
		t.Errorf("the right operand should see s as String, got %s", got)
	}

	if got := res.PromotedType(s, use); !types.Equal(got, strType) {
		t.Errorf("the else branch should see s as String, got %s", got)
	}
}

// Below the sound-flow language version the engine still runs but neither
// promotes nor reports unassigned reads.
func TestAnalyzeLanguageVersionGate(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType.AsNullable(), Span: sp(1)}

	use := &ast.ExprStmt{Span: sp(3), E: call(3, "use", types.Void, ref(3, s))}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{s}, Body: block(1,
		&ast.IfStmt{Span: sp(2), Cond: notNullCheck(2, s), Then: block(2, use)},
	)}

	legacy := &Options{LanguageVersion: semver.MustParse("2.11.0")}
	res := AnalyzeFunc(testOracle(), fn, legacy)

	if got := res.PromotedType(s, use); !types.Equal(got, strType.AsNullable()) {
		t.Errorf("promotion is off below %s, got %s", MinSoundFlowVersion, got)
	}

	modern := &Options{LanguageVersion: semver.MustParse("2.12.0")}
	res = AnalyzeFunc(testOracle(), fn, modern)

	if got := res.PromotedType(s, use); !types.Equal(got, strType) {
		t.Errorf("promotion is on at %s, got %s", MinSoundFlowVersion, got)
	}
}

// The external inferencer's types take precedence over the built-in
// expression typing, including for the assignment promotion policy.
func TestAnalyzeStaticTypeOverride(t *testing.T) {
	n := &ast.Variable{Name: "n", DeclaredType: numType, Span: sp(1)}

	value := call(3, "compute", types.Dynamic)
	use := &ast.ExprStmt{Span: sp(4), E: call(4, "use", types.Void, ref(4, n))}
	fn := &ast.FuncDecl{Span: sp(1), Name: "f", Params: []*ast.Variable{n}, Body: block(1,
		&ast.IfStmt{Span: sp(2),
			Cond: &ast.IsExpr{Span: sp(2), Operand: ref(2, n), Target: intType},
			Then: block(2),
		},
		&ast.ExprStmt{Span: sp(3), E: &ast.AssignExpr{Span: sp(3), Variable: n, Value: value}},
		use,
	)}

	opts := &Options{StaticTypes: map[ast.Expression]*types.Type{value: intType}}
	res := AnalyzeFunc(testOracle(), fn, opts)

	if got := res.StaticType(value); !types.Equal(got, intType) {
		t.Errorf("override should show through StaticType, got %s", got)
	}

	if got := res.PromotedType(n, use); !types.Equal(got, intType) {
		t.Errorf("the overridden type should drive assignment promotion, got %s", got)
	}
}

// Two runs over the same tree produce identical models and findings.
func TestAnalyzeDeterministic(t *testing.T) {
	s := &ast.Variable{Name: "s", DeclaredType: strType.AsNullable(), Span: sp(1)}

	ret := &ast.ReturnStmt{Span: sp(3), Value: call(3, "length", intType, ref(3, s))}
	fn := fnInt("stringLength", block(1,
		&ast.IfStmt{Span: sp(2), Cond: notNullCheck(2, s), Then: block(2, ret)},
		&ast.ReturnStmt{Span: sp(4), Value: &ast.IntLiteral{Span: sp(4), Value: 0}},
	), s)

	r1 := AnalyzeFunc(testOracle(), fn, nil)
	r2 := AnalyzeFunc(testOracle(), fn, nil)

	if diff := cmp.Diff(r1.Before(ret), r2.Before(ret)); diff != "" {
		t.Errorf("models differ across runs:\n%s", diff)
	}

	if diff := cmp.Diff(r1.After(fn.Body), r2.After(fn.Body)); diff != "" {
		t.Errorf("after-models differ across runs:\n%s", diff)
	}

	if r1.ExitReachable() != r2.ExitReachable() {
		t.Error("exit reachability differs across runs")
	}

	d1, d2 := r1.Diagnostics(), r2.Diagnostics()
	if len(d1) != len(d2) {
		t.Fatalf("finding counts differ: %d vs %d", len(d1), len(d2))
	}

	for i := range d1 {
		if d1[i].String() != d2[i].String() {
			t.Errorf("finding %d differs: %q vs %q", i, d1[i], d2[i])
		}
	}
}
