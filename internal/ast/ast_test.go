package ast

import (
	"testing"

	"github.com/lumen-lang/lumen/internal/types"
)

func TestNodeString(t *testing.T) {
	s := &Variable{Name: "s", DeclaredType: types.NewInterface("String").AsNullable()}

	tests := []struct {
		name     string
		node     Node
		expected string
	}{
		{
			"null check",
			&EqualityExpr{Left: &VariableRef{Variable: s}, Right: &NullLiteral{}, Negated: true},
			"s != null",
		},
		{
			"is test",
			&IsExpr{Operand: &VariableRef{Variable: s}, Target: types.NewInterface("String")},
			"s is String",
		},
		{
			"logical and",
			&LogicalExpr{
				Op:    LogicalAnd,
				Left:  &BoolLiteral{Value: false},
				Right: &EqualityExpr{Left: &VariableRef{Variable: s}, Right: &NullLiteral{}, Negated: true},
			},
			"false && s != null",
		},
		{
			"if-null",
			&IfNullExpr{Left: &VariableRef{Variable: s}, Right: &StringLiteral{Value: "x"}},
			`s ?? "x"`,
		},
		{
			"declaration with annotation",
			&VarDeclStmt{Variable: s},
			"String? s;",
		},
		{
			"assignment statement",
			&ExprStmt{E: &AssignExpr{Variable: s, Value: &StringLiteral{Value: "x"}}},
			`s = "x";`,
		},
		{
			"return",
			&ReturnStmt{Value: &CallExpr{Name: "length", Args: []Expression{&VariableRef{Variable: s}}}},
			"return length(s);",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.node.String(); got != test.expected {
				t.Errorf("Expected %q, got %q", test.expected, got)
			}
		})
	}
}

func TestWalkOrder(t *testing.T) {
	x := &Variable{Name: "x"}
	tree := &IfStmt{
		Cond: &EqualityExpr{Left: &VariableRef{Variable: x}, Right: &NullLiteral{}, Negated: true},
		Then: &BlockStmt{Stmts: []Statement{
			&ExprStmt{E: &AssignExpr{Variable: x, Value: &IntLiteral{Value: 1}}},
		}},
	}

	var order []string
	Walk(tree, func(n Node) bool {
		order = append(order, n.String())
		return true
	})

	expected := []string{
		"if (x != null) { x = 1; }",
		"x != null",
		"x",
		"null",
		"{ x = 1; }",
		"x = 1;",
		"x = 1",
		"1",
	}

	if len(order) != len(expected) {
		t.Fatalf("Walk visited %d nodes, want %d: %v", len(order), len(expected), order)
	}

	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Walk order[%d] = %q, want %q", i, order[i], expected[i])
		}
	}
}

func TestWalkPrune(t *testing.T) {
	x := &Variable{Name: "x"}
	tree := &BlockStmt{Stmts: []Statement{
		&ExprStmt{E: &FuncLiteral{Body: &ExprStmt{E: &AssignExpr{Variable: x, Value: &IntLiteral{Value: 1}}}}},
	}}

	seenAssign := false
	Walk(tree, func(n Node) bool {
		if _, ok := n.(*FuncLiteral); ok {
			return false
		}
		if _, ok := n.(*AssignExpr); ok {
			seenAssign = true
		}
		return true
	})

	if seenAssign {
		t.Error("Walk should not descend into pruned subtrees")
	}
}
