// Package ast defines the function-body AST consumed by the Lumen flow
// analysis engine. Every node carries a span for diagnostics. Variables are
// pre-resolved: a declaration and all references to it share one *Variable,
// so the engine never performs identifier lookup.
//
// The tree is deliberately limited to the forms flow analysis is defined
// over; parsing and full program structure live elsewhere in the front end.
package ast

import (
	"fmt"
	"strings"

	"github.com/lumen-lang/lumen/internal/position"
	"github.com/lumen-lang/lumen/internal/types"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// GetSpan returns the source span covered by this node.
	GetSpan() position.Span
	// String returns a human-readable representation of the node.
	String() string
}

// Expression represents all expression nodes in the AST.
type Expression interface {
	Node
	expressionNode()
}

// Statement represents all statement nodes in the AST.
type Statement interface {
	Node
	statementNode()
}

// Variable is the binding object shared by a local variable's declaration
// and every reference to it. DeclaredType is nil for `var x;` declarations
// with no annotation; the flow engine then infers an effective type from
// the first assignment on each path.
type Variable struct {
	Name         string
	DeclaredType *types.Type
	Span         position.Span
}

func (v *Variable) String() string { return v.Name }

// ===== Expressions =====

// BoolLiteral represents `true` or `false`.
type BoolLiteral struct {
	Span  position.Span
	Value bool
}

func (e *BoolLiteral) GetSpan() position.Span { return e.Span }
func (e *BoolLiteral) String() string         { return fmt.Sprintf("%t", e.Value) }
func (e *BoolLiteral) expressionNode()        {}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	Span  position.Span
	Value int64
}

func (e *IntLiteral) GetSpan() position.Span { return e.Span }
func (e *IntLiteral) String() string         { return fmt.Sprintf("%d", e.Value) }
func (e *IntLiteral) expressionNode()        {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	Span  position.Span
	Value string
}

func (e *StringLiteral) GetSpan() position.Span { return e.Span }
func (e *StringLiteral) String() string         { return fmt.Sprintf("%q", e.Value) }
func (e *StringLiteral) expressionNode()        {}

// NullLiteral represents `null`.
type NullLiteral struct {
	Span position.Span
}

func (e *NullLiteral) GetSpan() position.Span { return e.Span }
func (e *NullLiteral) String() string         { return "null" }
func (e *NullLiteral) expressionNode()        {}

// VariableRef is a read of a local variable.
type VariableRef struct {
	Span     position.Span
	Variable *Variable
}

func (e *VariableRef) GetSpan() position.Span { return e.Span }
func (e *VariableRef) String() string         { return e.Variable.Name }
func (e *VariableRef) expressionNode()        {}

// AssignExpr is an assignment to a local variable, `x = value`.
type AssignExpr struct {
	Span     position.Span
	Variable *Variable
	Value    Expression
}

func (e *AssignExpr) GetSpan() position.Span { return e.Span }
func (e *AssignExpr) String() string {
	return fmt.Sprintf("%s = %s", e.Variable.Name, e.Value)
}
func (e *AssignExpr) expressionNode() {}

// NotExpr is logical negation, `!operand`.
type NotExpr struct {
	Span    position.Span
	Operand Expression
}

func (e *NotExpr) GetSpan() position.Span { return e.Span }
func (e *NotExpr) String() string         { return fmt.Sprintf("!%s", e.Operand) }
func (e *NotExpr) expressionNode()        {}

// LogicalOp distinguishes the two short-circuit operators.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

func (op LogicalOp) String() string {
	if op == LogicalAnd {
		return "&&"
	}

	return "||"
}

// LogicalExpr is a short-circuit boolean expression, `left && right` or
// `left || right`.
type LogicalExpr struct {
	Span  position.Span
	Op    LogicalOp
	Left  Expression
	Right Expression
}

func (e *LogicalExpr) GetSpan() position.Span { return e.Span }
func (e *LogicalExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
}
func (e *LogicalExpr) expressionNode() {}

// EqualityExpr is `left == right` or `left != right`. Comparisons against
// the null literal are the ones flow analysis draws information from.
type EqualityExpr struct {
	Span    position.Span
	Left    Expression
	Right   Expression
	Negated bool // true for !=
}

func (e *EqualityExpr) GetSpan() position.Span { return e.Span }
func (e *EqualityExpr) String() string {
	op := "=="
	if e.Negated {
		op = "!="
	}

	return fmt.Sprintf("%s %s %s", e.Left, op, e.Right)
}
func (e *EqualityExpr) expressionNode() {}

// IfNullExpr is the if-null operator, `left ?? right`.
type IfNullExpr struct {
	Span  position.Span
	Left  Expression
	Right Expression
}

func (e *IfNullExpr) GetSpan() position.Span { return e.Span }
func (e *IfNullExpr) String() string         { return fmt.Sprintf("%s ?? %s", e.Left, e.Right) }
func (e *IfNullExpr) expressionNode()        {}

// ConditionalExpr is `cond ? then : else`.
type ConditionalExpr struct {
	Span position.Span
	Cond Expression
	Then Expression
	Else Expression
}

func (e *ConditionalExpr) GetSpan() position.Span { return e.Span }
func (e *ConditionalExpr) String() string {
	return fmt.Sprintf("%s ? %s : %s", e.Cond, e.Then, e.Else)
}
func (e *ConditionalExpr) expressionNode() {}

// IsExpr is a type test, `operand is Target` or `operand is! Target`.
type IsExpr struct {
	Span    position.Span
	Operand Expression
	Target  *types.Type
	Negated bool
}

func (e *IsExpr) GetSpan() position.Span { return e.Span }
func (e *IsExpr) String() string {
	op := "is"
	if e.Negated {
		op = "is!"
	}

	return fmt.Sprintf("%s %s %s", e.Operand, op, e.Target)
}
func (e *IsExpr) expressionNode() {}

// AsExpr is a cast, `operand as Target`.
type AsExpr struct {
	Span    position.Span
	Operand Expression
	Target  *types.Type
}

func (e *AsExpr) GetSpan() position.Span { return e.Span }
func (e *AsExpr) String() string         { return fmt.Sprintf("%s as %s", e.Operand, e.Target) }
func (e *AsExpr) expressionNode()        {}

// CallExpr is an opaque invocation. The engine treats operators and method
// calls alike; only the supplied result type matters. A Never result marks
// the call as exit-producing.
type CallExpr struct {
	Span       position.Span
	Name       string
	Args       []Expression
	ResultType *types.Type
}

func (e *CallExpr) GetSpan() position.Span { return e.Span }
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}

	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}
func (e *CallExpr) expressionNode() {}

// FuncLiteral is a closure. Assignments inside its body write-capture the
// variables they target, since the closure may run at any later point.
type FuncLiteral struct {
	Span   position.Span
	Params []*Variable
	Body   Statement
}

func (e *FuncLiteral) GetSpan() position.Span { return e.Span }
func (e *FuncLiteral) String() string {
	params := make([]string, len(e.Params))
	for i, p := range e.Params {
		params[i] = p.Name
	}

	return fmt.Sprintf("(%s) { ... }", strings.Join(params, ", "))
}
func (e *FuncLiteral) expressionNode() {}

// ===== Statements =====

// BlockStmt is `{ stmt* }`.
type BlockStmt struct {
	Span  position.Span
	Stmts []Statement
}

func (s *BlockStmt) GetSpan() position.Span { return s.Span }
func (s *BlockStmt) String() string {
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}

	return fmt.Sprintf("{ %s }", strings.Join(parts, " "))
}
func (s *BlockStmt) statementNode() {}

// VarDeclStmt declares a local variable, optionally with an initializer.
type VarDeclStmt struct {
	Span     position.Span
	Variable *Variable
	Init     Expression
}

func (s *VarDeclStmt) GetSpan() position.Span { return s.Span }
func (s *VarDeclStmt) String() string {
	decl := "var " + s.Variable.Name
	if s.Variable.DeclaredType != nil {
		decl = s.Variable.DeclaredType.String() + " " + s.Variable.Name
	}

	if s.Init != nil {
		return fmt.Sprintf("%s = %s;", decl, s.Init)
	}

	return decl + ";"
}
func (s *VarDeclStmt) statementNode() {}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	Span position.Span
	E    Expression
}

func (s *ExprStmt) GetSpan() position.Span { return s.Span }
func (s *ExprStmt) String() string         { return s.E.String() + ";" }
func (s *ExprStmt) statementNode()         {}

// IfStmt is `if (cond) then else else?`.
type IfStmt struct {
	Span position.Span
	Cond Expression
	Then Statement
	Else Statement // nil when absent
}

func (s *IfStmt) GetSpan() position.Span { return s.Span }
func (s *IfStmt) String() string {
	if s.Else != nil {
		return fmt.Sprintf("if (%s) %s else %s", s.Cond, s.Then, s.Else)
	}

	return fmt.Sprintf("if (%s) %s", s.Cond, s.Then)
}
func (s *IfStmt) statementNode() {}

// WhileStmt is `label: while (cond) body`.
type WhileStmt struct {
	Span  position.Span
	Label string
	Cond  Expression
	Body  Statement
}

func (s *WhileStmt) GetSpan() position.Span { return s.Span }
func (s *WhileStmt) String() string         { return fmt.Sprintf("while (%s) %s", s.Cond, s.Body) }
func (s *WhileStmt) statementNode()         {}

// DoWhileStmt is `label: do body while (cond);`.
type DoWhileStmt struct {
	Span  position.Span
	Label string
	Body  Statement
	Cond  Expression
}

func (s *DoWhileStmt) GetSpan() position.Span { return s.Span }
func (s *DoWhileStmt) String() string         { return fmt.Sprintf("do %s while (%s);", s.Body, s.Cond) }
func (s *DoWhileStmt) statementNode()         {}

// ReturnStmt is `return value?;`.
type ReturnStmt struct {
	Span  position.Span
	Value Expression // nil for a bare return
}

func (s *ReturnStmt) GetSpan() position.Span { return s.Span }
func (s *ReturnStmt) String() string {
	if s.Value != nil {
		return fmt.Sprintf("return %s;", s.Value)
	}

	return "return;"
}
func (s *ReturnStmt) statementNode() {}

// BreakStmt is `break label?;`. An empty label targets the innermost
// breakable statement.
type BreakStmt struct {
	Span  position.Span
	Label string
}

func (s *BreakStmt) GetSpan() position.Span { return s.Span }
func (s *BreakStmt) String() string {
	if s.Label != "" {
		return "break " + s.Label + ";"
	}

	return "break;"
}
func (s *BreakStmt) statementNode() {}

// ContinueStmt is `continue label?;`. An empty label targets the innermost
// loop.
type ContinueStmt struct {
	Span  position.Span
	Label string
}

func (s *ContinueStmt) GetSpan() position.Span { return s.Span }
func (s *ContinueStmt) String() string {
	if s.Label != "" {
		return "continue " + s.Label + ";"
	}

	return "continue;"
}
func (s *ContinueStmt) statementNode() {}

// SwitchCase is one `case v1: case v2: body` group, or the default group.
type SwitchCase struct {
	Span      position.Span
	Values    []Expression // empty for default
	Body      []Statement
	IsDefault bool
}

func (c *SwitchCase) GetSpan() position.Span { return c.Span }
func (c *SwitchCase) String() string {
	if c.IsDefault {
		return "default: ..."
	}

	vals := make([]string, len(c.Values))
	for i, v := range c.Values {
		vals[i] = v.String()
	}

	return fmt.Sprintf("case %s: ...", strings.Join(vals, ", "))
}

// SwitchStmt is an n-ary branch. Exhaustive is supplied by the caller's
// exhaustiveness checker; the flow engine does not recompute it.
type SwitchStmt struct {
	Span       position.Span
	Label      string
	Value      Expression
	Cases      []*SwitchCase
	Exhaustive bool
}

func (s *SwitchStmt) GetSpan() position.Span { return s.Span }
func (s *SwitchStmt) String() string {
	return fmt.Sprintf("switch (%s) { %d cases }", s.Value, len(s.Cases))
}
func (s *SwitchStmt) statementNode() {}

// ThrowStmt is `throw value;`.
type ThrowStmt struct {
	Span  position.Span
	Value Expression
}

func (s *ThrowStmt) GetSpan() position.Span { return s.Span }
func (s *ThrowStmt) String() string         { return fmt.Sprintf("throw %s;", s.Value) }
func (s *ThrowStmt) statementNode()         {}

// CatchClause is one `catch (e) body` arm of a try statement.
type CatchClause struct {
	Span      position.Span
	Exception *Variable // nil when the clause binds no variable
	Body      *BlockStmt
}

func (c *CatchClause) GetSpan() position.Span { return c.Span }
func (c *CatchClause) String() string {
	if c.Exception != nil {
		return fmt.Sprintf("catch (%s) %s", c.Exception.Name, c.Body)
	}

	return fmt.Sprintf("catch %s", c.Body)
}

// TryStmt is `try body catch* finally?`. At least one of Catches/Finally is
// present in well-formed input.
type TryStmt struct {
	Span    position.Span
	Body    *BlockStmt
	Catches []*CatchClause
	Finally *BlockStmt // nil when absent
}

func (s *TryStmt) GetSpan() position.Span { return s.Span }
func (s *TryStmt) String() string {
	var sb strings.Builder
	sb.WriteString("try ")
	sb.WriteString(s.Body.String())

	for _, c := range s.Catches {
		sb.WriteByte(' ')
		sb.WriteString(c.String())
	}

	if s.Finally != nil {
		sb.WriteString(" finally ")
		sb.WriteString(s.Finally.String())
	}

	return sb.String()
}
func (s *TryStmt) statementNode() {}

// ===== Declarations =====

// FuncDecl is the unit flow analysis runs over: a single function, method
// or initializer. An expression body is represented as a block wrapping a
// single return statement. A nil ReturnType is treated as void.
type FuncDecl struct {
	Span       position.Span
	Name       string
	Params     []*Variable
	ReturnType *types.Type
	Body       Statement
}

func (d *FuncDecl) GetSpan() position.Span { return d.Span }
func (d *FuncDecl) String() string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		if p.DeclaredType != nil {
			params[i] = p.DeclaredType.String() + " " + p.Name
		} else {
			params[i] = p.Name
		}
	}

	ret := "void"
	if d.ReturnType != nil {
		ret = d.ReturnType.String()
	}

	return fmt.Sprintf("%s %s(%s) %s", ret, d.Name, strings.Join(params, ", "), d.Body)
}
