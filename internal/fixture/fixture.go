// Package fixture decodes the YAML function-under-analysis format used by
// the command-line checker and the integration tests. A fixture carries a
// class hierarchy and one function given directly as a syntax tree; there
// is no surface-syntax parser here.
package fixture

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/position"
	"github.com/lumen-lang/lumen/internal/types"
)

// Fixture is one decoded file: a subtype oracle and the function to run
// the analysis over.
type Fixture struct {
	Hierarchy *types.Hierarchy
	Function  *ast.FuncDecl
}

// Load reads and decodes the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read fixture %q: %w", path, err)
	}

	return Parse(path, data)
}

// Parse decodes raw fixture data. name is used for positions and errors.
func Parse(name string, data []byte) (*Fixture, error) {
	var f fileNode
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse fixture %q: %w", name, err)
	}

	h := types.NewHierarchy()
	for class, supers := range f.Classes {
		h.AddClass(class, supers...)
	}

	d := &decoder{file: name, scope: make(map[string]*ast.Variable)}

	fn, err := d.function(&f.Function)
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", name, err)
	}

	return &Fixture{Hierarchy: h, Function: fn}, nil
}

// ===== raw YAML shapes =====
//
// Every expression and statement is a single-key map; UnmarshalStrict
// rejects unknown keys, so a misspelled node kind fails loudly instead of
// decoding to an empty node.

type fileNode struct {
	Classes  map[string][]string `yaml:"classes,omitempty"`
	Function functionNode        `yaml:"function"`
}

type functionNode struct {
	Name   string      `yaml:"name"`
	Return string      `yaml:"return,omitempty"`
	Params []paramNode `yaml:"params,omitempty"`
	Body   []*stmtNode `yaml:"body"`
}

type paramNode struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

type stmtNode struct {
	Var      *varNode    `yaml:"var,omitempty"`
	Expr     *exprNode   `yaml:"expr,omitempty"`
	If       *ifNode     `yaml:"if,omitempty"`
	While    *whileNode  `yaml:"while,omitempty"`
	Do       *doNode     `yaml:"do,omitempty"`
	Return   *exprNode   `yaml:"return,omitempty"`
	IsReturn bool        `yaml:"bare_return,omitempty"`
	Break    *labelNode  `yaml:"break,omitempty"`
	Continue *labelNode  `yaml:"continue,omitempty"`
	Switch   *switchNode `yaml:"switch,omitempty"`
	Throw    *exprNode   `yaml:"throw,omitempty"`
	Try      *tryNode    `yaml:"try,omitempty"`
}

type varNode struct {
	Name string    `yaml:"name"`
	Type string    `yaml:"type,omitempty"`
	Init *exprNode `yaml:"init,omitempty"`
}

type ifNode struct {
	Cond *exprNode   `yaml:"cond"`
	Then []*stmtNode `yaml:"then"`
	Else []*stmtNode `yaml:"else,omitempty"`
}

type whileNode struct {
	Label string      `yaml:"label,omitempty"`
	Cond  *exprNode   `yaml:"cond"`
	Body  []*stmtNode `yaml:"body"`
}

type doNode struct {
	Label string      `yaml:"label,omitempty"`
	Body  []*stmtNode `yaml:"body"`
	Cond  *exprNode   `yaml:"cond"`
}

type labelNode struct {
	Label string `yaml:"label,omitempty"`
}

type switchNode struct {
	Label      string      `yaml:"label,omitempty"`
	Value      *exprNode   `yaml:"value"`
	Exhaustive bool        `yaml:"exhaustive,omitempty"`
	Cases      []*caseNode `yaml:"cases"`
}

type caseNode struct {
	Values  []*exprNode `yaml:"values,omitempty"`
	Default bool        `yaml:"default,omitempty"`
	Body    []*stmtNode `yaml:"body,omitempty"`
}

type tryNode struct {
	Body    []*stmtNode  `yaml:"body"`
	Catches []*catchNode `yaml:"catches,omitempty"`
	Finally []*stmtNode  `yaml:"finally,omitempty"`
}

type catchNode struct {
	Var  string      `yaml:"var,omitempty"`
	Type string      `yaml:"type,omitempty"`
	Body []*stmtNode `yaml:"body,omitempty"`
}

type exprNode struct {
	Bool   *bool   `yaml:"bool,omitempty"`
	Int    *int64  `yaml:"int,omitempty"`
	String *string `yaml:"string,omitempty"`
	// The key must be written quoted ("null": true); bare null is the YAML
	// null scalar, not a string key.
	Null   bool        `yaml:"null,omitempty"`
	Ref    string      `yaml:"ref,omitempty"`
	Assign *assignNode `yaml:"assign,omitempty"`
	Not    *exprNode   `yaml:"not,omitempty"`
	And    []*exprNode `yaml:"and,omitempty"`
	Or     []*exprNode `yaml:"or,omitempty"`
	Eq     []*exprNode `yaml:"eq,omitempty"`
	Ne     []*exprNode `yaml:"ne,omitempty"`
	IfNull []*exprNode `yaml:"ifnull,omitempty"`
	Cond   *condNode   `yaml:"cond,omitempty"`
	Is     *isNode     `yaml:"is,omitempty"`
	As     *asNode     `yaml:"as,omitempty"`
	Call   *callNode   `yaml:"call,omitempty"`
	Func   *funcNode   `yaml:"func,omitempty"`
}

type assignNode struct {
	To    string    `yaml:"to"`
	Value *exprNode `yaml:"value"`
}

type condNode struct {
	If   *exprNode `yaml:"if"`
	Then *exprNode `yaml:"then"`
	Else *exprNode `yaml:"else"`
}

type isNode struct {
	Expr    *exprNode `yaml:"expr"`
	Type    string    `yaml:"type"`
	Negated bool      `yaml:"negated,omitempty"`
}

type asNode struct {
	Expr *exprNode `yaml:"expr"`
	Type string    `yaml:"type"`
}

type callNode struct {
	Name string      `yaml:"name"`
	Args []*exprNode `yaml:"args,omitempty"`
	Type string      `yaml:"type,omitempty"`
}

type funcNode struct {
	Params []paramNode `yaml:"params,omitempty"`
	Body   []*stmtNode `yaml:"body"`
}

// ===== decoding =====

// decoder resolves names to Variable identities and synthesizes positions.
// Fixtures have no real source text, so each decoded node gets the next
// line of a virtual file; diagnostics then sort in document order.
type decoder struct {
	file  string
	line  int
	scope map[string]*ast.Variable
}

func (d *decoder) span() position.Span {
	d.line++

	return position.Span{
		Start: position.Position{Filename: d.file, Line: d.line, Column: 1, Offset: d.line},
		End:   position.Position{Filename: d.file, Line: d.line, Column: 2, Offset: d.line + 1},
	}
}

func (d *decoder) declare(name, typeName string) (*ast.Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("variable with empty name")
	}

	if _, exists := d.scope[name]; exists {
		return nil, fmt.Errorf("variable %q redeclared; fixtures do not shadow", name)
	}

	t, err := parseType(typeName)
	if err != nil {
		return nil, err
	}

	v := &ast.Variable{Name: name, DeclaredType: t, Span: d.span()}
	d.scope[name] = v

	return v, nil
}

func (d *decoder) lookup(name string) (*ast.Variable, error) {
	v, ok := d.scope[name]
	if !ok {
		return nil, fmt.Errorf("reference to undeclared variable %q", name)
	}

	return v, nil
}

func (d *decoder) function(n *functionNode) (*ast.FuncDecl, error) {
	span := d.span()

	ret, err := parseType(n.Return)
	if err != nil {
		return nil, err
	}

	params := make([]*ast.Variable, 0, len(n.Params))
	for _, p := range n.Params {
		v, err := d.declare(p.Name, p.Type)
		if err != nil {
			return nil, err
		}

		params = append(params, v)
	}

	body, err := d.block(n.Body)
	if err != nil {
		return nil, err
	}

	return &ast.FuncDecl{Span: span, Name: n.Name, Params: params, ReturnType: ret, Body: body}, nil
}

func (d *decoder) block(stmts []*stmtNode) (*ast.BlockStmt, error) {
	b := &ast.BlockStmt{Span: d.span()}

	for _, sn := range stmts {
		s, err := d.stmt(sn)
		if err != nil {
			return nil, err
		}

		b.Stmts = append(b.Stmts, s)
	}

	return b, nil
}

func (d *decoder) stmt(n *stmtNode) (ast.Statement, error) {
	switch {
	case n.Var != nil:
		span := d.span()

		var init ast.Expression
		if n.Var.Init != nil {
			e, err := d.expr(n.Var.Init)
			if err != nil {
				return nil, err
			}

			init = e
		}

		v, err := d.declare(n.Var.Name, n.Var.Type)
		if err != nil {
			return nil, err
		}

		return &ast.VarDeclStmt{Span: span, Variable: v, Init: init}, nil

	case n.Expr != nil:
		span := d.span()

		e, err := d.expr(n.Expr)
		if err != nil {
			return nil, err
		}

		return &ast.ExprStmt{Span: span, E: e}, nil

	case n.If != nil:
		span := d.span()

		cond, err := d.expr(n.If.Cond)
		if err != nil {
			return nil, err
		}

		then, err := d.block(n.If.Then)
		if err != nil {
			return nil, err
		}

		out := &ast.IfStmt{Span: span, Cond: cond, Then: then}
		if n.If.Else != nil {
			els, err := d.block(n.If.Else)
			if err != nil {
				return nil, err
			}

			out.Else = els
		}

		return out, nil

	case n.While != nil:
		span := d.span()

		cond, err := d.expr(n.While.Cond)
		if err != nil {
			return nil, err
		}

		body, err := d.block(n.While.Body)
		if err != nil {
			return nil, err
		}

		return &ast.WhileStmt{Span: span, Label: n.While.Label, Cond: cond, Body: body}, nil

	case n.Do != nil:
		span := d.span()

		body, err := d.block(n.Do.Body)
		if err != nil {
			return nil, err
		}

		cond, err := d.expr(n.Do.Cond)
		if err != nil {
			return nil, err
		}

		return &ast.DoWhileStmt{Span: span, Label: n.Do.Label, Body: body, Cond: cond}, nil

	case n.Return != nil:
		span := d.span()

		e, err := d.expr(n.Return)
		if err != nil {
			return nil, err
		}

		return &ast.ReturnStmt{Span: span, Value: e}, nil

	case n.IsReturn:
		return &ast.ReturnStmt{Span: d.span()}, nil

	case n.Break != nil:
		return &ast.BreakStmt{Span: d.span(), Label: n.Break.Label}, nil

	case n.Continue != nil:
		return &ast.ContinueStmt{Span: d.span(), Label: n.Continue.Label}, nil

	case n.Switch != nil:
		return d.switchStmt(n.Switch)

	case n.Throw != nil:
		span := d.span()

		e, err := d.expr(n.Throw)
		if err != nil {
			return nil, err
		}

		return &ast.ThrowStmt{Span: span, Value: e}, nil

	case n.Try != nil:
		return d.tryStmt(n.Try)

	default:
		return nil, fmt.Errorf("statement with no recognized kind")
	}
}

func (d *decoder) switchStmt(n *switchNode) (ast.Statement, error) {
	span := d.span()

	value, err := d.expr(n.Value)
	if err != nil {
		return nil, err
	}

	out := &ast.SwitchStmt{Span: span, Label: n.Label, Value: value, Exhaustive: n.Exhaustive}

	for _, cn := range n.Cases {
		c := &ast.SwitchCase{Span: d.span(), IsDefault: cn.Default}

		for _, vn := range cn.Values {
			v, err := d.expr(vn)
			if err != nil {
				return nil, err
			}

			c.Values = append(c.Values, v)
		}

		for _, sn := range cn.Body {
			s, err := d.stmt(sn)
			if err != nil {
				return nil, err
			}

			c.Body = append(c.Body, s)
		}

		out.Cases = append(out.Cases, c)
	}

	return out, nil
}

func (d *decoder) tryStmt(n *tryNode) (ast.Statement, error) {
	span := d.span()

	body, err := d.block(n.Body)
	if err != nil {
		return nil, err
	}

	out := &ast.TryStmt{Span: span, Body: body}

	for _, cn := range n.Catches {
		c := &ast.CatchClause{Span: d.span()}

		if cn.Var != "" {
			v, err := d.declare(cn.Var, cn.Type)
			if err != nil {
				return nil, err
			}

			c.Exception = v
		}

		cb, err := d.block(cn.Body)
		if err != nil {
			return nil, err
		}

		c.Body = cb
		out.Catches = append(out.Catches, c)
	}

	if n.Finally != nil {
		fb, err := d.block(n.Finally)
		if err != nil {
			return nil, err
		}

		out.Finally = fb
	}

	return out, nil
}

func (d *decoder) expr(n *exprNode) (ast.Expression, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}

	switch {
	case n.Bool != nil:
		return &ast.BoolLiteral{Span: d.span(), Value: *n.Bool}, nil

	case n.Int != nil:
		return &ast.IntLiteral{Span: d.span(), Value: *n.Int}, nil

	case n.String != nil:
		return &ast.StringLiteral{Span: d.span(), Value: *n.String}, nil

	case n.Null:
		return &ast.NullLiteral{Span: d.span()}, nil

	case n.Ref != "":
		span := d.span()

		v, err := d.lookup(n.Ref)
		if err != nil {
			return nil, err
		}

		return &ast.VariableRef{Span: span, Variable: v}, nil

	case n.Assign != nil:
		span := d.span()

		v, err := d.lookup(n.Assign.To)
		if err != nil {
			return nil, err
		}

		value, err := d.expr(n.Assign.Value)
		if err != nil {
			return nil, err
		}

		return &ast.AssignExpr{Span: span, Variable: v, Value: value}, nil

	case n.Not != nil:
		span := d.span()

		op, err := d.expr(n.Not)
		if err != nil {
			return nil, err
		}

		return &ast.NotExpr{Span: span, Operand: op}, nil

	case n.And != nil:
		return d.binary(n.And, "and", func(span position.Span, l, r ast.Expression) ast.Expression {
			return &ast.LogicalExpr{Span: span, Op: ast.LogicalAnd, Left: l, Right: r}
		})

	case n.Or != nil:
		return d.binary(n.Or, "or", func(span position.Span, l, r ast.Expression) ast.Expression {
			return &ast.LogicalExpr{Span: span, Op: ast.LogicalOr, Left: l, Right: r}
		})

	case n.Eq != nil:
		return d.binary(n.Eq, "eq", func(span position.Span, l, r ast.Expression) ast.Expression {
			return &ast.EqualityExpr{Span: span, Left: l, Right: r}
		})

	case n.Ne != nil:
		return d.binary(n.Ne, "ne", func(span position.Span, l, r ast.Expression) ast.Expression {
			return &ast.EqualityExpr{Span: span, Left: l, Right: r, Negated: true}
		})

	case n.IfNull != nil:
		return d.binary(n.IfNull, "ifnull", func(span position.Span, l, r ast.Expression) ast.Expression {
			return &ast.IfNullExpr{Span: span, Left: l, Right: r}
		})

	case n.Cond != nil:
		span := d.span()

		c, err := d.expr(n.Cond.If)
		if err != nil {
			return nil, err
		}

		th, err := d.expr(n.Cond.Then)
		if err != nil {
			return nil, err
		}

		el, err := d.expr(n.Cond.Else)
		if err != nil {
			return nil, err
		}

		return &ast.ConditionalExpr{Span: span, Cond: c, Then: th, Else: el}, nil

	case n.Is != nil:
		span := d.span()

		op, err := d.expr(n.Is.Expr)
		if err != nil {
			return nil, err
		}

		t, err := parseType(n.Is.Type)
		if err != nil {
			return nil, err
		}

		return &ast.IsExpr{Span: span, Operand: op, Target: t, Negated: n.Is.Negated}, nil

	case n.As != nil:
		span := d.span()

		op, err := d.expr(n.As.Expr)
		if err != nil {
			return nil, err
		}

		t, err := parseType(n.As.Type)
		if err != nil {
			return nil, err
		}

		return &ast.AsExpr{Span: span, Operand: op, Target: t}, nil

	case n.Call != nil:
		span := d.span()

		t, err := parseType(n.Call.Type)
		if err != nil {
			return nil, err
		}

		out := &ast.CallExpr{Span: span, Name: n.Call.Name, ResultType: t}
		for _, an := range n.Call.Args {
			arg, err := d.expr(an)
			if err != nil {
				return nil, err
			}

			out.Args = append(out.Args, arg)
		}

		return out, nil

	case n.Func != nil:
		span := d.span()

		params := make([]*ast.Variable, 0, len(n.Func.Params))
		for _, p := range n.Func.Params {
			v, err := d.declare(p.Name, p.Type)
			if err != nil {
				return nil, err
			}

			params = append(params, v)
		}

		body, err := d.block(n.Func.Body)
		if err != nil {
			return nil, err
		}

		return &ast.FuncLiteral{Span: span, Params: params, Body: body}, nil

	default:
		return nil, fmt.Errorf("expression with no recognized kind")
	}
}

func (d *decoder) binary(ops []*exprNode, kind string, build func(position.Span, ast.Expression, ast.Expression) ast.Expression) (ast.Expression, error) {
	if len(ops) != 2 {
		return nil, fmt.Errorf("%s takes exactly two operands, got %d", kind, len(ops))
	}

	span := d.span()

	l, err := d.expr(ops[0])
	if err != nil {
		return nil, err
	}

	r, err := d.expr(ops[1])
	if err != nil {
		return nil, err
	}

	return build(span, l, r), nil
}

// parseType resolves a fixture type name. A trailing `?` marks the
// nullable variant; the special names void, dynamic, Null and Never map to
// their singletons; everything else is an interface type.
func parseType(name string) (*types.Type, error) {
	if name == "" {
		return nil, nil
	}

	nullable := strings.HasSuffix(name, "?")
	base := strings.TrimSuffix(name, "?")

	var t *types.Type

	switch base {
	case "void":
		t = types.Void
	case "dynamic":
		t = types.Dynamic
	case "Null":
		t = types.Null
	case "Never":
		t = types.Never
	case "":
		return nil, fmt.Errorf("empty type name")
	default:
		t = types.NewInterface(base)
	}

	if nullable {
		t = t.AsNullable()
	}

	return t, nil
}
