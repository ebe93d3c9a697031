package flow

import (
	"sort"

	"github.com/lumen-lang/lumen/internal/ast"
)

// AssignedVariables is the pre-pass index: for every statement and
// expression subtree, the set of local variables lexically (not
// necessarily reachably) assigned somewhere within it, and the set
// write-captured by a closure within it. It is computed once before the
// main pass, is independent of types, and is read-only afterwards.
type AssignedVariables struct {
	assigned map[ast.Node]map[*ast.Variable]bool
	captured map[ast.Node]map[*ast.Variable]bool
}

// ComputeAssigned builds the index for a function body.
func ComputeAssigned(body ast.Statement) *AssignedVariables {
	av := &AssignedVariables{
		assigned: make(map[ast.Node]map[*ast.Variable]bool),
		captured: make(map[ast.Node]map[*ast.Variable]bool),
	}
	av.collect(body)

	return av
}

// Assigned reports whether v is lexically assigned within the subtree
// rooted at node.
func (av *AssignedVariables) Assigned(node ast.Node, v *ast.Variable) bool {
	return av.assigned[node][v]
}

// Captured reports whether v is write-captured by a closure within the
// subtree rooted at node.
func (av *AssignedVariables) Captured(node ast.Node, v *ast.Variable) bool {
	return av.captured[node][v]
}

// AssignedIn returns the variables lexically assigned within node, in name
// order.
func (av *AssignedVariables) AssignedIn(node ast.Node) []*ast.Variable {
	return sortVariables(av.assigned[node])
}

// CapturedIn returns the variables write-captured within node, in name
// order.
func (av *AssignedVariables) CapturedIn(node ast.Node) []*ast.Variable {
	return sortVariables(av.captured[node])
}

func sortVariables(set map[*ast.Variable]bool) []*ast.Variable {
	out := make([]*ast.Variable, 0, len(set))
	for v := range set {
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// subtreeInfo is the bottom-up fold value for one node.
type subtreeInfo struct {
	assigned map[*ast.Variable]bool
	captured map[*ast.Variable]bool
	declared map[*ast.Variable]bool
}

func newSubtreeInfo() subtreeInfo {
	return subtreeInfo{
		assigned: make(map[*ast.Variable]bool),
		captured: make(map[*ast.Variable]bool),
		declared: make(map[*ast.Variable]bool),
	}
}

func (si subtreeInfo) absorb(child subtreeInfo) {
	for v := range child.assigned {
		si.assigned[v] = true
	}

	for v := range child.captured {
		si.captured[v] = true
	}

	for v := range child.declared {
		si.declared[v] = true
	}
}

// collect computes the fold for node and records it in the index.
func (av *AssignedVariables) collect(node ast.Node) subtreeInfo {
	info := newSubtreeInfo()
	if node == nil {
		return info
	}

	switch n := node.(type) {
	case *ast.AssignExpr:
		info.absorb(av.collect(n.Value))
		info.assigned[n.Variable] = true
	case *ast.FuncLiteral:
		inner := av.collect(n.Body)
		for _, p := range n.Params {
			inner.declared[p] = true
		}
		// Assignments to variables declared outside the closure capture
		// them by reference; the closure's own locals do not escape.
		for v := range inner.assigned {
			if !inner.declared[v] {
				info.assigned[v] = true
				info.captured[v] = true
			}
		}
		for v := range inner.captured {
			if !inner.declared[v] {
				info.captured[v] = true
			}
		}
	case *ast.VarDeclStmt:
		if n.Init != nil {
			info.absorb(av.collect(n.Init))
		}
		info.declared[n.Variable] = true
		if n.Init != nil {
			info.assigned[n.Variable] = true
		}
	case *ast.NotExpr:
		info.absorb(av.collect(n.Operand))
	case *ast.LogicalExpr:
		info.absorb(av.collect(n.Left))
		info.absorb(av.collect(n.Right))
	case *ast.EqualityExpr:
		info.absorb(av.collect(n.Left))
		info.absorb(av.collect(n.Right))
	case *ast.IfNullExpr:
		info.absorb(av.collect(n.Left))
		info.absorb(av.collect(n.Right))
	case *ast.ConditionalExpr:
		info.absorb(av.collect(n.Cond))
		info.absorb(av.collect(n.Then))
		info.absorb(av.collect(n.Else))
	case *ast.IsExpr:
		info.absorb(av.collect(n.Operand))
	case *ast.AsExpr:
		info.absorb(av.collect(n.Operand))
	case *ast.CallExpr:
		for _, arg := range n.Args {
			info.absorb(av.collect(arg))
		}
	case *ast.BlockStmt:
		for _, st := range n.Stmts {
			info.absorb(av.collect(st))
		}
	case *ast.ExprStmt:
		info.absorb(av.collect(n.E))
	case *ast.IfStmt:
		info.absorb(av.collect(n.Cond))
		info.absorb(av.collect(n.Then))
		if n.Else != nil {
			info.absorb(av.collect(n.Else))
		}
	case *ast.WhileStmt:
		info.absorb(av.collect(n.Cond))
		info.absorb(av.collect(n.Body))
	case *ast.DoWhileStmt:
		info.absorb(av.collect(n.Body))
		info.absorb(av.collect(n.Cond))
	case *ast.ReturnStmt:
		if n.Value != nil {
			info.absorb(av.collect(n.Value))
		}
	case *ast.SwitchStmt:
		info.absorb(av.collect(n.Value))
		for _, c := range n.Cases {
			for _, v := range c.Values {
				info.absorb(av.collect(v))
			}
			for _, st := range c.Body {
				info.absorb(av.collect(st))
			}
		}
	case *ast.ThrowStmt:
		info.absorb(av.collect(n.Value))
	case *ast.TryStmt:
		info.absorb(av.collect(n.Body))
		for _, c := range n.Catches {
			info.absorb(av.collect(c.Body))
			if c.Exception != nil {
				info.declared[c.Exception] = true
			}
		}
		if n.Finally != nil {
			info.absorb(av.collect(n.Finally))
		}
	}

	av.assigned[node] = info.assigned
	av.captured[node] = info.captured

	return info
}
