package ast

// Walk traverses the tree rooted at node in depth-first source order,
// calling fn for each node before its children. If fn returns false the
// children of that node are skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *BoolLiteral, *IntLiteral, *StringLiteral, *NullLiteral, *VariableRef:
		// Leaves.
	case *AssignExpr:
		Walk(n.Value, fn)
	case *NotExpr:
		Walk(n.Operand, fn)
	case *LogicalExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *EqualityExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *IfNullExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *ConditionalExpr:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *IsExpr:
		Walk(n.Operand, fn)
	case *AsExpr:
		Walk(n.Operand, fn)
	case *CallExpr:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *FuncLiteral:
		Walk(n.Body, fn)
	case *BlockStmt:
		for _, st := range n.Stmts {
			Walk(st, fn)
		}
	case *VarDeclStmt:
		if n.Init != nil {
			Walk(n.Init, fn)
		}
	case *ExprStmt:
		Walk(n.E, fn)
	case *IfStmt:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *WhileStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *DoWhileStmt:
		Walk(n.Body, fn)
		Walk(n.Cond, fn)
	case *ReturnStmt:
		if n.Value != nil {
			Walk(n.Value, fn)
		}
	case *BreakStmt, *ContinueStmt:
		// Leaves.
	case *SwitchStmt:
		Walk(n.Value, fn)
		for _, c := range n.Cases {
			for _, v := range c.Values {
				Walk(v, fn)
			}
			for _, st := range c.Body {
				Walk(st, fn)
			}
		}
	case *ThrowStmt:
		Walk(n.Value, fn)
	case *TryStmt:
		Walk(n.Body, fn)
		for _, c := range n.Catches {
			Walk(c.Body, fn)
		}
		if n.Finally != nil {
			Walk(n.Finally, fn)
		}
	case *FuncDecl:
		Walk(n.Body, fn)
	}
}
