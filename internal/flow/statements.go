package flow

import (
	"github.com/lumen-lang/lumen/internal/ast"
)

// branchTarget accumulates the models flowing into a breakable or
// continuable statement from its break and continue edges. depth is the
// stack depth the statement's control-flow split established; incoming
// edges are unsplit to it before joining.
type branchTarget struct {
	stmt          ast.Statement
	label         string
	isLoop        bool
	depth         int
	breakModel    *FlowModel
	continueModel *FlowModel
}

func (a *analyzer) pushTarget(stmt ast.Statement, label string, isLoop bool, depth int) *branchTarget {
	t := &branchTarget{stmt: stmt, label: label, isLoop: isLoop, depth: depth}
	a.targets = append(a.targets, t)

	return t
}

func (a *analyzer) popTarget(t *branchTarget) {
	a.targets = a.targets[:len(a.targets)-1]

	if t.breakModel != nil {
		a.res.breakModels[t.stmt] = t.breakModel
	}

	if t.continueModel != nil {
		a.res.continueModels[t.stmt] = t.continueModel
	}
}

// findTarget resolves a break or continue to its target. An empty label
// targets the innermost loop (for continue) or breakable statement.
func (a *analyzer) findTarget(label string, needLoop bool) *branchTarget {
	for i := len(a.targets) - 1; i >= 0; i-- {
		t := a.targets[i]
		if needLoop && !t.isLoop {
			continue
		}

		if label == "" || t.label == label {
			return t
		}
	}

	return nil
}

// visitStmt computes the model holding after s given the model holding
// before it, memoizing both and reporting a dead-code advisory when the
// entry point is unreachable from function entry.
func (a *analyzer) visitStmt(s ast.Statement, before *FlowModel) *FlowModel {
	a.res.stmtBefore[s] = before

	if _, isBlock := s.(*ast.BlockStmt); !isBlock && !before.FunctionReachable() {
		a.res.collector.Report(diagDeadCode, s.GetSpan(), "statement is unreachable")
	}

	after := a.dispatchStmt(s, before)
	a.res.stmtAfter[s] = after

	return after
}

func (a *analyzer) dispatchStmt(s ast.Statement, before *FlowModel) *FlowModel {
	switch n := s.(type) {
	case *ast.BlockStmt:
		m := before
		for _, st := range n.Stmts {
			m = a.visitStmt(st, m)
		}

		// Variables declared directly in this block leave scope here.
		for _, st := range n.Stmts {
			if decl, ok := st.(*ast.VarDeclStmt); ok {
				m = m.forget(decl.Variable)
			}
		}

		return m

	case *ast.VarDeclStmt:
		if n.Init == nil {
			return before.declare(n.Variable, false)
		}

		vi := a.analyzeExpr(n.Init, before)
		m := vi.After.declare(n.Variable, false)

		// Run the initializer through the assignment policy so an
		// unannotated declaration picks up its initializer's type.
		return a.writeVariable(m, n.Variable, vi.Type)

	case *ast.ExprStmt:
		return a.analyzeExpr(n.E, before).After

	case *ast.IfStmt:
		return a.ifStmt(n, before)

	case *ast.WhileStmt:
		return a.whileStmt(n, before)

	case *ast.DoWhileStmt:
		return a.doWhileStmt(n, before)

	case *ast.ReturnStmt:
		m := before
		if n.Value != nil {
			m = a.analyzeExpr(n.Value, m).After
		}

		return m.SetUnreachable()

	case *ast.BreakStmt:
		if t := a.findTarget(n.Label, false); t != nil {
			t.breakModel = accumulate(t.breakModel, before.UnsplitTo(t.depth))
		}

		return before.SetUnreachable()

	case *ast.ContinueStmt:
		if t := a.findTarget(n.Label, true); t != nil {
			t.continueModel = accumulate(t.continueModel, before.UnsplitTo(t.depth))
		}

		return before.SetUnreachable()

	case *ast.SwitchStmt:
		return a.switchStmt(n, before)

	case *ast.ThrowStmt:
		return a.analyzeExpr(n.Value, before).After.SetUnreachable()

	case *ast.TryStmt:
		return a.tryStmt(n, before)

	default:
		return before
	}
}

func (a *analyzer) ifStmt(n *ast.IfStmt, before *FlowModel) *FlowModel {
	// The condition runs one split deeper: deadness implied by its value
	// (a literal false, a never-null operand) stays provisional instead
	// of landing on the function-entry element, so promotion bookkeeping
	// inside a value-dead branch survives and the dead-code walker does
	// not fire there. The final Unsplit ANDs the incoming reachability
	// back in.
	ci := a.analyzeExpr(n.Cond, before.Split())

	thenEnd := a.visitStmt(n.Then, ci.True.Split())

	elseEnd := ci.False.Split()
	if n.Else != nil {
		elseEnd = a.visitStmt(n.Else, elseEnd)
	}

	return Join(thenEnd, elseEnd).Unsplit()
}

// whileStmt analyzes `while (cond) body`. The loop back-edge is
// approximated up front: before the condition, every variable assigned in
// the loop loses its promotions and every variable captured in it becomes
// write-captured, which soundly covers whatever the unanalyzed repeat
// iterations may do.
func (a *analyzer) whileStmt(n *ast.WhileStmt, before *FlowModel) *FlowModel {
	entry := conservativeJoin(before, a.assigned.AssignedIn(n), a.assigned.CapturedIn(n)).Split()

	ci := a.analyzeExpr(n.Cond, entry)

	t := a.pushTarget(n, n.Label, true, entry.Depth())
	end := a.visitStmt(n.Body, ci.True)
	t.continueModel = accumulate(t.continueModel, end)
	a.popTarget(t)

	// The loop exits when the condition is false or a break fires.
	return accumulate(t.breakModel, ci.False).Unsplit()
}

// doWhileStmt analyzes `do body while (cond)`. The body always runs once;
// the condition sees the body's end state joined with every continue edge.
func (a *analyzer) doWhileStmt(n *ast.DoWhileStmt, before *FlowModel) *FlowModel {
	entry := conservativeJoin(before, a.assigned.AssignedIn(n), a.assigned.CapturedIn(n)).Split()

	t := a.pushTarget(n, n.Label, true, entry.Depth())
	end := a.visitStmt(n.Body, entry)
	condEntry := accumulate(t.continueModel, end)
	ci := a.analyzeExpr(n.Cond, condEntry)
	a.popTarget(t)

	return accumulate(t.breakModel, ci.False).Unsplit()
}

// switchStmt treats a switch as an n-ary branch. Whether the switch is
// exhaustive is supplied by the caller; a non-exhaustive switch has an
// implicit edge that skips every case.
func (a *analyzer) switchStmt(n *ast.SwitchStmt, before *FlowModel) *FlowModel {
	vi := a.analyzeExpr(n.Value, before)
	base := vi.After.Split()

	t := a.pushTarget(n, n.Label, false, base.Depth())

	var acc *FlowModel

	hasDefault := false

	for _, c := range n.Cases {
		if c.IsDefault {
			hasDefault = true
		}

		for _, v := range c.Values {
			a.analyzeExpr(v, base)
		}

		m := base
		for _, st := range c.Body {
			m = a.visitStmt(st, m)
		}

		for _, st := range c.Body {
			if decl, ok := st.(*ast.VarDeclStmt); ok {
				m = m.forget(decl.Variable)
			}
		}

		acc = accumulate(acc, m)
	}

	a.popTarget(t)

	if !n.Exhaustive && !hasDefault {
		acc = accumulate(acc, base)
	}

	acc = accumulate(acc, t.breakModel)

	if acc == nil {
		acc = base.SetUnreachable()
	}

	return acc.Unsplit()
}

// tryStmt analyzes try/catch and try/finally. A catch clause may be
// entered from any point inside the body, so its entry state is the
// conservative widening of the state before the try against everything the
// body assigns or captures. The finally clause likewise runs on both the
// normal and the exceptional path.
func (a *analyzer) tryStmt(n *ast.TryStmt, before *FlowModel) *FlowModel {
	bodyEnd := a.visitStmt(n.Body, before.Split())

	acc := bodyEnd

	if len(n.Catches) > 0 {
		catchBase := conservativeJoin(before, a.assigned.AssignedIn(n.Body), a.assigned.CapturedIn(n.Body)).Split()

		for _, c := range n.Catches {
			m := catchBase
			if c.Exception != nil {
				m = m.declare(c.Exception, true)
			}

			m = a.visitStmt(c.Body, m)

			if c.Exception != nil {
				m = m.forget(c.Exception)
			}

			acc = merge(acc, m)
		}
	}

	afterTC := acc.Unsplit()

	if n.Finally == nil {
		return afterTC
	}

	// The exceptional path may leave the protected region at any point.
	exceptional := conservativeJoin(before, a.assigned.AssignedIn(n), a.assigned.CapturedIn(n))
	finEnd := a.visitStmt(n.Finally, merge(afterTC, exceptional))

	// Control continues past the finally clause only when the protected
	// region could complete.
	if !afterTC.Reachable() {
		finEnd = finEnd.SetUnreachable()
	}

	return finEnd
}
