package msd

import (
	"sort"
)

// Expr is a node in a parsed MSDscript program. The set of node types is
// closed: Num, Bool, Var, Add, Mult, Eq, If, Let, Fun and Call.
//
// Nodes are immutable once constructed, and each child belongs to exactly
// one parent.
type Expr interface {
	SourceLocatable

	// String returns the canonical, fully parenthesized rendering.
	String() string

	isExpr()
}

var (
	_ Expr = (*Num)(nil)
	_ Expr = (*Bool)(nil)
	_ Expr = (*Var)(nil)
	_ Expr = (*Add)(nil)
	_ Expr = (*Mult)(nil)
	_ Expr = (*Eq)(nil)
	_ Expr = (*If)(nil)
	_ Expr = (*Let)(nil)
	_ Expr = (*Fun)(nil)
	_ Expr = (*Call)(nil)
)

// Equal reports whether two trees are structurally equal. Source locations
// are ignored, and nodes of different types are never equal.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Num:
		y, ok := b.(*Num)
		return ok && x.Val == y.Val
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.Val == y.Val
	case *Var:
		y, ok := b.(*Var)
		return ok && x.Name == y.Name
	case *Add:
		y, ok := b.(*Add)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Mult:
		y, ok := b.(*Mult)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Eq:
		y, ok := b.(*Eq)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *If:
		y, ok := b.(*If)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	case *Let:
		y, ok := b.(*Let)
		return ok && x.Name == y.Name && Equal(x.Rhs, y.Rhs) && Equal(x.Body, y.Body)
	case *Fun:
		y, ok := b.(*Fun)
		return ok && x.Param == y.Param && Equal(x.Body, y.Body)
	case *Call:
		y, ok := b.(*Call)
		return ok && Equal(x.Fun, y.Fun) && Equal(x.Arg, y.Arg)
	default:
		return false
	}
}

// FreeVars returns the sorted names referenced by e that are not bound by
// an enclosing _let or _fun within e.
func FreeVars(e Expr) []string {
	seen := map[string]bool{}
	collectFreeVars(e, map[string]int{}, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectFreeVars(e Expr, bound map[string]int, free map[string]bool) {
	withBound := func(name string, body Expr) {
		bound[name]++
		collectFreeVars(body, bound, free)
		bound[name]--
	}

	switch n := e.(type) {
	case *Num, *Bool:
	case *Var:
		if bound[n.Name] == 0 {
			free[n.Name] = true
		}
	case *Add:
		collectFreeVars(n.Left, bound, free)
		collectFreeVars(n.Right, bound, free)
	case *Mult:
		collectFreeVars(n.Left, bound, free)
		collectFreeVars(n.Right, bound, free)
	case *Eq:
		collectFreeVars(n.Left, bound, free)
		collectFreeVars(n.Right, bound, free)
	case *If:
		collectFreeVars(n.Cond, bound, free)
		collectFreeVars(n.Then, bound, free)
		collectFreeVars(n.Else, bound, free)
	case *Let:
		// the binding is not visible in its own right-hand side
		collectFreeVars(n.Rhs, bound, free)
		withBound(n.Name, n.Body)
	case *Fun:
		withBound(n.Param, n.Body)
	case *Call:
		collectFreeVars(n.Fun, bound, free)
		collectFreeVars(n.Arg, bound, free)
	}
}

// Children returns the direct sub-expressions of e in source order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Add:
		return []Expr{n.Left, n.Right}
	case *Mult:
		return []Expr{n.Left, n.Right}
	case *Eq:
		return []Expr{n.Left, n.Right}
	case *If:
		return []Expr{n.Cond, n.Then, n.Else}
	case *Let:
		return []Expr{n.Rhs, n.Body}
	case *Fun:
		return []Expr{n.Body}
	case *Call:
		return []Expr{n.Fun, n.Arg}
	default:
		return nil
	}
}
