package lsp

import (
	"github.com/vito/msdscript/pkg/msd"
	"go.lsp.dev/protocol"
)

// pathAt returns the nodes whose span contains the 0-based LSP position,
// outermost first. It is empty if the position is outside the tree.
func pathAt(root msd.Expr, pos protocol.Position) []msd.Expr {
	line, col := int(pos.Line)+1, int(pos.Character)+1

	var path []msd.Expr
	node := root
	for node != nil && node.GetSourceLocation().Contains(line, col) {
		path = append(path, node)
		var next msd.Expr
		for _, child := range msd.Children(node) {
			if child.GetSourceLocation().Contains(line, col) {
				next = child
				break
			}
		}
		node = next
	}
	return path
}

// binding is a variable introduced by a _let or a _fun.
type binding struct {
	Name    string
	NameLoc *msd.SourceLocation
	Binder  msd.Expr
	Scope   msd.Expr
}

func bindingOf(binder msd.Expr) *binding {
	switch n := binder.(type) {
	case *msd.Let:
		return &binding{Name: n.Name, NameLoc: n.NameLoc, Binder: n, Scope: n.Body}
	case *msd.Fun:
		return &binding{Name: n.Param, NameLoc: n.ParamLoc, Binder: n, Scope: n.Body}
	default:
		return nil
	}
}

// symbolAt finds the binding referred to at pos, either by a variable
// reference or by the binder's own name. The returned variable is nil when
// pos is on the binder itself.
func symbolAt(root msd.Expr, pos protocol.Position) (*binding, *msd.Var) {
	path := pathAt(root, pos)
	if len(path) == 0 {
		return nil, nil
	}

	switch n := path[len(path)-1].(type) {
	case *msd.Var:
		return resolve(path), n
	case *msd.Let, *msd.Fun:
		b := bindingOf(n)
		if b.NameLoc.Contains(int(pos.Line)+1, int(pos.Character)+1) {
			return b, nil
		}
	}
	return nil, nil
}

// resolve walks outward from the variable at the end of path to the
// innermost binder that has it in scope. A _let's own right-hand side is
// not in scope of its name.
func resolve(path []msd.Expr) *binding {
	v := path[len(path)-1].(*msd.Var)
	for i := len(path) - 2; i >= 0; i-- {
		b := bindingOf(path[i])
		if b != nil && b.Name == v.Name && path[i+1] == b.Scope {
			return b
		}
	}
	return nil
}

// references lists every variable that resolves to b.
func references(b *binding) []*msd.Var {
	var refs []*msd.Var
	var walk func(msd.Expr)
	walk = func(e msd.Expr) {
		switch n := e.(type) {
		case *msd.Var:
			if n.Name == b.Name {
				refs = append(refs, n)
			}
			return
		case *msd.Let:
			walk(n.Rhs)
			if n.Name != b.Name {
				walk(n.Body)
			}
			return
		case *msd.Fun:
			if n.Param != b.Name {
				walk(n.Body)
			}
			return
		}
		for _, child := range msd.Children(e) {
			walk(child)
		}
	}
	walk(b.Scope)
	return refs
}
