package msd

import (
	"strconv"
)

// Num is an integer literal.
type Num struct {
	Val int
	Loc *SourceLocation
}

func (*Num) isExpr() {}

func (n *Num) GetSourceLocation() *SourceLocation { return n.Loc }

func (n *Num) String() string { return strconv.Itoa(n.Val) }

// Bool is a boolean literal, written _true or _false.
type Bool struct {
	Val bool
	Loc *SourceLocation
}

func (*Bool) isExpr() {}

func (b *Bool) GetSourceLocation() *SourceLocation { return b.Loc }

func (b *Bool) String() string {
	if b.Val {
		return "_true"
	}
	return "_false"
}

// Var is a variable reference.
type Var struct {
	Name string
	Loc  *SourceLocation
}

func (*Var) isExpr() {}

func (v *Var) GetSourceLocation() *SourceLocation { return v.Loc }

func (v *Var) String() string { return v.Name }
