package msd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	one := func() Expr { return &Num{Val: 1} }
	x := func() Expr { return &Var{Name: "x"} }
	f := func() Expr { return &Var{Name: "f"} }

	tests := []struct {
		name  string
		a, b  Expr
		equal bool
	}{
		{"same number", &Num{Val: 1}, &Num{Val: 1}, true},
		{"different number", &Num{Val: 1}, &Num{Val: 2}, false},
		{"number and boolean", &Num{Val: 1}, &Bool{Val: true}, false},
		{"boolean and number", &Bool{Val: true}, &Num{Val: 1}, false},
		{"different variable", x(), f(), false},
		{"add and mult with the same operands", &Add{Left: one(), Right: x()}, &Mult{Left: one(), Right: x()}, false},
		{"eq and add with the same operands", &Eq{Left: one(), Right: x()}, &Add{Left: one(), Right: x()}, false},
		{"add with operands swapped", &Add{Left: one(), Right: x()}, &Add{Left: x(), Right: one()}, false},
		{
			"if with a different else",
			&If{Cond: &Bool{Val: true}, Then: one(), Else: x()},
			&If{Cond: &Bool{Val: true}, Then: one(), Else: f()},
			false,
		},
		{
			"let with a different name",
			&Let{Name: "x", Rhs: one(), Body: x()},
			&Let{Name: "y", Rhs: one(), Body: x()},
			false,
		},
		{
			"let with a different right-hand side",
			&Let{Name: "x", Rhs: one(), Body: x()},
			&Let{Name: "x", Rhs: &Num{Val: 2}, Body: x()},
			false,
		},
		{"fun with a different param", &Fun{Param: "x", Body: x()}, &Fun{Param: "y", Body: x()}, false},
		{"call with fun and arg swapped", &Call{Fun: f(), Arg: x()}, &Call{Fun: x(), Arg: f()}, false},
		{"nil and nil", nil, nil, true},
		{"nil and non-nil", nil, one(), false},
		{"non-nil and nil", one(), nil, false},
		{
			"only locations differ",
			&Let{
				Name:    "x",
				Rhs:     &Num{Val: 1, Loc: &SourceLocation{Line: 1, Column: 10, Length: 1}},
				Body:    &Var{Name: "x", Loc: &SourceLocation{Line: 2, Column: 6, Length: 1}},
				NameLoc: &SourceLocation{Line: 1, Column: 6, Length: 1},
				Loc:     &SourceLocation{Line: 1, Column: 1, Length: 16},
			},
			&Let{Name: "x", Rhs: one(), Body: x()},
			true,
		},
		{
			"nested",
			&Call{Fun: &Fun{Param: "x", Body: &Mult{Left: x(), Right: x()}}, Arg: &Num{Val: 3}},
			&Call{Fun: &Fun{Param: "x", Body: &Mult{Left: x(), Right: x()}}, Arg: &Num{Val: 3}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equal(tt.a, tt.b))
		})
	}
}
