package msd

// If is _if Cond _then Then _else Else.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
	Loc  *SourceLocation
}

func (*If) isExpr() {}

func (i *If) GetSourceLocation() *SourceLocation { return i.Loc }

func (i *If) String() string { return ToString(i) }

// Let is _let Name = Rhs _in Body. Name is visible in Body only.
type Let struct {
	Name string
	Rhs  Expr
	Body Expr

	NameLoc *SourceLocation
	Loc     *SourceLocation
}

func (*Let) isExpr() {}

func (l *Let) GetSourceLocation() *SourceLocation { return l.Loc }

func (l *Let) String() string { return ToString(l) }

// Fun is a single-parameter function literal, _fun (Param) Body.
type Fun struct {
	Param string
	Body  Expr

	ParamLoc *SourceLocation
	Loc      *SourceLocation
}

func (*Fun) isExpr() {}

func (f *Fun) GetSourceLocation() *SourceLocation { return f.Loc }

func (f *Fun) String() string { return ToString(f) }

// Call applies Fun to Arg. Application is written by juxtaposition and
// groups to the left: f 1 2 is (f 1) 2.
type Call struct {
	Fun Expr
	Arg Expr
	Loc *SourceLocation
}

func (*Call) isExpr() {}

func (c *Call) GetSourceLocation() *SourceLocation { return c.Loc }

func (c *Call) String() string { return ToString(c) }
