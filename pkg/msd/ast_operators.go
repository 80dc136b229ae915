package msd

import (
	"context"
)

// binaryOperatorEvaluator combines the values of both operands.
type binaryOperatorEvaluator func(leftVal, rightVal Value) (Value, error)

// Add is l + r. It groups to the right: 1+2+3 is 1+(2+3).
type Add struct {
	Left  Expr
	Right Expr
	Loc   *SourceLocation
}

func (*Add) isExpr() {}

func (a *Add) GetSourceLocation() *SourceLocation { return a.Loc }

func (a *Add) String() string { return ToString(a) }

// Mult is l * r. It binds tighter than + and also groups to the right.
type Mult struct {
	Left  Expr
	Right Expr
	Loc   *SourceLocation
}

func (*Mult) isExpr() {}

func (m *Mult) GetSourceLocation() *SourceLocation { return m.Loc }

func (m *Mult) String() string { return ToString(m) }

// Eq is l == r, the loosest binary operator.
type Eq struct {
	Left  Expr
	Right Expr
	Loc   *SourceLocation
}

func (*Eq) isExpr() {}

func (e *Eq) GetSourceLocation() *SourceLocation { return e.Loc }

func (e *Eq) String() string { return ToString(e) }

// evalBinary evaluates both operands under the same environment, left
// first, and combines them.
func evalBinary(ctx context.Context, env *Env, left, right Expr, fn binaryOperatorEvaluator) (Value, error) {
	leftVal, err := eval(ctx, left, env)
	if err != nil {
		return nil, err
	}
	rightVal, err := eval(ctx, right, env)
	if err != nil {
		return nil, err
	}
	return fn(leftVal, rightVal)
}

func additionEval(leftVal, rightVal Value) (Value, error) {
	return leftVal.AddTo(rightVal)
}

func multiplicationEval(leftVal, rightVal Value) (Value, error) {
	return leftVal.MultWith(rightVal)
}

func equalityEval(leftVal, rightVal Value) (Value, error) {
	return BoolVal{Val: leftVal.Equals(rightVal)}, nil
}
