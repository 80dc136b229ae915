package msd

import (
	"context"
	"errors"
	"fmt"
)

// ErrCallDepthExceeded is returned when nested calls go deeper than the
// limit set with WithCallDepthLimit.
var ErrCallDepthExceeded = errors.New("call depth limit exceeded")

type callDepthLimitKey struct{}
type callStackKey struct{}

// WithCallDepthLimit bounds how deeply function calls may nest in
// evaluations run under ctx. Zero means no limit.
func WithCallDepthLimit(ctx context.Context, limit int) context.Context {
	return context.WithValue(ctx, callDepthLimitKey{}, limit)
}

type callStack struct {
	depth int
	limit int
}

func (s *callStack) push() error {
	if s.limit > 0 && s.depth >= s.limit {
		return fmt.Errorf("%w: %d", ErrCallDepthExceeded, s.limit)
	}
	s.depth++
	return nil
}

func (s *callStack) pop() {
	s.depth--
}

// Interp evaluates e. A nil env is the empty environment, so any free
// variable in e is an error.
func Interp(ctx context.Context, e Expr, env *Env) (Value, error) {
	limit, _ := ctx.Value(callDepthLimitKey{}).(int)
	ctx = context.WithValue(ctx, callStackKey{}, &callStack{limit: limit})
	return eval(ctx, e, env)
}

func eval(ctx context.Context, e Expr, env *Env) (Value, error) {
	switch n := e.(type) {
	case *Num:
		return NumVal{Val: n.Val}, nil
	case *Bool:
		return BoolVal{Val: n.Val}, nil
	case *Var:
		val, err := env.Lookup(n.Name)
		if err != nil {
			return nil, locate(err, n)
		}
		return val, nil
	case *Add:
		val, err := evalBinary(ctx, env, n.Left, n.Right, additionEval)
		return val, locate(err, n)
	case *Mult:
		val, err := evalBinary(ctx, env, n.Left, n.Right, multiplicationEval)
		return val, locate(err, n)
	case *Eq:
		return evalBinary(ctx, env, n.Left, n.Right, equalityEval)
	case *If:
		cond, err := eval(ctx, n.Cond, env)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(BoolVal)
		if !ok {
			return nil, locate(typeErrorf("condition must be a boolean, got %s %s", kindOf(cond), cond), n.Cond)
		}
		if b.Val {
			return eval(ctx, n.Then, env)
		}
		return eval(ctx, n.Else, env)
	case *Let:
		rhs, err := eval(ctx, n.Rhs, env)
		if err != nil {
			return nil, err
		}
		return eval(ctx, n.Body, env.Extend(n.Name, rhs))
	case *Fun:
		return &FunVal{Param: n.Param, Body: n.Body, Env: env}, nil
	case *Call:
		fun, err := eval(ctx, n.Fun, env)
		if err != nil {
			return nil, err
		}
		arg, err := eval(ctx, n.Arg, env)
		if err != nil {
			return nil, err
		}
		val, err := fun.Call(ctx, arg)
		return val, locate(err, n)
	case nil:
		return nil, errors.New("cannot evaluate a nil expression")
	default:
		return nil, fmt.Errorf("evaluation not implemented for node type %T", e)
	}
}

// locate fills in the location of a freshly raised error that does not
// have one yet. Errors that already carry a location pass through.
func locate(err error, node SourceLocatable) error {
	if err == nil {
		return nil
	}
	loc := node.GetSourceLocation()
	if loc == nil {
		return err
	}
	switch e := err.(type) {
	case *TypeError:
		if e.Location == nil {
			return &TypeError{Message: e.Message, Location: loc}
		}
	case *UnboundVariableError:
		if e.Location == nil {
			return &UnboundVariableError{Name: e.Name, Location: loc}
		}
	}
	return err
}
