package msd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Value is the result of evaluating an expression: a NumVal, a BoolVal or a
// *FunVal. Values are immutable.
type Value interface {
	String() string

	// Equals is structural and variant-sensitive: values of different
	// kinds are never equal.
	Equals(Value) bool

	AddTo(Value) (Value, error)
	MultWith(Value) (Value, error)

	// Call applies a function value to an argument.
	Call(ctx context.Context, arg Value) (Value, error)

	isValue()
}

var (
	_ Value = NumVal{}
	_ Value = BoolVal{}
	_ Value = (*FunVal)(nil)
)

// NumVal represents an integer value
type NumVal struct {
	Val int
}

func (NumVal) isValue() {}

func (n NumVal) String() string {
	return strconv.Itoa(n.Val)
}

func (n NumVal) Equals(other Value) bool {
	o, ok := other.(NumVal)
	return ok && o.Val == n.Val
}

func (n NumVal) AddTo(other Value) (Value, error) {
	o, ok := other.(NumVal)
	if !ok {
		return nil, typeErrorf("addition not supported for %s and %s", kindOf(n), kindOf(other))
	}
	return NumVal{Val: n.Val + o.Val}, nil
}

func (n NumVal) MultWith(other Value) (Value, error) {
	o, ok := other.(NumVal)
	if !ok {
		return nil, typeErrorf("multiplication not supported for %s and %s", kindOf(n), kindOf(other))
	}
	return NumVal{Val: n.Val * o.Val}, nil
}

func (n NumVal) Call(context.Context, Value) (Value, error) {
	return nil, typeErrorf("cannot call %s %s", kindOf(n), n)
}

// BoolVal represents a boolean value
type BoolVal struct {
	Val bool
}

func (BoolVal) isValue() {}

func (b BoolVal) String() string {
	if b.Val {
		return "_true"
	}
	return "_false"
}

func (b BoolVal) Equals(other Value) bool {
	o, ok := other.(BoolVal)
	return ok && o.Val == b.Val
}

func (b BoolVal) AddTo(other Value) (Value, error) {
	return nil, typeErrorf("addition not supported for %s and %s", kindOf(b), kindOf(other))
}

func (b BoolVal) MultWith(other Value) (Value, error) {
	return nil, typeErrorf("multiplication not supported for %s and %s", kindOf(b), kindOf(other))
}

func (b BoolVal) Call(context.Context, Value) (Value, error) {
	return nil, typeErrorf("cannot call %s %s", kindOf(b), b)
}

// FunVal is a closure: a parameter and body paired with the environment
// that was active when the _fun expression was evaluated.
type FunVal struct {
	Param string
	Body  Expr
	Env   *Env
}

func (*FunVal) isValue() {}

func (f *FunVal) String() string {
	return "[function]"
}

// Equals compares closures by identity. Two closures built from the same
// _fun under different environments can behave differently, and comparing
// environments structurally would compare closures captured inside them, so
// only the same closure is equal to itself.
func (f *FunVal) Equals(other Value) bool {
	o, ok := other.(*FunVal)
	return ok && o == f
}

func (f *FunVal) AddTo(other Value) (Value, error) {
	return nil, typeErrorf("addition not supported for %s and %s", kindOf(f), kindOf(other))
}

func (f *FunVal) MultWith(other Value) (Value, error) {
	return nil, typeErrorf("multiplication not supported for %s and %s", kindOf(f), kindOf(other))
}

// Call evaluates the body under the captured environment extended with the
// parameter bound to arg.
func (f *FunVal) Call(ctx context.Context, arg Value) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if stack, ok := ctx.Value(callStackKey{}).(*callStack); ok {
		if err := stack.push(); err != nil {
			return nil, err
		}
		defer stack.pop()
	}
	slog.DebugContext(ctx, "calling function", "param", f.Param, "arg", arg)
	return eval(ctx, f.Body, f.Env.Extend(f.Param, arg))
}

func kindOf(v Value) string {
	switch v.(type) {
	case NumVal:
		return "number"
	case BoolVal:
		return "boolean"
	case *FunVal:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func typeErrorf(format string, args ...any) *TypeError {
	return &TypeError{Message: fmt.Sprintf(format, args...)}
}
