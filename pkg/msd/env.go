package msd

import (
	"iter"
)

// Env is an immutable chain of variable bindings. The nil *Env is the empty
// environment; Extend never modifies its receiver, so an Env may be shared
// freely between closures and concurrent evaluations.
type Env struct {
	name   string
	value  Value
	parent *Env
}

// EmptyEnv has no bindings.
var EmptyEnv *Env

// Extend returns a new environment binding name to value in front of env.
func (env *Env) Extend(name string, value Value) *Env {
	return &Env{
		name:   name,
		value:  value,
		parent: env,
	}
}

// Lookup finds the innermost binding for name.
func (env *Env) Lookup(name string) (Value, error) {
	for e := env; e != nil; e = e.parent {
		if e.name == name {
			return e.value, nil
		}
	}
	return nil, &UnboundVariableError{Name: name}
}

// IsEmpty reports whether env has no bindings.
func (env *Env) IsEmpty() bool {
	return env == nil
}

// Bindings yields every visible binding, innermost first. Shadowed
// bindings are skipped.
func (env *Env) Bindings() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		seen := map[string]bool{}
		for e := env; e != nil; e = e.parent {
			if seen[e.name] {
				continue
			}
			seen[e.name] = true
			if !yield(e.name, e.value) {
				return
			}
		}
	}
}
