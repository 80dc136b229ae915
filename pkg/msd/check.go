package msd

import (
	"context"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/vito/msdscript/pkg/msd")

// Check is one self-test case: a program, what to do with it, and the
// expected outcome.
type Check struct {
	Name   string
	Source string

	// Mode defaults to ModeInterp.
	Mode Mode

	// Want is the expected output line: the value for ModeInterp, the
	// rendering for ModePrint and ModePrettyPrint.
	Want string

	// WantErr is the expected ErrorKind. When set, Want is ignored.
	WantErr string

	// RoundTrip additionally requires both renderings to parse back to
	// an equal tree.
	RoundTrip bool
}

// CheckResult is the outcome of running a Check.
type CheckResult struct {
	Check Check
	Got   string
	Err   error
	Pass  bool
}

// Failure describes why a check failed, or "" if it passed.
func (r CheckResult) Failure() string {
	switch {
	case r.Pass:
		return ""
	case r.Check.WantErr != "" && r.Err == nil:
		return fmt.Sprintf("expected %s, got %s", r.Check.WantErr, r.Got)
	case r.Err != nil:
		return r.Err.Error()
	default:
		return fmt.Sprintf("expected %s, got %s", r.Check.Want, r.Got)
	}
}

// Run executes the check against the empty environment.
func (c Check) Run(ctx context.Context) CheckResult {
	res := CheckResult{Check: c}

	e, err := ParseStr(c.Source)
	if err == nil && c.RoundTrip {
		err = checkRoundTrip(e)
	}
	if err == nil {
		res.Got, err = c.apply(ctx, e)
	}
	res.Err = err

	if c.WantErr != "" {
		res.Pass = err != nil && ErrorKind(err) == c.WantErr
	} else {
		res.Pass = err == nil && res.Got == c.Want
	}
	return res
}

// traced runs the check in its own span.
func (c Check) traced(ctx context.Context) CheckResult {
	ctx, span := tracer.Start(ctx, "check "+c.Name)
	defer span.End()

	res := c.Run(ctx)
	span.SetAttributes(
		attribute.String("msd.source", c.Source),
		attribute.String("msd.got", res.Got),
		attribute.Bool("msd.pass", res.Pass),
	)
	if !res.Pass {
		span.SetStatus(codes.Error, res.Failure())
	}
	return res
}

func (c Check) apply(ctx context.Context, e Expr) (string, error) {
	switch c.Mode {
	case ModeInterp, "":
		val, err := Interp(ctx, e, EmptyEnv)
		if err != nil {
			return "", err
		}
		return val.String(), nil
	case ModePrint:
		return ToString(e), nil
	case ModePrettyPrint:
		return ToPrettyString(e), nil
	default:
		return "", fmt.Errorf("unknown mode %q", c.Mode)
	}
}

func checkRoundTrip(e Expr) error {
	for _, render := range []func(Expr) string{ToString, ToPrettyString} {
		text := render(e)
		back, err := ParseStr(text)
		if err != nil {
			return fmt.Errorf("reparsing %q: %w", text, err)
		}
		if !Equal(back, e) {
			return fmt.Errorf("reparsing %q: got %s, want %s", text, back, e)
		}
	}
	return nil
}

// RunChecks runs every check concurrently and returns the results in the
// same order as checks. The error is non-nil only if ctx is canceled.
func RunChecks(ctx context.Context, checks []Check) ([]CheckResult, error) {
	results := make([]CheckResult, len(checks))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range checks {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.traced(ctx)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DefaultChecks is the built-in self-test suite.
func DefaultChecks() []Check {
	return []Check{
		{Name: "precedence", Source: "1+2*3", Mode: ModePrint, Want: "(1+(2*3))"},
		{Name: "parenthesized sum", Source: "(1+2)*3", Mode: ModePrint, Want: "((1+2)*3)"},
		{Name: "addition groups right", Source: "1+2+3", Mode: ModePrint, Want: "(1+(2+3))"},
		{Name: "multiplication groups right", Source: "1*2*3", Mode: ModePrint, Want: "(1*(2*3))"},
		{Name: "arithmetic", Source: "2*3+4", Want: "10"},
		{Name: "negative literal", Source: "-3 * 2", Want: "-6"},
		{Name: "shadowing", Source: "_let x=1 _in _let x=2 _in x", Want: "2"},
		{Name: "closure capture", Source: "_let x=1 _in _let f=_fun(y) x+y _in _let x=2 _in f 3", Want: "4"},
		{Name: "curried call", Source: "_let add=_fun(a) _fun(b) a+b _in add 2 3", Want: "5"},
		{Name: "let not recursive", Source: "_let x=x _in x", WantErr: "unbound variable"},
		{Name: "unbound variable", Source: "x", WantErr: "unbound variable"},
		{Name: "incomplete sum", Source: "1+", WantErr: "parse error"},
		{Name: "unclosed paren", Source: "(1+2", WantErr: "parse error"},
		{Name: "lone minus", Source: "-", WantErr: "parse error"},
		{Name: "trailing input", Source: "1 )", WantErr: "parse error"},
		{Name: "equality", Source: "1+1 == 2", Want: "_true"},
		{Name: "equality across kinds", Source: "1 == _true", Want: "_false"},
		{Name: "conditional", Source: "_if 1 == 2 _then 10 _else 20", Want: "20"},
		{Name: "non-boolean condition", Source: "_if 1 _then 2 _else 3", WantErr: "type error"},
		{Name: "adding a boolean", Source: "1 + _true", WantErr: "type error"},
		{Name: "calling a number", Source: "1 2", WantErr: "type error"},
		{Name: "function value", Source: "_fun (x) x", Want: "[function]"},
		{
			Name:   "factorial",
			Source: "_let fact = _fun (f) _fun (n) _if n == 0 _then 1 _else n * f f (n + -1) _in fact fact 5",
			Want:   "120",
		},
		{Name: "pretty minimal parens", Source: "(1+2)*(3+4)", Mode: ModePrettyPrint, Want: "(1 + 2) * (3 + 4)"},
		{Name: "pretty let layout", Source: "_let x=1 _in x+2", Mode: ModePrettyPrint, Want: "_let x = 1\n_in  x + 2"},
		{
			Name:      "round trip",
			Source:    "(_let x = 5 _in x) + (_if _true _then 1 _else 2) * f (g 3)",
			Mode:      ModePrint,
			Want:      "((_let x=5 _in x)+((_if _true _then 1 _else 2)*(f) ((g) (3))))",
			RoundTrip: true,
		},
	}
}
