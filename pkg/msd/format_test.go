package msd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type FormatSuite struct{}

func TestFormat(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(FormatSuite{})
}

func (FormatSuite) TestMinimalParens(ctx context.Context, t *testctx.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"sum on the left of a product", "(1+2)*3", "(1 + 2) * 3"},
		{"sum on the right of a product", "1*(2+3)", "1 * (2 + 3)"},
		{"product inside a sum", "1+2*3", "1 + 2 * 3"},
		{"right-grouped sums", "1+(2+3)", "1 + 2 + 3"},
		{"left-grouped sums", "(1+2)+3", "(1 + 2) + 3"},
		{"left-grouped products", "(1*2)*3", "(1 * 2) * 3"},
		{"equality inside a sum", "1 + (2 == 3)", "1 + (2 == 3)"},
		{"sum inside equality", "(1 + 2) == 3", "1 + 2 == 3"},
		{"left-grouped equality", "(1 == 2) == 3", "(1 == 2) == 3"},
		{"negative literal", "-1 * -2", "-1 * -2"},
		{"call chain", "f 1 2", "f 1 2"},
		{"call of a call result", "f (g 1)", "f (g 1)"},
		{"call of a sum", "f (1 + 2)", "f (1 + 2)"},
		{"call in a sum", "f 1 + g 2", "f 1 + g 2"},
		{"call of a literal function", "(_fun (x) x) 1", "(_fun (x)\n   x) 1"},
		{"let on the right needs no parens", "1 + _let x = 2 _in x", "1 + _let x = 2\n    _in  x"},
		{"let on the left is closed off", "(_let x = 2 _in x) + 1", "(_let x = 2\n _in  x) + 1"},
		{
			"let inside a parenthesized operand",
			"(1 + (_let x = 2 _in x)) * 3",
			"(1 + _let x = 2\n     _in  x) * 3",
		},
		{
			"let at the end of a left operand",
			"(1 + _let x = 2 _in x) + 3",
			"(1 + _let x = 2\n     _in  x) + 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(ctx context.Context, t *testctx.T) {
			e, err := ParseStr(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, ToPrettyString(e))

			back, err := ParseStr(ToPrettyString(e))
			require.NoError(t, err)
			require.True(t, Equal(e, back), "reparsed to %s", back)
		})
	}
}

func (FormatSuite) TestGolden(ctx context.Context, t *testctx.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"nested_let", "_let x = _let y = 2 _in y * 3 _in _let z = x + 1 _in z * x"},
		{"if_layout", "_if x == 0 _then _let y = 1 _in y _else f (x + -1)"},
		{"mixed_precedence", "(1 + 2) * 3 + 4 * (5 + 6) == (7 == 8)"},
		{"closed_off_let", "(_let x = 1 _in x) + 2 * (_if _true _then 3 _else 4)"},
		{"fun_layout", "_let f = _fun (x) x * x _in f 3 + f (f 2)"},
		{"fun_callee", "(_fun (x) x) ((_fun (y) y) 5)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(ctx context.Context, t *testctx.T) {
			result, err := FormatFile(tt.name+".msd", []byte(tt.input))
			require.NoError(t, err)
			golden.Assert(t, result, tt.name+".golden")
		})
	}
}

func (FormatSuite) TestFormatFileIsStable(ctx context.Context, t *testctx.T) {
	source := "_let f = _fun (x) _if x == 0 _then 1 _else x * 2 _in f 3 + f (f 2)"

	once, err := FormatFile("stable.msd", []byte(source))
	require.NoError(t, err)

	twice, err := FormatFile("stable.msd", []byte(once))
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func (FormatSuite) TestFormatFileParseError(ctx context.Context, t *testctx.T) {
	_, err := FormatFile("broken.msd", []byte("1 +"))
	require.Error(t, err)
	require.Equal(t, "parse error", ErrorKind(err))
}

func (FormatSuite) TestCanonicalRoundTrip(ctx context.Context, t *testctx.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 500 {
		e := randomExpr(rng, 5)
		t.Run(fmt.Sprintf("tree %d", i), func(ctx context.Context, t *testctx.T) {
			back, err := ParseStr(ToString(e))
			require.NoError(t, err, "canonical: %s", ToString(e))
			require.True(t, Equal(e, back), "canonical: %s\nreparsed: %s", ToString(e), back)
		})
	}
}

func (FormatSuite) TestPrettyRoundTrip(ctx context.Context, t *testctx.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := range 500 {
		e := randomExpr(rng, 5)
		t.Run(fmt.Sprintf("tree %d", i), func(ctx context.Context, t *testctx.T) {
			pretty := ToPrettyString(e)
			back, err := ParseStr(pretty)
			require.NoError(t, err, "pretty:\n%s", pretty)
			require.True(t, Equal(e, back), "pretty:\n%s\ncanonical: %s\nreparsed:  %s", pretty, e, back)
		})
	}
}

var randomNames = []string{"x", "y", "f", "acc"}

func randomExpr(rng *rand.Rand, depth int) Expr {
	if depth == 0 || rng.IntN(4) == 0 {
		switch rng.IntN(3) {
		case 0:
			return &Num{Val: rng.IntN(200) - 100}
		case 1:
			return &Bool{Val: rng.IntN(2) == 0}
		default:
			return &Var{Name: randomNames[rng.IntN(len(randomNames))]}
		}
	}

	sub := func() Expr { return randomExpr(rng, depth-1) }
	name := func() string { return randomNames[rng.IntN(len(randomNames))] }

	switch rng.IntN(7) {
	case 0:
		return &Add{Left: sub(), Right: sub()}
	case 1:
		return &Mult{Left: sub(), Right: sub()}
	case 2:
		return &Eq{Left: sub(), Right: sub()}
	case 3:
		return &If{Cond: sub(), Then: sub(), Else: sub()}
	case 4:
		return &Let{Name: name(), Rhs: sub(), Body: sub()}
	case 5:
		return &Fun{Param: name(), Body: sub()}
	default:
		return &Call{Fun: sub(), Arg: sub()}
	}
}
