package msd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/kr/pretty"
	"github.com/vito/msdscript/pkg/ioctx"
)

// Mode selects what Run does with a parsed program.
type Mode string

const (
	// ModeInterp evaluates the program and prints its value.
	ModeInterp Mode = "interp"
	// ModePrint prints the canonical form.
	ModePrint Mode = "print"
	// ModePrettyPrint prints the pretty form.
	ModePrettyPrint Mode = "pretty-print"
)

// Modes lists every mode in the order they are documented.
var Modes = []Mode{ModeInterp, ModePrint, ModePrettyPrint}

// ParseMode accepts a mode name in any case style, with or without leading
// dashes: "pretty-print", "--pretty-print", "prettyPrint" and "PRETTY_PRINT"
// are all ModePrettyPrint.
func ParseMode(name string) (Mode, error) {
	mode := Mode(strcase.ToKebab(strings.TrimLeft(strings.TrimSpace(name), "-")))
	for _, m := range Modes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want one of %s)", name, joinModes())
}

func joinModes() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Run parses source and applies mode to it under env, writing the result
// line to the context's stdout. Errors with a source location come back as
// *SourceError.
func Run(ctx context.Context, mode Mode, filename, source string, env *Env, debug bool) error {
	e, err := ParseFile(filename, strings.NewReader(source))
	if err != nil {
		return WithSource(err, filename, source)
	}

	if debug {
		_, _ = pretty.Fprintf(ioctx.StderrFromContext(ctx), "%# v\n", e)
	}

	out := ioctx.StdoutFromContext(ctx)

	switch mode {
	case ModeInterp:
		val, err := Interp(ctx, e, env)
		if err != nil {
			return WithSource(err, filename, source)
		}
		slog.DebugContext(ctx, "evaluated", "file", filename, "value", val)
		_, err = fmt.Fprintln(out, val)
		return err
	case ModePrint:
		_, err := fmt.Fprintln(out, ToString(e))
		return err
	case ModePrettyPrint:
		_, err := fmt.Fprintln(out, ToPrettyString(e))
		return err
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}
