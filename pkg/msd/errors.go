package msd

import (
	"errors"
	"fmt"
	"strings"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	Filename string
	Line     int
	Column   int
	Length   int             // Length of the syntax node that caused the error
	End      *SourcePosition // End position of the node, when known
}

// SourcePosition represents a position in source code
type SourcePosition struct {
	Line   int
	Column int
}

// Contains reports whether the 1-based line/column falls within the span.
func (loc *SourceLocation) Contains(line, col int) bool {
	if loc == nil || loc.End == nil {
		return false
	}
	if line < loc.Line || line > loc.End.Line {
		return false
	}
	if line == loc.Line && col < loc.Column {
		return false
	}
	if line == loc.End.Line && col >= loc.End.Column {
		return false
	}
	return true
}

func (loc *SourceLocation) String() string {
	if loc == nil {
		return "<unknown>"
	}
	if loc.Filename == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.Filename, loc.Line, loc.Column)
}

// SourceLocatable is anything that knows where it came from.
type SourceLocatable interface {
	GetSourceLocation() *SourceLocation
}

// ParseError is raised for malformed syntax. Parsing never recovers: the
// first ParseError aborts the whole parse.
type ParseError struct {
	Message  string
	Location *SourceLocation
}

func (e *ParseError) Error() string {
	return e.Message
}

// UnboundVariableError is raised when a variable lookup reaches the empty
// environment.
type UnboundVariableError struct {
	Name     string
	Location *SourceLocation
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("free variable: %s", e.Name)
}

// TypeError is raised for arithmetic on non-numbers, calls to non-functions
// and non-boolean conditions.
type TypeError struct {
	Message  string
	Location *SourceLocation
}

func (e *TypeError) Error() string {
	return e.Message
}

// ErrorKind names the kind of an error returned by Parse or Interp.
func ErrorKind(err error) string {
	var (
		parseErr   *ParseError
		unboundErr *UnboundVariableError
		typeErr    *TypeError
	)
	switch {
	case errors.As(err, &parseErr):
		return "parse error"
	case errors.As(err, &unboundErr):
		return "unbound variable"
	case errors.As(err, &typeErr):
		return "type error"
	default:
		return "error"
	}
}

// ErrorLocation returns the location carried by a parse, unbound variable
// or type error, or nil.
func ErrorLocation(err error) *SourceLocation {
	var (
		parseErr   *ParseError
		unboundErr *UnboundVariableError
		typeErr    *TypeError
	)
	switch {
	case errors.As(err, &parseErr):
		return parseErr.Location
	case errors.As(err, &unboundErr):
		return unboundErr.Location
	case errors.As(err, &typeErr):
		return typeErr.Location
	default:
		return nil
	}
}

// SourceError represents an error with source location information
type SourceError struct {
	Inner    error
	Location *SourceLocation
	Source   string // The source code of the file
}

// NewSourceError creates a new SourceError
func NewSourceError(inner error, location *SourceLocation, source string) *SourceError {
	return &SourceError{
		Inner:    inner,
		Location: location,
		Source:   source,
	}
}

// WithSource attaches source text to a located error so it can be rendered
// with context. Errors without a location, and errors that already carry
// source, are returned as-is.
func WithSource(err error, filename, source string) error {
	if err == nil {
		return nil
	}
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return err
	}
	loc := ErrorLocation(err)
	if loc == nil {
		return err
	}
	cp := *loc
	cp.Filename = filename
	return NewSourceError(err, &cp, source)
}

func (e *SourceError) Unwrap() error {
	return e.Inner
}

func (e *SourceError) Error() string {
	if e.Location == nil {
		return e.Inner.Error()
	}
	return fmt.Sprintf("%s: %s: %s", e.Location, ErrorKind(e.Inner), e.Inner)
}

// FormatWithHighlighting returns the error with surrounding source lines and
// a caret underline. Color escapes are only emitted when color is true.
func (e *SourceError) FormatWithHighlighting(color bool) string {
	if e.Location == nil || e.Source == "" {
		return e.Error()
	}

	lines := strings.Split(e.Source, "\n")
	if e.Location.Line < 1 || e.Location.Line > len(lines) {
		return e.Error()
	}

	// Colors for terminal output
	var (
		red   = "\033[31m"
		blue  = "\033[34m"
		bold  = "\033[1m"
		reset = "\033[0m"
		dim   = "\033[2m"
	)
	if !color {
		red, blue, bold, reset, dim = "", "", "", "", ""
	}

	var result strings.Builder

	// Error header
	result.WriteString(fmt.Sprintf("%s%s%s:%s %s\n", bold, red, capitalize(ErrorKind(e.Inner)), reset, e.Inner))
	result.WriteString(fmt.Sprintf("  %s%s--> %s%s\n", dim, blue, e.Location, reset))

	// Top separator pipe (aligned with line numbers)
	result.WriteString(fmt.Sprintf(" %s%s |%s\n", dim, padLeft("", 3), reset))

	startLine := max(1, e.Location.Line-2)
	endLine := min(len(lines), e.Location.Line+2)

	for i := startLine; i <= endLine; i++ {
		paddedLineStr := padLeft(fmt.Sprintf("%d", i), 3)
		if i == e.Location.Line {
			result.WriteString(fmt.Sprintf(" %s%s%s%s | %s%s\n",
				dim, blue, bold, paddedLineStr, reset, lines[i-1]))

			// 1 space + 3 for line number + " | " (3 chars) + column position - 1
			padding := strings.Repeat(" ", 1+3+3+e.Location.Column-1)
			underline := strings.Repeat("^", max(1, e.Location.Length))
			result.WriteString(fmt.Sprintf("%s%s%s%s%s\n",
				dim, padding, red, underline, reset))
		} else {
			result.WriteString(fmt.Sprintf(" %s%s | %s%s\n",
				dim, paddedLineStr, lines[i-1], reset))
		}
	}

	// Bottom separator pipe (aligned with line numbers)
	result.WriteString(fmt.Sprintf(" %s%s |%s\n", dim, padLeft("", 3), reset))

	return result.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
