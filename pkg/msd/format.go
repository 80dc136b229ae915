package msd

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// precedence is the binding strength demanded by the position an
// expression is printed in.
type precedence int

const (
	precNone precedence = iota
	precEq
	precAdd
	precMult
)

// funBodyIndent is how far a function body is indented past its _fun.
const funBodyIndent = 2

// ToString renders e in canonical form: every compound expression is
// parenthesized and no whitespace is added beyond what separates tokens.
func ToString(e Expr) string {
	var sb strings.Builder
	writeCanonical(&sb, e)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Num:
		sb.WriteString(strconv.Itoa(n.Val))
	case *Bool:
		sb.WriteString(n.String())
	case *Var:
		sb.WriteString(n.Name)
	case *Add:
		writeCanonicalBinary(sb, n.Left, "+", n.Right)
	case *Mult:
		writeCanonicalBinary(sb, n.Left, "*", n.Right)
	case *Eq:
		writeCanonicalBinary(sb, n.Left, "==", n.Right)
	case *If:
		sb.WriteString("(_if ")
		writeCanonical(sb, n.Cond)
		sb.WriteString(" _then ")
		writeCanonical(sb, n.Then)
		sb.WriteString(" _else ")
		writeCanonical(sb, n.Else)
		sb.WriteString(")")
	case *Let:
		sb.WriteString("(_let ")
		sb.WriteString(n.Name)
		sb.WriteString("=")
		writeCanonical(sb, n.Rhs)
		sb.WriteString(" _in ")
		writeCanonical(sb, n.Body)
		sb.WriteString(")")
	case *Fun:
		sb.WriteString("(_fun (")
		sb.WriteString(n.Param)
		sb.WriteString(") ")
		writeCanonical(sb, n.Body)
		sb.WriteString(")")
	case *Call:
		sb.WriteString("(")
		writeCanonical(sb, n.Fun)
		sb.WriteString(") (")
		writeCanonical(sb, n.Arg)
		sb.WriteString(")")
	case nil:
	default:
		fmt.Fprintf(sb, "<%T>", e)
	}
}

func writeCanonicalBinary(sb *strings.Builder, left Expr, op string, right Expr) {
	sb.WriteString("(")
	writeCanonical(sb, left)
	sb.WriteString(op)
	writeCanonical(sb, right)
	sb.WriteString(")")
}

// Formatter renders expressions with as few parentheses as the grammar
// allows. _let, _if and _fun span several lines, with continuation
// keywords aligned under the column their construct started at.
type Formatter struct {
	buf bytes.Buffer
}

// ToPrettyString renders e for humans. The result always parses back to a
// tree equal to e.
func ToPrettyString(e Expr) string {
	f := &Formatter{}
	lineStart := 0
	f.prettyAt(e, precNone, false, &lineStart)
	return f.buf.String()
}

// FormatFile parses source and returns its pretty rendering followed by a
// newline.
func FormatFile(filename string, source []byte) (string, error) {
	e, err := ParseFile(filename, bytes.NewReader(source))
	if err != nil {
		return "", err
	}
	return ToPrettyString(e) + "\n", nil
}

func (f *Formatter) write(s string) {
	f.buf.WriteString(s)
}

// column is the display column the next write lands on, counting from the
// start of the current output line.
func (f *Formatter) column(lineStart *int) int {
	return ansi.StringWidth(f.buf.String()[*lineStart:])
}

func (f *Formatter) newline(lineStart *int, indent int) {
	f.buf.WriteByte('\n')
	*lineStart = f.buf.Len()
	f.buf.WriteString(strings.Repeat(" ", indent))
}

// prettyAt prints e in a position that demands prec. letParent is set when
// something else follows e on the same level, so an open-ended _let, _if
// or _fun must be closed off with parentheses. lineStart is the output
// offset of the current line and is advanced past every newline written.
func (f *Formatter) prettyAt(e Expr, prec precedence, letParent bool, lineStart *int) {
	switch n := e.(type) {
	case *Num:
		f.write(strconv.Itoa(n.Val))
	case *Bool:
		f.write(n.String())
	case *Var:
		f.write(n.Name)
	case *Add:
		f.prettyBinary(n.Left, " + ", n.Right, precAdd, precEq, prec, letParent, lineStart)
	case *Mult:
		f.prettyBinary(n.Left, " * ", n.Right, precMult, precAdd, prec, letParent, lineStart)
	case *Eq:
		f.prettyBinary(n.Left, " == ", n.Right, precEq, precNone, prec, letParent, lineStart)
	case *Let:
		f.openEnded(letParent, lineStart, func(indent int) {
			f.write("_let " + n.Name + " = ")
			f.prettyAt(n.Rhs, precNone, false, lineStart)
			f.newline(lineStart, indent)
			f.write("_in  ")
			f.prettyAt(n.Body, precNone, false, lineStart)
		})
	case *If:
		f.openEnded(letParent, lineStart, func(indent int) {
			f.write("_if ")
			f.prettyAt(n.Cond, precNone, false, lineStart)
			f.newline(lineStart, indent)
			f.write("_then ")
			f.prettyAt(n.Then, precNone, false, lineStart)
			f.newline(lineStart, indent)
			f.write("_else ")
			f.prettyAt(n.Else, precNone, false, lineStart)
		})
	case *Fun:
		f.openEnded(letParent, lineStart, func(indent int) {
			f.write("_fun (" + n.Param + ")")
			f.newline(lineStart, indent+funBodyIndent)
			f.prettyAt(n.Body, precNone, false, lineStart)
		})
	case *Call:
		f.prettyOperand(n.Fun, isAtom(n.Fun) || isCall(n.Fun), lineStart)
		f.write(" ")
		f.prettyOperand(n.Arg, isAtom(n.Arg), lineStart)
	case nil:
	default:
		f.write(fmt.Sprintf("<%T>", e))
	}
}

// prettyBinary prints an operator node whose own level is own. The left
// operand is followed by the operator, so it is printed at the operator's
// own level with letParent set. The right operand is printed one level
// looser and only needs parentheses for an open-ended construct if this
// node is itself followed by something.
func (f *Formatter) prettyBinary(left Expr, op string, right Expr, own, rightPrec, prec precedence, letParent bool, lineStart *int) {
	parens := prec >= own
	if parens {
		f.write("(")
	}
	f.prettyAt(left, own, true, lineStart)
	f.write(op)
	f.prettyAt(right, rightPrec, letParent && !parens, lineStart)
	if parens {
		f.write(")")
	}
}

// openEnded prints a construct whose last sub-expression extends as far
// right as possible. body receives the column the keyword starts at.
func (f *Formatter) openEnded(letParent bool, lineStart *int, body func(indent int)) {
	if letParent {
		f.write("(")
	}
	body(f.column(lineStart))
	if letParent {
		f.write(")")
	}
}

// prettyOperand prints one side of an application, parenthesizing it unless
// bare is set.
func (f *Formatter) prettyOperand(e Expr, bare bool, lineStart *int) {
	if bare {
		f.prettyAt(e, precMult, true, lineStart)
		return
	}
	f.write("(")
	f.prettyAt(e, precNone, false, lineStart)
	f.write(")")
}

func isAtom(e Expr) bool {
	switch e.(type) {
	case *Num, *Bool, *Var:
		return true
	default:
		return false
	}
}

func isCall(e Expr) bool {
	_, ok := e.(*Call)
	return ok
}
