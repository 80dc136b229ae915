// Package ioctx carries the standard streams of a program run through a
// context.Context, so output can be captured without touching os.Stdout.
package ioctx

import (
	"context"
	"io"
	"strings"
)

type stdinKey struct{}
type stdoutKey struct{}
type stderrKey struct{}

// StdinFromContext returns the input stream, or an empty reader if none
// was set.
func StdinFromContext(ctx context.Context) io.Reader {
	r, ok := ctx.Value(stdinKey{}).(io.Reader)
	if !ok {
		return strings.NewReader("")
	}
	return r
}

func StdinToContext(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, stdinKey{}, r)
}

func StderrFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stderrKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}

func StdoutFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stdoutKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}
