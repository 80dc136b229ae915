package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/vito/msdscript/pkg/msd"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleTextDocumentHover(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.HoverParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f, ok := h.file(params.TextDocument.URI)
	if !ok || f.AST == nil {
		return nil, nil
	}

	path := pathAt(f.AST, params.Position)
	if len(path) == 0 {
		return nil, nil
	}
	node := path[len(path)-1]

	slog.DebugContext(ctx, "hover request", "uri", params.TextDocument.URI, "position", params.Position, "node", fmt.Sprintf("%T", node))

	var doc strings.Builder
	fmt.Fprintf(&doc, "```msdscript\n%s\n```\n", node)

	if v, ok := node.(*msd.Var); ok {
		if b := resolve(path); b != nil {
			fmt.Fprintf(&doc, "\nbound at %s\n", b.NameLoc)
		} else if _, err := f.Env.Lookup(v.Name); err == nil {
			doc.WriteString("\nbound by project configuration\n")
		} else {
			doc.WriteString("\nfree variable\n")
		}
	}

	// only expressions closed under the project bindings have a value on
	// their own
	if isClosed(node, f.Env) {
		evalCtx, cancel := context.WithTimeout(msd.WithCallDepthLimit(ctx, maxCallDepth), h.evalTimeout)
		defer cancel()
		if val, err := msd.Interp(evalCtx, node, f.Env); err == nil {
			fmt.Fprintf(&doc, "\nvalue: `%s`\n", val)
		} else {
			fmt.Fprintf(&doc, "\n%s: %s\n", msd.ErrorKind(err), err)
		}
	}

	rng := locationToRange(node.GetSourceLocation())
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: doc.String(),
		},
		Range: &rng,
	}, nil
}

// isClosed reports whether every free variable of e is bound in env.
func isClosed(e msd.Expr, env *msd.Env) bool {
	for _, name := range msd.FreeVars(e) {
		if _, err := env.Lookup(name); err != nil {
			return false
		}
	}
	return true
}
