package lsp

import (
	"context"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"github.com/vito/msdscript/pkg/msd"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleTextDocumentRename(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.RenameParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	if !isName(params.NewName) {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "%q is not a valid variable name", params.NewName)
	}

	f, ok := h.file(params.TextDocument.URI)
	if !ok || f.AST == nil {
		return nil, nil
	}

	b, _ := symbolAt(f.AST, params.Position)
	if b == nil || b.NameLoc == nil {
		return nil, nil
	}

	edits := []protocol.TextEdit{{Range: locationToRange(b.NameLoc), NewText: params.NewName}}
	for _, ref := range references(b) {
		edits = append(edits, protocol.TextEdit{Range: locationToRange(ref.Loc), NewText: params.NewName})
	}

	slog.InfoContext(ctx, "rename", "uri", params.TextDocument.URI, "from", b.Name, "to", params.NewName, "edits", len(edits))

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{
			params.TextDocument.URI: edits,
		},
	}, nil
}

// isName reports whether s parses as nothing but a variable reference.
func isName(s string) bool {
	e, err := msd.ParseStr(s)
	if err != nil {
		return false
	}
	v, ok := e.(*msd.Var)
	return ok && v.Name == s
}
