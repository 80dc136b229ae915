package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleTextDocumentDefinition(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.DefinitionParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f, ok := h.file(params.TextDocument.URI)
	if !ok || f.AST == nil {
		return nil, nil
	}

	b, _ := symbolAt(f.AST, params.Position)
	if b == nil || b.NameLoc == nil {
		return nil, nil
	}

	return &protocol.Location{
		URI:   params.TextDocument.URI,
		Range: locationToRange(b.NameLoc),
	}, nil
}
