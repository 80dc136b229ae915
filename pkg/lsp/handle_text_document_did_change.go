package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleTextDocumentDidChange(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.DidChangeTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	if len(params.ContentChanges) == 0 {
		return nil, nil
	}

	// full document sync, so the last change holds the whole text
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	return nil, h.updateFile(ctx, params.TextDocument.URI, text, &params.TextDocument.Version)
}
