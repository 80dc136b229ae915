package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleTextDocumentDidClose(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.DidCloseTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	h.closeFile(ctx, params.TextDocument.URI)
	return nil, nil
}
