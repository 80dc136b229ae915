package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"go.lsp.dev/protocol"
)

// handleTextDocumentDidSave re-analyzes the document, since a save may have
// been preceded by an edit to the msd.toml next to it.
func (h *Handler) handleTextDocumentDidSave(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.DidSaveTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f, ok := h.file(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	text := f.Text
	if params.Text != "" {
		text = params.Text
	}
	return nil, h.updateFile(ctx, params.TextDocument.URI, text, nil)
}
