package lsp

import (
	"context"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/vito/msdscript/pkg/msd"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleTextDocumentFormatting(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.DocumentFormattingParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f, ok := h.file(params.TextDocument.URI)
	if !ok {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "document not found: %v", params.TextDocument.URI)
	}

	formatted, err := msd.FormatFile(string(params.TextDocument.URI), []byte(f.Text))
	if err != nil {
		// the parse error is already published as a diagnostic
		return []protocol.TextEdit{}, nil
	}

	if formatted == f.Text {
		return []protocol.TextEdit{}, nil
	}

	return []protocol.TextEdit{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   endOfText(f.Text),
			},
			NewText: formatted,
		},
	}, nil
}

// endOfText is the position just past the last character of text.
func endOfText(text string) protocol.Position {
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	return protocol.Position{Line: uint32(len(lines) - 1), Character: uint32(len([]rune(last)))}
}
