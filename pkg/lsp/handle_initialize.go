package lsp

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/creachadair/jrpc2"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleInitialize(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params protocol.InitializeParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	if params.RootURI != "" {
		rootPath, err := fromURI(params.RootURI)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.rootPath = filepath.Clean(rootPath)
		h.mu.Unlock()
	}

	slog.InfoContext(ctx, "initializing", "root", h.rootPath)

	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync:           protocol.TextDocumentSyncKindFull,
			HoverProvider:              true,
			DefinitionProvider:         true,
			RenameProvider:             true,
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{Name: "msdscript"},
	}, nil
}

func (h *Handler) handleInitialized(ctx context.Context, req *jrpc2.Request) (any, error) {
	return nil, nil
}
