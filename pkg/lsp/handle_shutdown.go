package lsp

import (
	"context"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"go.lsp.dev/protocol"
)

func (h *Handler) handleShutdown(ctx context.Context, req *jrpc2.Request) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = true
	h.files = make(map[protocol.DocumentURI]*File)
	return nil, nil
}

func (h *Handler) handleExit(ctx context.Context, req *jrpc2.Request) (any, error) {
	h.mu.Lock()
	clean := h.shutdown
	h.mu.Unlock()

	slog.InfoContext(ctx, "exiting", "clean", clean)
	if h.srv != nil {
		// Stop waits for running handlers, this one included
		go h.srv.Stop()
	}
	return nil, nil
}
