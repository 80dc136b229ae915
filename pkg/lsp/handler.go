package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/vito/msdscript/pkg/msd"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

const (
	// maxCallDepth bounds evaluation of documents so a runaway recursion
	// becomes a diagnostic instead of a crash.
	maxCallDepth = 10000

	defaultEvalTimeout = 2 * time.Second

	diagnosticSource = "msdscript"
)

// Handler implements the language server methods for MSDscript documents.
type Handler struct {
	mu       sync.Mutex
	files    map[protocol.DocumentURI]*File
	rootPath string
	shutdown bool

	srv *jrpc2.Server

	evalTimeout time.Duration
}

// File is an open document and what was learned from it on its last update.
type File struct {
	LanguageID  protocol.LanguageIdentifier
	Text        string
	Version     int32
	Diagnostics []protocol.Diagnostic

	// AST is nil when the text does not parse.
	AST msd.Expr

	// Env holds the bindings from the msd.toml governing the file.
	Env *msd.Env
}

// NewHandler creates a handler with no open documents.
func NewHandler() *Handler {
	return &Handler{
		files:       make(map[protocol.DocumentURI]*File),
		evalTimeout: defaultEvalTimeout,
	}
}

// SetServer gives the handler the server it pushes notifications through.
func (h *Handler) SetServer(srv *jrpc2.Server) {
	h.srv = srv
}

// Methods returns the method table to serve.
func (h *Handler) Methods() handler.Map {
	return handler.Map{
		"initialize":              h.handleInitialize,
		"initialized":             h.handleInitialized,
		"shutdown":                h.handleShutdown,
		"exit":                    h.handleExit,
		"textDocument/didOpen":    h.handleTextDocumentDidOpen,
		"textDocument/didChange":  h.handleTextDocumentDidChange,
		"textDocument/didSave":    h.handleTextDocumentDidSave,
		"textDocument/didClose":   h.handleTextDocumentDidClose,
		"textDocument/formatting": h.handleTextDocumentFormatting,
		"textDocument/hover":      h.handleTextDocumentHover,
		"textDocument/definition": h.handleTextDocumentDefinition,
		"textDocument/rename":     h.handleTextDocumentRename,
	}
}

// fromURI returns the filesystem path of a file URI.
func fromURI(u protocol.DocumentURI) (path string, err error) {
	// Filename panics on anything but a well-formed file URI
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid document URI %q: %v", u, r)
		}
	}()
	return u.Filename(), nil
}

func toURI(path string) protocol.DocumentURI {
	return uri.File(path)
}

func (h *Handler) notify(ctx context.Context, method string, params any) {
	if h.srv == nil {
		return
	}
	if err := h.srv.Notify(ctx, method, params); err != nil {
		slog.ErrorContext(ctx, "failed to send notification", "method", method, "error", err)
	}
}

func (h *Handler) logMessage(ctx context.Context, typ protocol.MessageType, message string) {
	h.notify(ctx, "window/logMessage", &protocol.LogMessageParams{
		Type:    typ,
		Message: message,
	})
}

func (h *Handler) file(uri protocol.DocumentURI) (File, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.files[uri]
	if !ok {
		return File{}, false
	}
	return *f, true
}

func (h *Handler) openFile(uri protocol.DocumentURI, languageID protocol.LanguageIdentifier, version int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[uri] = &File{
		LanguageID: languageID,
		Version:    version,
	}
}

func (h *Handler) closeFile(ctx context.Context, uri protocol.DocumentURI) {
	h.mu.Lock()
	delete(h.files, uri)
	h.mu.Unlock()

	// clear whatever the client is still showing
	h.notify(ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// updateFile replaces the text of an open document, re-analyzes it and
// publishes the resulting diagnostics.
func (h *Handler) updateFile(ctx context.Context, uri protocol.DocumentURI, text string, version *int32) error {
	h.mu.Lock()
	f, ok := h.files[uri]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("document not found: %v", uri)
	}
	f.Text = text
	if version != nil {
		f.Version = *version
	}
	h.mu.Unlock()

	env := h.envFor(ctx, uri)
	ast, diagnostics := h.analyze(ctx, uri, text, env)

	h.mu.Lock()
	f.AST = ast
	f.Env = env
	f.Diagnostics = diagnostics
	params := &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uint32(f.Version),
		Diagnostics: diagnostics,
	}
	h.mu.Unlock()

	slog.InfoContext(ctx, "file updated", "uri", uri, "diagnostics", len(diagnostics))
	h.notify(ctx, "textDocument/publishDiagnostics", params)
	return nil
}

// envFor builds the initial environment from the msd.toml nearest to the
// document, if any.
func (h *Handler) envFor(ctx context.Context, uri protocol.DocumentURI) *msd.Env {
	path, err := fromURI(uri)
	if err != nil {
		return msd.EmptyEnv
	}
	configPath, config, err := msd.FindProjectConfig(filepath.Dir(path))
	if err != nil {
		slog.WarnContext(ctx, "failed to load project config", "uri", uri, "error", err)
		h.logMessage(ctx, protocol.MessageTypeWarning, err.Error())
		return msd.EmptyEnv
	}
	env, err := config.Env()
	if err != nil {
		slog.WarnContext(ctx, "invalid bindings", "config", configPath, "error", err)
		h.logMessage(ctx, protocol.MessageTypeWarning, fmt.Sprintf("%s: %v", configPath, err))
		return msd.EmptyEnv
	}
	return env
}

// analyze parses text and, if that succeeds, evaluates it to surface
// unbound variables and type errors.
func (h *Handler) analyze(ctx context.Context, uri protocol.DocumentURI, text string, env *msd.Env) (msd.Expr, []protocol.Diagnostic) {
	ast, err := msd.ParseFile(string(uri), strings.NewReader(text))
	if err != nil {
		slog.DebugContext(ctx, "failed to parse document", "uri", uri, "error", err)
		return nil, []protocol.Diagnostic{errorToDiagnostic(err)}
	}

	evalCtx, cancel := context.WithTimeout(msd.WithCallDepthLimit(ctx, maxCallDepth), h.evalTimeout)
	defer cancel()

	if _, err := msd.Interp(evalCtx, ast, env); err != nil {
		slog.DebugContext(ctx, "evaluation failed", "uri", uri, "error", err)
		return ast, []protocol.Diagnostic{errorToDiagnostic(err)}
	}
	return ast, []protocol.Diagnostic{}
}

// errorToDiagnostic converts an MSDscript error to an LSP Diagnostic.
// Errors without a location, like an evaluation running out of time, are
// attached to the start of the document as warnings.
func errorToDiagnostic(err error) protocol.Diagnostic {
	loc := msd.ErrorLocation(err)
	if loc == nil {
		severity := protocol.DiagnosticSeverityError
		if errors.Is(err, msd.ErrCallDepthExceeded) || errors.Is(err, context.DeadlineExceeded) {
			severity = protocol.DiagnosticSeverityWarning
		}
		return protocol.Diagnostic{
			Range:    protocol.Range{End: protocol.Position{Character: 1}},
			Severity: severity,
			Source:   diagnosticSource,
			Message:  err.Error(),
		}
	}
	return protocol.Diagnostic{
		Range:    locationToRange(loc),
		Severity: protocol.DiagnosticSeverityError,
		Code:     msd.ErrorKind(err),
		Source:   diagnosticSource,
		Message:  err.Error(),
	}
}

// locationToRange converts a 1-based source span to a 0-based LSP range.
func locationToRange(loc *msd.SourceLocation) protocol.Range {
	start := position(loc.Line, loc.Column)
	if loc.End != nil {
		return protocol.Range{
			Start: start,
			End:   position(loc.End.Line, loc.End.Column),
		}
	}
	return protocol.Range{
		Start: start,
		End:   position(loc.Line, loc.Column+max(1, loc.Length)),
	}
}

func position(line, column int) protocol.Position {
	return protocol.Position{Line: uint32(line - 1), Character: uint32(column - 1)}
}
