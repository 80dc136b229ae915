package lsp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/msdscript/pkg/msd"
	"go.lsp.dev/protocol"
)

type testServer struct {
	t           *testing.T
	cli         *jrpc2.Client
	diagnostics chan protocol.PublishDiagnosticsParams
	dir         string
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))

	ts := &testServer{
		t:           t,
		diagnostics: make(chan protocol.PublishDiagnosticsParams, 16),
		dir:         dir,
	}

	h := NewHandler()
	cch, sch := channel.Direct()
	srv := jrpc2.NewServer(h.Methods(), &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
	})
	h.SetServer(srv)
	srv.Start(sch)

	ts.cli = jrpc2.NewClient(cch, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if req.Method() != "textDocument/publishDiagnostics" {
				return
			}
			var params protocol.PublishDiagnosticsParams
			if err := req.UnmarshalParams(&params); err == nil {
				ts.diagnostics <- params
			}
		},
	})

	t.Cleanup(func() {
		ts.cli.Close()
		srv.Stop()
	})

	var result protocol.InitializeResult
	err := ts.cli.CallResult(context.Background(), "initialize", protocol.InitializeParams{
		RootURI: toURI(dir),
	}, &result)
	require.NoError(t, err)

	return ts
}

func (ts *testServer) uri(name string) protocol.DocumentURI {
	return toURI(filepath.Join(ts.dir, name))
}

func (ts *testServer) open(uri protocol.DocumentURI, text string) protocol.PublishDiagnosticsParams {
	ts.t.Helper()
	err := ts.cli.Notify(context.Background(), "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "msdscript", Version: 1, Text: text},
	})
	require.NoError(ts.t, err)
	return ts.nextDiagnostics()
}

func (ts *testServer) change(uri protocol.DocumentURI, version int32, text string) protocol.PublishDiagnosticsParams {
	ts.t.Helper()
	err := ts.cli.Notify(context.Background(), "textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
	require.NoError(ts.t, err)
	return ts.nextDiagnostics()
}

func (ts *testServer) nextDiagnostics() protocol.PublishDiagnosticsParams {
	ts.t.Helper()
	select {
	case params := <-ts.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		ts.t.Fatal("timed out waiting for diagnostics")
		return protocol.PublishDiagnosticsParams{}
	}
}

func TestInitialize(t *testing.T) {
	ts := startServer(t)

	var result protocol.InitializeResult
	err := ts.cli.CallResult(context.Background(), "initialize", protocol.InitializeParams{}, &result)
	require.NoError(t, err)
	assert.EqualValues(t, protocol.TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync)
	assert.Equal(t, true, result.Capabilities.HoverProvider)
	assert.Equal(t, true, result.Capabilities.DocumentFormattingProvider)
	assert.Equal(t, true, result.Capabilities.DefinitionProvider)
	assert.Equal(t, true, result.Capabilities.RenameProvider)
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "msdscript", result.ServerInfo.Name)
}

func TestInitializeRequiresParams(t *testing.T) {
	ts := startServer(t)

	_, err := ts.cli.Call(context.Background(), "initialize", nil)
	require.Error(t, err)

	var rpcErr *jrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, jrpc2.InvalidParams, rpcErr.Code)
}

func TestDiagnostics(t *testing.T) {
	ts := startServer(t)
	uri := ts.uri("diag.msd")

	t.Run("parse error", func(t *testing.T) {
		diags := ts.open(uri, "1 +\n  (2")
		assert.Equal(t, uri, diags.URI)
		require.Len(t, diags.Diagnostics, 1)

		d := diags.Diagnostics[0]
		assert.Equal(t, "parse error", d.Code)
		assert.Equal(t, "missing close parenthesis", d.Message)
		assert.Equal(t, protocol.DiagnosticSeverityError, d.Severity)
		assert.Equal(t, protocol.Position{Line: 1, Character: 4}, d.Range.Start)
	})

	t.Run("unbound variable", func(t *testing.T) {
		diags := ts.change(uri, 2, "_let x = 1\n_in  x + y")
		assert.Equal(t, uint32(2), diags.Version)
		require.Len(t, diags.Diagnostics, 1)

		d := diags.Diagnostics[0]
		assert.Equal(t, "unbound variable", d.Code)
		assert.Equal(t, "free variable: y", d.Message)
		assert.Equal(t, protocol.Range{
			Start: protocol.Position{Line: 1, Character: 9},
			End:   protocol.Position{Line: 1, Character: 10},
		}, d.Range)
	})

	t.Run("type error", func(t *testing.T) {
		diags := ts.change(uri, 3, "_if 1 _then 2 _else 3")
		require.Len(t, diags.Diagnostics, 1)
		assert.Equal(t, "type error", diags.Diagnostics[0].Code)
		assert.Equal(t, protocol.Position{Line: 0, Character: 4}, diags.Diagnostics[0].Range.Start)
	})

	t.Run("runaway recursion", func(t *testing.T) {
		diags := ts.change(uri, 4, "(_fun (x) x x) (_fun (x) x x)")
		require.Len(t, diags.Diagnostics, 1)
		assert.Equal(t, protocol.DiagnosticSeverityWarning, diags.Diagnostics[0].Severity)
		assert.Contains(t, diags.Diagnostics[0].Message, "call depth limit exceeded")
	})

	t.Run("fixed", func(t *testing.T) {
		diags := ts.change(uri, 5, "_let x = 1\n_in  x + 2")
		assert.Empty(t, diags.Diagnostics)
	})

	t.Run("closed", func(t *testing.T) {
		err := ts.cli.Notify(context.Background(), "textDocument/didClose", protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		})
		require.NoError(t, err)
		diags := ts.nextDiagnostics()
		assert.Empty(t, diags.Diagnostics)
	})
}

func TestDiagnosticsUseProjectBindings(t *testing.T) {
	ts := startServer(t)
	err := os.WriteFile(filepath.Join(ts.dir, msd.ConfigFileName), []byte("[bindings]\ny = 41\n"), 0644)
	require.NoError(t, err)

	diags := ts.open(ts.uri("bound.msd"), "y + 1")
	assert.Empty(t, diags.Diagnostics)

	var hover *protocol.Hover
	err = ts.cli.CallResult(context.Background(), "textDocument/hover", protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: ts.uri("bound.msd")},
			Position:     protocol.Position{Line: 0, Character: 2},
		},
	}, &hover)
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.Value, "value: `42`")
}

func TestFormatting(t *testing.T) {
	ts := startServer(t)
	uri := ts.uri("fmt.msd")
	ts.open(uri, "_let x=1 _in (x+2)*3")

	var edits []protocol.TextEdit
	err := ts.cli.CallResult(context.Background(), "textDocument/formatting", protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}, &edits)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "_let x = 1\n_in  (x + 2) * 3\n", edits[0].NewText)
	assert.Equal(t, protocol.Range{End: protocol.Position{Line: 0, Character: 20}}, edits[0].Range)

	t.Run("already formatted", func(t *testing.T) {
		ts.change(uri, 2, edits[0].NewText)

		var again []protocol.TextEdit
		err := ts.cli.CallResult(context.Background(), "textDocument/formatting", protocol.DocumentFormattingParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		}, &again)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("parse error", func(t *testing.T) {
		ts.change(uri, 3, "1 +")

		var none []protocol.TextEdit
		err := ts.cli.CallResult(context.Background(), "textDocument/formatting", protocol.DocumentFormattingParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		}, &none)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("unknown document", func(t *testing.T) {
		var none []protocol.TextEdit
		err := ts.cli.CallResult(context.Background(), "textDocument/formatting", protocol.DocumentFormattingParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: ts.uri("missing.msd")},
		}, &none)
		require.Error(t, err)
	})
}

func TestHover(t *testing.T) {
	ts := startServer(t)
	uri := ts.uri("hover.msd")
	ts.open(uri, "_let x = 2 * 3 _in x + 1")

	hoverAt := func(t *testing.T, char uint32) *protocol.Hover {
		var hover *protocol.Hover
		err := ts.cli.CallResult(context.Background(), "textDocument/hover", protocol.HoverParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: 0, Character: char},
			},
		}, &hover)
		require.NoError(t, err)
		return hover
	}

	t.Run("closed sub-expression", func(t *testing.T) {
		hover := hoverAt(t, 11)
		require.NotNil(t, hover)
		assert.Equal(t, protocol.Markdown, hover.Contents.Kind)
		assert.Contains(t, hover.Contents.Value, "(2*3)")
		assert.Contains(t, hover.Contents.Value, "value: `6`")
		assert.Equal(t, &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 9},
			End:   protocol.Position{Line: 0, Character: 14},
		}, hover.Range)
	})

	t.Run("bound variable", func(t *testing.T) {
		hover := hoverAt(t, 19)
		require.NotNil(t, hover)
		assert.Contains(t, hover.Contents.Value, "bound at")
		assert.NotContains(t, hover.Contents.Value, "value:")
	})

	t.Run("whole program", func(t *testing.T) {
		hover := hoverAt(t, 1)
		require.NotNil(t, hover)
		assert.Contains(t, hover.Contents.Value, "value: `7`")
	})

	t.Run("past the end", func(t *testing.T) {
		assert.Nil(t, hoverAt(t, 40))
	})
}

func TestDefinitionAndRename(t *testing.T) {
	ts := startServer(t)
	uri := ts.uri("names.msd")
	ts.open(uri, "_let x = 1 _in _let f = _fun (x) x + 1 _in f x")

	t.Run("definition of outer x", func(t *testing.T) {
		var loc *protocol.Location
		err := ts.cli.CallResult(context.Background(), "textDocument/definition", protocol.DefinitionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: 0, Character: 45},
			},
		}, &loc)
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, protocol.Range{
			Start: protocol.Position{Line: 0, Character: 5},
			End:   protocol.Position{Line: 0, Character: 6},
		}, loc.Range)
	})

	t.Run("definition of parameter", func(t *testing.T) {
		var loc *protocol.Location
		err := ts.cli.CallResult(context.Background(), "textDocument/definition", protocol.DefinitionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: 0, Character: 33},
			},
		}, &loc)
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, protocol.Position{Line: 0, Character: 30}, loc.Range.Start)
	})

	t.Run("rename outer x skips the shadowing parameter", func(t *testing.T) {
		var edit *protocol.WorkspaceEdit
		err := ts.cli.CallResult(context.Background(), "textDocument/rename", protocol.RenameParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: 0, Character: 5},
			},
			NewName: "outer",
		}, &edit)
		require.NoError(t, err)
		require.NotNil(t, edit)

		edits := edit.Changes[uri]
		require.Len(t, edits, 2)
		assert.Equal(t, protocol.Position{Line: 0, Character: 5}, edits[0].Range.Start)
		assert.Equal(t, protocol.Position{Line: 0, Character: 45}, edits[1].Range.Start)
		for _, e := range edits {
			assert.Equal(t, "outer", e.NewText)
		}
	})

	t.Run("rename rejects keywords", func(t *testing.T) {
		var edit *protocol.WorkspaceEdit
		err := ts.cli.CallResult(context.Background(), "textDocument/rename", protocol.RenameParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: 0, Character: 5},
			},
			NewName: "_in",
		}, &edit)
		require.Error(t, err)
	})
}

func TestShutdown(t *testing.T) {
	ts := startServer(t)
	ts.open(ts.uri("a.msd"), "1")

	_, err := ts.cli.Call(context.Background(), "shutdown", nil)
	require.NoError(t, err)

	var hover *protocol.Hover
	err = ts.cli.CallResult(context.Background(), "textDocument/hover", protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: ts.uri("a.msd")},
		},
	}, &hover)
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestErrorToDiagnostic(t *testing.T) {
	t.Run("location with end", func(t *testing.T) {
		d := errorToDiagnostic(&msd.TypeError{
			Message: "addition not supported for number and boolean",
			Location: &msd.SourceLocation{
				Line:   3,
				Column: 5,
				Length: 10,
				End:    &msd.SourcePosition{Line: 4, Column: 2},
			},
		})
		assert.Equal(t, "type error", d.Code)
		assert.Equal(t, protocol.Range{
			Start: protocol.Position{Line: 2, Character: 4},
			End:   protocol.Position{Line: 3, Character: 1},
		}, d.Range)
	})

	t.Run("location with length", func(t *testing.T) {
		d := errorToDiagnostic(&msd.ParseError{
			Message:  "not a number",
			Location: &msd.SourceLocation{Line: 1, Column: 3, Length: 1},
		})
		assert.Equal(t, protocol.Range{
			Start: protocol.Position{Line: 0, Character: 2},
			End:   protocol.Position{Line: 0, Character: 3},
		}, d.Range)
	})

	t.Run("no location", func(t *testing.T) {
		d := errorToDiagnostic(context.DeadlineExceeded)
		assert.Equal(t, protocol.DiagnosticSeverityWarning, d.Severity)
		assert.Equal(t, protocol.Range{End: protocol.Position{Character: 1}}, d.Range)
	})
}

func TestEndOfText(t *testing.T) {
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, endOfText(""))
	assert.Equal(t, protocol.Position{Line: 0, Character: 3}, endOfText("1+2"))
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, endOfText("a\nb\n"))
	assert.Equal(t, protocol.Position{Line: 1, Character: 4}, endOfText("_let\n_in "))
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "some file.msd")
	back, err := fromURI(toURI(path))
	require.NoError(t, err)
	assert.Equal(t, path, back)

	_, err = fromURI("https://example.com/x.msd")
	require.Error(t, err)
}

func TestFromURIRejectsMalformedFileURI(t *testing.T) {
	_, err := fromURI("file:relative.msd")
	require.Error(t, err)
}
