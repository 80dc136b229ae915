package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/spf13/cobra"
	"github.com/vito/msdscript/pkg/ioctx"
	"github.com/vito/msdscript/pkg/lsp"
	"github.com/vito/msdscript/pkg/msd"
)

// Config holds the application configuration
type Config struct {
	Mode       string
	Debug      bool
	NoColor    bool
	File       string
	LSP        bool
	LSPLogFile string

	// Color is resolved from --no-color, msd.toml and the terminal.
	Color bool

	project     *msd.ProjectConfig
	projectPath string
}

func main() {
	var cfg Config

	rootCmd := newRootCmd(&cfg)

	ctx := context.Background()
	ctx = ioctx.StdinToContext(ctx, os.Stdin)
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, renderError(err, cfg.Color))
		}),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "msdscript [flags] [file]",
		Short: "MSDscript interpreter",
		Long: `MSDscript is a tiny expression language with integers, booleans,
let-bindings, conditionals and first-class functions.

Without a file argument the program is read from stdin. When stdin is a
terminal, an interactive prompt evaluates one expression per line.`,
		Example: `  # Evaluate a script
  msdscript script.msd

  # Print the canonical form of an expression
  echo '1+2*3' | msdscript --mode print

  # Pretty-print a script
  msdscript --mode pretty-print script.msd

  # Start the language server
  msdscript --lsp`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(os.Stderr, cfg.Debug)
			return loadProject(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.LSP {
				return runLSP(cmd.Context(), *cfg)
			}

			mode, err := resolveMode(*cfg)
			if err != nil {
				return err
			}

			env, err := cfg.project.Env()
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.projectPath, err)
			}

			if len(args) == 1 {
				cfg.File = args[0]
				return runFile(cmd.Context(), *cfg, mode, env)
			}

			if stdin, ok := ioctx.StdinFromContext(cmd.Context()).(*os.File); ok && isTerminal(stdin.Fd()) {
				return runPrompt(cmd.Context(), *cfg, mode, env)
			}
			return runStdin(cmd.Context(), *cfg, mode, env)
		},
	}

	rootCmd.Flags().StringVarP(&cfg.Mode, "mode", "m", "", "What to do with the program: interp, print or pretty-print")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "Disable colored error output")
	rootCmd.Flags().BoolVar(&cfg.LSP, "lsp", false, "Run in Language Server Protocol mode")
	rootCmd.Flags().StringVar(&cfg.LSPLogFile, "lsp-log-file", "", "Path to LSP log file (stderr if not specified)")

	rootCmd.AddCommand(fmtCmd())
	rootCmd.AddCommand(testCmd(cfg))

	return rootCmd
}

func setupLogging(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadProject finds the msd.toml governing the working directory and
// resolves the color setting.
func loadProject(cfg *Config) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configPath, config, err := msd.FindProjectConfig(cwd)
	if err != nil {
		return err
	}
	if config != nil {
		slog.Debug("loaded project config", "path", configPath)
	}
	cfg.project = config
	cfg.projectPath = configPath

	cfg.Color = !cfg.NoColor && isTerminal(os.Stderr.Fd())
	if config != nil && config.Color != nil && !cfg.NoColor {
		cfg.Color = *config.Color
	}
	return nil
}

// resolveMode picks the --mode flag, then the project's mode, then interp.
func resolveMode(cfg Config) (msd.Mode, error) {
	switch {
	case cfg.Mode != "":
		return msd.ParseMode(cfg.Mode)
	case cfg.project != nil && cfg.project.Mode != "":
		return msd.ParseMode(cfg.project.Mode)
	default:
		return msd.ModeInterp, nil
	}
}

func runFile(ctx context.Context, cfg Config, mode msd.Mode, env *msd.Env) error {
	source, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.File, err)
	}
	return msd.Run(ctx, mode, filepath.Base(cfg.File), string(source), env, cfg.Debug)
}

func runStdin(ctx context.Context, cfg Config, mode msd.Mode, env *msd.Env) error {
	source, err := io.ReadAll(ioctx.StdinFromContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	return msd.Run(ctx, mode, "<stdin>", string(source), env, cfg.Debug)
}

// renderError formats errors for the terminal, with source context for
// errors that carry it.
func renderError(err error, color bool) string {
	var srcErr *msd.SourceError
	if errors.As(err, &srcErr) {
		return strings.TrimSuffix(srcErr.FormatWithHighlighting(color), "\n")
	}
	return err.Error()
}

func runLSP(ctx context.Context, cfg Config) error {
	var logDest io.Writer
	if cfg.LSPLogFile != "" {
		logFile, err := os.Create(cfg.LSPLogFile)
		if err != nil {
			return fmt.Errorf("open lsp log: %w", err)
		}
		defer logFile.Close() //nolint:errcheck
		logDest = logFile
	} else {
		logDest = os.Stderr
	}

	logger := setupLogging(logDest, cfg.Debug)
	logger.InfoContext(ctx, "starting LSP server")

	handler := lsp.NewHandler()
	srv := jrpc2.NewServer(handler.Methods(), &jrpc2.ServerOptions{
		AllowPush: true,
		// document updates must be analyzed in the order they were sent
		Concurrency: 1,
		Logger:      func(text string) { logger.Debug(text) },
	})

	handler.SetServer(srv)

	srv.Start(channel.LSP(stdrwc{}, stdrwc{}))

	logger.InfoContext(ctx, "LSP server closed", "error", srv.Wait())
	return nil
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
