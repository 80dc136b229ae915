package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/vito/msdscript/pkg/ioctx"
	"github.com/vito/msdscript/pkg/msd"
)

const promptText = "msd> "

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type promptCommand struct {
	name string
	desc string
}

var promptCommands = []promptCommand{
	{"help", "Show this help"},
	{"mode", "Show or set the mode (interp, print, pretty-print)"},
	{"history", "List previous expressions with the mode each ran under"},
	{"rerun", "Run expression N from :history again in its recorded mode"},
	{"quit", "Leave the prompt"},
}

// prompt evaluates one expression per input line.
type prompt struct {
	mode    msd.Mode
	env     *msd.Env
	debug   bool
	color   bool
	history *promptHistory
}

func runPrompt(ctx context.Context, cfg Config, mode msd.Mode, env *msd.Env) error {
	history := newPromptHistory(historyFilePath())
	history.Load()

	p := &prompt{
		mode:    mode,
		env:     env,
		debug:   cfg.Debug,
		color:   cfg.Color,
		history: history,
	}
	return p.loop(ctx, ioctx.StdinFromContext(ctx))
}

func (p *prompt) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *prompt) loop(ctx context.Context, in io.Reader) error {
	stdout := ioctx.StdoutFromContext(ctx)
	stderr := ioctx.StderrFromContext(ctx)

	fmt.Fprintln(stdout, p.render(dimStyle, fmt.Sprintf("MSDscript (%s). Type :help for commands, Ctrl+D to exit.", p.mode)))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(stdout, p.render(promptStyle, promptText))
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if cmd, ok := strings.CutPrefix(line, ":"); ok {
			if quit := p.handleCommand(ctx, stdout, stderr, cmd); quit {
				return nil
			}
			continue
		}

		p.run(ctx, stderr, p.mode, line)
	}
}

// run runs one expression and records it in history.
func (p *prompt) run(ctx context.Context, stderr io.Writer, mode msd.Mode, src string) {
	err := msd.Run(ctx, mode, "<prompt>", src, p.env, p.debug)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err, p.color))
	}
	p.history.Add(historyEntry{Mode: mode, Source: src, Failed: err != nil})
}

// handleCommand runs a :command and reports whether the prompt should exit.
func (p *prompt) handleCommand(ctx context.Context, stdout, stderr io.Writer, cmdLine string) bool {
	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		fmt.Fprintln(stderr, p.render(errorStyle, "empty command"))
		return false
	}

	cmd, args := parts[0], parts[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(stdout, "Available commands:")
		maxName := 0
		for _, c := range promptCommands {
			maxName = max(maxName, len(c.name))
		}
		for _, c := range promptCommands {
			fmt.Fprintln(stdout, p.render(dimStyle, fmt.Sprintf("  :%-*s - %s", maxName, c.name, c.desc)))
		}
		fmt.Fprintln(stdout, p.render(dimStyle, "Type an MSDscript expression to run it in the current mode."))

	case "mode":
		if len(args) == 0 {
			fmt.Fprintln(stdout, p.mode)
			break
		}
		mode, err := msd.ParseMode(args[0])
		if err != nil {
			fmt.Fprintln(stderr, p.render(errorStyle, err.Error()))
			break
		}
		p.mode = mode
		fmt.Fprintf(stdout, "mode set to %s\n", mode)

	case "history":
		for i, entry := range p.history.entries {
			line := fmt.Sprintf("%4d  %s %s", i+1, p.render(dimStyle, "["+string(entry.Mode)+"]"), entry.Source)
			if entry.Failed {
				line += p.render(errorStyle, " (failed)")
			}
			fmt.Fprintln(stdout, line)
		}

	case "rerun":
		if len(args) != 1 {
			fmt.Fprintln(stderr, p.render(errorStyle, "usage: :rerun N"))
			break
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(p.history.entries) {
			fmt.Fprintln(stderr, p.render(errorStyle, fmt.Sprintf("no history entry %s", args[0])))
			break
		}
		entry := p.history.entries[n-1]
		p.run(ctx, stderr, entry.Mode, entry.Source)

	case "quit", "exit":
		return true

	default:
		fmt.Fprintln(stderr, p.render(errorStyle, fmt.Sprintf("unknown command :%s (try :help)", cmd)))
	}
	return false
}
