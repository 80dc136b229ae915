package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/vito/msdscript/pkg/ioctx"
	"github.com/vito/msdscript/pkg/msd"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func testCmd(cfg *Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the built-in self-checks",
		Long: `Run the interpreter's built-in checks: parsing and printing precedence,
evaluation, error kinds and round-tripping through both printers.

Exits non-zero if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), msd.DefaultChecks(), verbose, cfg.Color)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List passing checks too")

	return cmd
}

func runTests(ctx context.Context, checks []msd.Check, verbose, color bool) error {
	results, err := msd.RunChecks(ctx, checks)
	if err != nil {
		return err
	}

	failed := writeReport(ioctx.StdoutFromContext(ctx), results, verbose, color)
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

// writeReport prints one line per failing check, and per passing check
// when verbose, followed by a summary. It returns the number of failures.
func writeReport(w io.Writer, results []msd.CheckResult, verbose, color bool) int {
	render := func(style lipgloss.Style, s string) string {
		if !color {
			return s
		}
		return style.Render(s)
	}

	var failed int
	for _, res := range results {
		if res.Pass {
			if verbose {
				fmt.Fprintf(w, "%s %s\n", render(passStyle, "PASS"), res.Check.Name)
			}
			continue
		}
		failed++
		fmt.Fprintf(w, "%s %s\n", render(failStyle, "FAIL"), res.Check.Name)
		fmt.Fprintf(w, "     %s\n", render(dimStyle, strings.ReplaceAll(res.Check.Source, "\n", " ")))
		for line := range strings.SplitSeq(res.Failure(), "\n") {
			fmt.Fprintf(w, "     %s\n", line)
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed", len(results)-failed, failed)
	if failed > 0 {
		fmt.Fprintln(w, render(failStyle, summary))
	} else {
		fmt.Fprintln(w, render(passStyle, summary))
	}
	return failed
}
