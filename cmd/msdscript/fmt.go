package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vito/msdscript/pkg/ioctx"
	"github.com/vito/msdscript/pkg/msd"
)

const sourceExt = ".msd"

func fmtCmd() *cobra.Command {
	var (
		write bool
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "fmt [flags] [path...]",
		Short: "Format MSDscript source files",
		Long: `Format MSDscript source files with the pretty printer.

By default, fmt prints the formatted source to stdout.
Use -w to write the result back to the source file.
Use -l to list files that would be changed.`,
		Example: `  # Format a file and print to stdout
  msdscript fmt script.msd

  # Format a file in place
  msdscript fmt -w script.msd

  # Format all .msd files in a directory
  msdscript fmt -w ./examples

  # List files that need formatting
  msdscript fmt -l ./examples`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd.Context(), args, write, list)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write result to source file instead of stdout")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List files that would be formatted")

	return cmd
}

func runFmt(ctx context.Context, paths []string, write, list bool) error {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("accessing %s: %w", path, err)
		}

		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return fmt.Errorf("reading directory %s: %w", path, err)
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), sourceExt) {
					files = append(files, filepath.Join(path, entry.Name()))
				}
			}
		} else {
			files = append(files, path)
		}
	}

	for _, file := range files {
		if err := formatFile(ctx, file, write, list); err != nil {
			return fmt.Errorf("formatting %s: %w", file, err)
		}
	}

	return nil
}

func formatFile(ctx context.Context, path string, write, list bool) error {
	stdout := ioctx.StdoutFromContext(ctx)

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	formatted, err := msd.FormatFile(filepath.Base(path), source)
	if err != nil {
		return msd.WithSource(err, filepath.Base(path), string(source))
	}

	changed := string(source) != formatted

	if list && !write {
		if changed {
			fmt.Fprintln(stdout, path)
		}
		return nil
	}

	if write {
		if changed {
			if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
				return err
			}
			if list {
				fmt.Fprintln(stdout, path)
			}
		}
		return nil
	}

	fmt.Fprint(stdout, formatted)
	return nil
}
