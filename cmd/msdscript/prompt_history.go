package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/vito/msdscript/pkg/msd"
)

const maxHistoryEntries = 1000

// historyEntry is one expression entered at the prompt, with the mode it
// ran under.
type historyEntry struct {
	Mode   msd.Mode `toml:"mode"`
	Source string   `toml:"source"`
	Failed bool     `toml:"failed,omitempty"`
}

// historyFile is the on-disk shape: a TOML array of tables, so appending
// one [[entry]] block at a time keeps the file valid.
type historyFile struct {
	Entries []historyEntry `toml:"entry"`
}

// promptHistory records the expressions run at the prompt. Commands like
// :mode are not recorded; the mode they select is stored on each entry
// instead.
type promptHistory struct {
	entries []historyEntry
	file    string
}

func newPromptHistory(file string) *promptHistory {
	return &promptHistory{file: file}
}

// historyFilePath returns the path to the history file, respecting
// XDG_DATA_HOME (default ~/.local/share/msdscript/history.toml).
func historyFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "msdscript_history.toml")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "msdscript", "history.toml")
}

// Add records an expression, skipping an exact repeat of the previous
// entry, and persists it.
func (h *promptHistory) Add(entry historyEntry) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return
	}
	h.entries = append(h.entries, entry)
	h.appendToFile(entry)
}

// Load reads history from the file. Entries whose mode is no longer known
// are dropped.
func (h *promptHistory) Load() {
	if h.file == "" {
		return
	}
	var saved historyFile
	if _, err := toml.DecodeFile(h.file, &saved); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("ignoring unreadable prompt history", "file", h.file, "error", err)
		}
		return
	}
	for _, entry := range saved.Entries {
		mode, err := msd.ParseMode(string(entry.Mode))
		if err != nil {
			continue
		}
		entry.Mode = mode
		h.entries = append(h.entries, entry)
	}
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[len(h.entries)-maxHistoryEntries:]
		h.rewriteFile()
	}
}

func (h *promptHistory) appendToFile(entry historyEntry) {
	if h.file == "" {
		return
	}
	_ = os.MkdirAll(filepath.Dir(h.file), 0755)
	f, err := os.OpenFile(h.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_ = toml.NewEncoder(f).Encode(historyFile{Entries: []historyEntry{entry}})
}

func (h *promptHistory) rewriteFile() {
	_ = os.MkdirAll(filepath.Dir(h.file), 0755)
	f, err := os.Create(h.file)
	if err != nil {
		return
	}
	defer f.Close()
	_ = toml.NewEncoder(f).Encode(historyFile{Entries: h.entries})
}
