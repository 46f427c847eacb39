package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tmlog "github.com/tendermint/tendermint/libs/log"
)

// New returns a logger writing to w that drops entries below level.
func New(w io.Writer, level string) (tmlog.Logger, error) {
	option, err := tmlog.AllowLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	return tmlog.NewFilter(tmlog.NewTMLogger(tmlog.NewSyncWriter(w)), option), nil
}

// Dir returns the log directory under home.
func Dir(home string) string {
	if home == "" {
		osHome, err := os.UserHomeDir()
		if err != nil {
			osHome = os.TempDir()
		}
		home = filepath.Join(osHome, ".cidoracle")
	}
	return filepath.Join(home, "logs")
}

// NewFile creates a per-process log file under the home log directory and
// returns a logger writing to it together with the file.
func NewFile(home, level string) (tmlog.Logger, *os.File, error) {
	dir := Dir(home)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s.%d.log", filepath.Base(os.Args[0]), os.Getpid())
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger, err := New(file, level)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return logger, file, nil
}

// MustNew is New for command setup, falling back to info level on a bad level name.
func MustNew(w io.Writer, level string) tmlog.Logger {
	logger, err := New(w, level)
	if err != nil {
		logger, _ = New(w, "info")
		logger.Error("invalid log level, using info", "level", level)
	}
	return logger
}
