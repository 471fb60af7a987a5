// Package report writes the run-scoped audit trail: colorized operator
// output on the console plus a plain-text report file, one file per
// run. The report is for humans; nothing in this tool reads it back.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelInfo Level = iota
	LevelAction
	LevelWarn
	LevelError
)

var (
	infoColor   = color.New(color.FgGreen)
	actionColor = color.New(color.FgCyan, color.Bold)
	warnColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
)

// Reporter is constructed per run and handed to the engine; tests
// point it at a discard writer and a temp dir.
type Reporter struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
	path    string
}

// New opens a timestamp-named report file under dir. An empty dir
// disables the file and keeps console output only.
func New(console io.Writer, dir string) (*Reporter, error) {
	r := &Reporter{console: console}
	if dir == "" {
		return r, nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("report-%s.log", time.Now().Format("2006-01-02-150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	r.file = f
	r.path = f.Name()
	return r, nil
}

// Path returns the report file location, empty when file output is
// disabled.
func (r *Reporter) Path() string { return r.path }

func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reporter) Info(format string, args ...interface{}) {
	r.log(LevelInfo, format, args...)
}

// Action records a mutation of the identity source or the ledger.
func (r *Reporter) Action(format string, args ...interface{}) {
	r.log(LevelAction, format, args...)
}

func (r *Reporter) Warn(format string, args ...interface{}) {
	r.log(LevelWarn, format, args...)
}

func (r *Reporter) Error(format string, args ...interface{}) {
	r.log(LevelError, format, args...)
}

func (r *Reporter) log(lvl Level, format string, args ...interface{}) {
	now := time.Now().Format("2006/01/02 15:04:05")
	msg := fmt.Sprintf(format, args...)

	var label string
	var c *color.Color
	switch lvl {
	case LevelAction:
		label, c = "[ACTN]", actionColor
	case LevelWarn:
		label, c = "[WARN]", warnColor
	case LevelError:
		label, c = "[EROR]", errorColor
	default:
		label, c = "[INFO]", infoColor
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		fmt.Fprintf(r.file, "%s %s %s\n", now, label, msg)
	}
	if r.console != nil {
		fmt.Fprintf(r.console, "%s %s %s\n", now, c.Sprint(label), msg)
	}
}
