package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/pdfindex/pkg/types"
)

// LogTimeFormat is the timestamp layout of build log lines
const LogTimeFormat = "2006-01-02 15:04:05"

// Outcome of a build run
type Outcome string

const (
	OutcomeUpToDate Outcome = "up-to-date"
	OutcomeRebuilt  Outcome = "rebuilt"
	OutcomeFailed   Outcome = "failed"
)

// BuildLogEntry summarizes one run for the build log
type BuildLogEntry struct {
	Time        time.Time
	Outcome     Outcome
	Mode        string
	Added       int
	Modified    int
	Removed     int
	Unchanged   int
	Processed   int
	Failed      int
	Chunks      int
	FailedFiles []string
	Error       string
}

// Level returns the log level printed for the entry
func (e BuildLogEntry) Level() string {
	switch {
	case e.Outcome == OutcomeFailed:
		return "ERROR"
	case e.Failed > 0:
		return "WARNING"
	default:
		return "INFO"
	}
}

// Summary renders the entry as a single line of text
func (e BuildLogEntry) Summary() string {
	var b strings.Builder

	switch e.Outcome {
	case OutcomeUpToDate:
		fmt.Fprintf(&b, "No new or updated files detected; vector store is up to date (%d files)", e.Unchanged)
	case OutcomeRebuilt:
		fmt.Fprintf(&b, "Vector store updated: mode=%s added=%d modified=%d removed=%d unchanged=%d processed=%d failed=%d chunks=%d",
			e.Mode, e.Added, e.Modified, e.Removed, e.Unchanged, e.Processed, e.Failed, e.Chunks)
	default:
		fmt.Fprintf(&b, "Build failed: mode=%s added=%d modified=%d removed=%d processed=%d",
			e.Mode, e.Added, e.Modified, e.Removed, e.Processed)
	}

	if len(e.FailedFiles) > 0 {
		fmt.Fprintf(&b, " failed_files=[%s]", strings.Join(e.FailedFiles, ", "))
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}

	return b.String()
}

// Line renders the entry as it appears in the build log, without newline
func (e BuildLogEntry) Line() string {
	return fmt.Sprintf("%s - %s - %s", e.Time.Format(LogTimeFormat), e.Level(), e.Summary())
}

// Log is the append-only, human-readable build history file
type Log struct {
	path string
}

// NewLog returns a Log writing to path
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path
func (l *Log) Path() string {
	return l.path
}

// Append writes one line for entry. Time defaults to now.
func (l *Log) Append(entry BuildLogEntry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create log directory: %v", types.ErrPersistence, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open build log: %v", types.ErrPersistence, err)
	}

	if _, err := f.WriteString(entry.Line() + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write build log: %v", types.ErrPersistence, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close build log: %v", types.ErrPersistence, err)
	}
	return nil
}
