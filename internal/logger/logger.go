package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level file names inside the log directory.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Options configures a Logger.
type Options struct {
	Directory string
	Level     string // debug, info, warning, error
	Format    string // text or json
	Stdout    io.Writer
	Stderr    io.Writer
}

// Logger provides leveled logging (debug/info/warning/error) to per-level
// files and stdout/stderr. Messages are printf-style; structured attributes
// are attached with With.
type Logger struct {
	infoLog    *slog.Logger
	warningLog *slog.Logger
	errorLog   *slog.Logger
	logDir     string
	files      []*os.File
	mu         *sync.Mutex
}

// New creates a Logger and ensures the log directory exists.
func New(opts Options) (*Logger, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if err := os.MkdirAll(opts.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: opts.Directory, mu: &sync.Mutex{}}
	level := parseLevel(opts.Level)

	open := func(name string) (*os.File, error) {
		file, err := os.OpenFile(filepath.Join(opts.Directory, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		l.files = append(l.files, file)
		return file, nil
	}

	infoFile, err := open(InfoFile)
	if err != nil {
		return nil, err
	}
	warningFile, err := open(WarningFile)
	if err != nil {
		l.Close()
		return nil, err
	}
	errorFile, err := open(ErrorFile)
	if err != nil {
		l.Close()
		return nil, err
	}

	l.infoLog = slog.New(newHandler(io.MultiWriter(opts.Stdout, infoFile), opts.Format, level))
	l.warningLog = slog.New(newHandler(io.MultiWriter(opts.Stdout, warningFile), opts.Format, level))
	l.errorLog = slog.New(newHandler(io.MultiWriter(opts.Stderr, errorFile), opts.Format, level))
	return l, nil
}

// Discard returns a Logger that writes nowhere. Used by tests and tools.
func Discard() *Logger {
	h := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Logger{infoLog: h, warningLog: h, errorLog: h, mu: &sync.Mutex{}}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger that adds args (slog key/value pairs) to every
// record. The child shares files with its parent.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		infoLog:    l.infoLog.With(args...),
		warningLog: l.warningLog.With(args...),
		errorLog:   l.errorLog.With(args...),
		logDir:     l.logDir,
		mu:         l.mu,
	}
}

// Slog exposes the info-level slog.Logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	return l.infoLog
}

// Debug writes a formatted debug-level entry to the info log.
func (l *Logger) Debug(format string, v ...any) {
	l.infoLog.Debug(fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...any) {
	l.infoLog.Info(fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...any) {
	l.warningLog.Warn(fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...any) {
	l.errorLog.Error(fmt.Sprintf(format, v...))
}

// Directory is where the level files live.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the given level file.
func (l *Logger) CleanLogs(fileName string) error {
	switch fileName {
	case InfoFile, WarningFile, ErrorFile:
	default:
		return fmt.Errorf("unknown log file %q", fileName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil {
		return fmt.Errorf("failed to clear %s: %w", fileName, err)
	}
	return nil
}

// Close closes the level files.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
