// Package localize copies externally-referenced KiCad design assets
// (footprints, symbols, 3D models, datasheets) into a project-local
// directory tree and rewrites every reference so the project becomes
// self-contained. It builds on the sexpr package for all file mutation and
// shares one classification/deduplication protocol across asset kinds.
package localize

// Logger is the leveled notification boundary the localizers report
// through. Implementations may route to any backend; nil loggers are
// accepted everywhere and silently discard messages.
type Logger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Error(format string, args ...any)
	Success(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Error(string, ...any)   {}
func (nopLogger) Success(string, ...any) {}

// ensureLogger makes logging calls nil-safe.
func ensureLogger(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
