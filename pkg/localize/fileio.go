package localize

import (
	"errors"
	"fmt"
	"os"
)

// MaxFileSize caps how much file content is read into memory at once.
// KiCad source files are far smaller in practice; anything larger is
// almost certainly not a file this tool should touch.
const MaxFileSize = 50 * 1024 * 1024

// ErrResourceLimit is returned when a file exceeds the read size cap.
var ErrResourceLimit = errors.New("file exceeds maximum size")

// ReadTextFile reads a UTF-8 text file, enforcing MaxFileSize.
func ReadTextFile(path string) (string, error) {
	return ReadTextFileLimit(path, MaxFileSize)
}

// ReadTextFileLimit reads a text file with an explicit size cap.
func ReadTextFileLimit(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxSize {
		return "", fmt.Errorf("%s is %d bytes (max %d): %w", path, info.Size(), maxSize, ErrResourceLimit)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteTextFile persists text content, creating or truncating the file.
func WriteTextFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FileWriter persists rewritten file content, backing up the previous
// version first and degrading to diff previews in dry-run mode. All
// localizers write through it so backup and dry-run behavior stays
// uniform.
type FileWriter struct {
	DryRun        bool
	CreateBackups bool
	Backups       *BackupManager
	Log           Logger
}

// NewFileWriter builds a writer; log may be nil.
func NewFileWriter(dryRun, createBackups bool, log Logger) *FileWriter {
	log = ensureLogger(log)
	return &FileWriter{
		DryRun:        dryRun,
		CreateBackups: createBackups,
		Backups:       NewBackupManager(log),
		Log:           log,
	}
}

// Write replaces the content of path. Unchanged content is a no-op. In
// dry-run mode the unified diff is logged instead of writing.
func (w *FileWriter) Write(path, oldContent, newContent string) error {
	if newContent == oldContent {
		return nil
	}
	if w.DryRun {
		w.Log.Info("would update %s:\n%s", path, UnifiedDiff(path, oldContent, newContent))
		return nil
	}
	if w.CreateBackups {
		if _, err := w.Backups.CreateBackup(path); err != nil {
			return err
		}
	}
	return WriteTextFile(path, newContent)
}
