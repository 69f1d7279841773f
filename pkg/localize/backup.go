package localize

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	backupSuffix          = ".bak"
	backupTimestampFormat = "20060102_150405"
)

// BackupManager creates timestamped copies of files before they are
// modified and remembers the backups made during the session.
type BackupManager struct {
	log     Logger
	backups []string
}

// NewBackupManager builds a backup manager; log may be nil.
func NewBackupManager(log Logger) *BackupManager {
	return &BackupManager{log: ensureLogger(log)}
}

// CreateBackup copies path to <path>.bak_<timestamp> next to the original.
// A missing source file is not an error; it returns an empty path.
func (b *BackupManager) CreateBackup(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		b.log.Warning("file not found for backup: %s", path)
		return "", nil
	}

	timestamp := time.Now().Format(backupTimestampFormat)
	backupPath := fmt.Sprintf("%s%s_%s", path, backupSuffix, timestamp)

	if err := copyFile(path, backupPath); err != nil {
		b.log.Error("failed to create backup file: %v", err)
		return "", err
	}

	b.backups = append(b.backups, backupPath)
	b.log.Info("backup created: %s", backupPath)
	return backupPath, nil
}

// Backups returns the backup files created in this session.
func (b *BackupManager) Backups() []string {
	out := make([]string, len(b.backups))
	copy(out, b.backups)
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
