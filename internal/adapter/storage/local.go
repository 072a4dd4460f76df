package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// LocalStorage is the backup directory on local disk.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload copies localPath into the backup directory. The copy is written
// under a hidden name and renamed, so listings never show a partial file.
func (l *LocalStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	destPath := filepath.Join(l.basePath, remoteName)

	source, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	tmp, err := os.CreateTemp(l.basePath, "."+remoteName+".*.partial")
	if err != nil {
		return fmt.Errorf("failed to create dest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close dest: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// List returns the archive file names in the backup directory.
func (l *LocalStorage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && domain.IsArchiveName(entry.Name()) {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

// Entries describes every archive in the backup directory, newest first.
func (l *LocalStorage) Entries(ctx context.Context) ([]domain.BackupEntry, error) {
	names, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	backups := make([]domain.BackupEntry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(l.basePath, name)
		info, err := os.Stat(path)
		if err != nil {
			// removed between ReadDir and Stat
			continue
		}
		backups = append(backups, domain.BackupEntry{
			Filename:  name,
			Path:      path,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			IsAuto:    domain.IsAutoBackupName(name),
		})
	}

	SortNewestFirst(backups)
	return backups, nil
}

// SortNewestFirst orders by creation time, then by name so equal timestamps stay deterministic.
func SortNewestFirst(backups []domain.BackupEntry) {
	sort.SliceStable(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Filename > backups[j].Filename
	})
}

func (l *LocalStorage) Delete(ctx context.Context, remoteName string) error {
	filePath := filepath.Join(l.basePath, remoteName)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) GetPath(filename string) string {
	return filepath.Join(l.basePath, filename)
}

func (l *LocalStorage) BasePath() string {
	return l.basePath
}
