package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// FileDatabase is a single-file relational database (SQLite) on local disk.
//
// Snapshots are plain byte copies taken without locking the source, so a
// copy taken while another process is writing may be inconsistent.
type FileDatabase struct {
	name string
	path string
}

func NewFile(name, path string) *FileDatabase {
	return &FileDatabase{name: name, path: path}
}

func (f *FileDatabase) Snapshot(ctx context.Context, outputPath string) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	source, err := os.Open(f.path)
	if err != nil {
		return domain.Snapshot{}, domain.NewError(domain.KindSourceUnavailable, "failed to open database", err).WithPath(f.path)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return domain.Snapshot{}, domain.NewError(domain.KindSourceUnavailable, "failed to stat database", err).WithPath(f.path)
	}
	if !info.Mode().IsRegular() {
		return domain.Snapshot{}, domain.NewError(domain.KindSourceUnavailable, "database is not a regular file", nil).WithPath(f.path)
	}

	dest, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to create snapshot file: %w", err)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(dest, hasher), source)
	if err != nil {
		dest.Close()
		return domain.Snapshot{}, domain.NewError(domain.KindSourceUnavailable, "failed to copy database", err).WithPath(f.path)
	}
	if err := dest.Close(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to close snapshot file: %w", err)
	}

	return domain.Snapshot{
		Path:   outputPath,
		Size:   written,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (f *FileDatabase) GetName() string {
	return f.name
}

func (f *FileDatabase) GetPath() string {
	return f.path
}

func (f *FileDatabase) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := os.Open(f.path)
	if err != nil {
		return domain.NewError(domain.KindSourceUnavailable, "database is not readable", err).WithPath(f.path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return domain.NewError(domain.KindSourceUnavailable, "failed to stat database", err).WithPath(f.path)
	}
	if info.IsDir() {
		return domain.NewError(domain.KindSourceUnavailable, "database path is a directory", nil).WithPath(f.path)
	}
	return nil
}
