package compressor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// ZipCompressor reads and writes backup archive packages.
//
// Layout at the archive root:
//
//	backup_info.json   manifest
//	database.db        database snapshot
//	config.py          configuration file (full backups only)
//	resources/...      auxiliary tree (full backups only)
type ZipCompressor struct{}

func NewZip() *ZipCompressor {
	return &ZipCompressor{}
}

// Write packs scratchDir together with the manifest into destPath. The
// archive is assembled under a hidden temporary name in the destination
// directory and renamed into place last, so destPath is either absent or
// complete.
func (z *ZipCompressor) Write(manifest domain.Manifest, scratchDir, destPath string) (err error) {
	manifestData, err := EncodeManifest(manifest)
	if err != nil {
		return err
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to create archive directory", err).WithPath(destDir)
	}

	tmp, err := os.CreateTemp(destDir, "."+filepath.Base(destPath)+".*.partial")
	if err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to create archive file", err).WithPath(destPath)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	if err := writeEntry(zw, domain.ManifestEntry, manifestData); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to write manifest", err).WithPath(destPath)
	}
	if err := addTree(zw, scratchDir); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to write archive payload", err).WithPath(destPath)
	}
	if err := zw.Close(); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to finalize archive", err).WithPath(destPath)
	}
	if err := tmp.Sync(); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to sync archive", err).WithPath(destPath)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to close archive", err).WithPath(destPath)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return domain.NewError(domain.KindDestinationWriteFailure, "failed to publish archive", err).WithPath(destPath)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func addTree(zw *zip.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)
		if name == domain.ManifestEntry {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name

		if d.IsDir() {
			header.Name += "/"
			_, err = zw.CreateHeader(header)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		closeErr := f.Close()
		if err != nil {
			return err
		}
		return closeErr
	})
}

// Read extracts archivePath into scratchDir and returns its manifest.
func (z *ZipCompressor) Read(archivePath, scratchDir string) (domain.Manifest, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindCorruptArchive, "failed to open archive", err).WithPath(archivePath)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := extractEntry(f, scratchDir); err != nil {
			return domain.Manifest{}, err
		}
	}

	data, err := os.ReadFile(filepath.Join(scratchDir, domain.ManifestEntry))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest, "archive has no "+domain.ManifestEntry, nil).WithPath(archivePath)
		}
		return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest, "failed to read manifest", err).WithPath(archivePath)
	}
	return DecodeManifest(data)
}

func extractEntry(f *zip.File, scratchDir string) error {
	destPath, err := safeJoin(scratchDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", f.Name, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return domain.NewError(domain.KindCorruptArchive, "failed to open entry "+f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return domain.NewError(domain.KindCorruptArchive, "failed to decompress entry "+f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", destPath, err)
	}
	return nil
}

// safeJoin rejects entries that would land outside root.
func safeJoin(root, name string) (string, error) {
	destPath := filepath.Join(root, filepath.FromSlash(name))
	cleanRoot := filepath.Clean(root)
	if destPath != cleanRoot && !strings.HasPrefix(destPath, cleanRoot+string(os.PathSeparator)) {
		return "", domain.NewError(domain.KindCorruptArchive, "archive entry escapes extraction directory: "+name, nil)
	}
	return destPath, nil
}

// ReadManifest decodes the manifest without extracting the payload.
func (z *ZipCompressor) ReadManifest(archivePath string) (domain.Manifest, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindCorruptArchive, "failed to open archive", err).WithPath(archivePath)
	}
	defer zr.Close()

	return readManifestEntry(&zr.Reader)
}

func readManifestEntry(zr *zip.Reader) (domain.Manifest, error) {
	for _, f := range zr.File {
		if f.Name != domain.ManifestEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return domain.Manifest{}, domain.NewError(domain.KindCorruptArchive, "failed to open manifest", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return domain.Manifest{}, domain.NewError(domain.KindCorruptArchive, "failed to read manifest", err)
		}
		return DecodeManifest(data)
	}
	return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest, "archive has no "+domain.ManifestEntry, nil)
}

// Validate checks that archivePath opens, carries a complete manifest and
// contains an intact database snapshot. The snapshot is streamed so a
// damaged payload is caught by its CRC and, when recorded, its SHA-256.
// It never returns an error; the reason string explains a negative answer.
func (z *ZipCompressor) Validate(archivePath string) (bool, string) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return false, fmt.Sprintf("archive is corrupt: %v", err)
	}
	defer zr.Close()

	manifest, err := readManifestEntry(&zr.Reader)
	if err != nil {
		if domain.KindOf(err) == domain.KindCorruptArchive {
			return false, fmt.Sprintf("archive is corrupt: %v", err)
		}
		return false, fmt.Sprintf("invalid manifest: %v", err)
	}

	for _, f := range zr.File {
		if f.Name != domain.DatabaseEntry {
			continue
		}
		sum, err := entrySHA256(f)
		if err != nil {
			return false, fmt.Sprintf("archive is corrupt: %s: %v", domain.DatabaseEntry, err)
		}
		if manifest.DatabaseSHA256 != "" && sum != manifest.DatabaseSHA256 {
			return false, fmt.Sprintf("archive is corrupt: %s checksum does not match the manifest", domain.DatabaseEntry)
		}
		return true, "backup is valid"
	}
	return false, "required file missing: " + domain.DatabaseEntry
}

func entrySHA256(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
