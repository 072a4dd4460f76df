package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// Sources names the auxiliary files that travel with a full backup and
// where scratch directories are created.
type Sources struct {
	ConfigFile   string
	ResourcesDir string
	ScratchDir   string
	AppName      string
}

type Backup struct {
	db       domain.Database
	archiver domain.Archiver
	sources  Sources
	logger   Logger
	now      func() time.Time
}

func NewBackup(
	db domain.Database,
	archiver domain.Archiver,
	sources Sources,
	logger Logger,
) *Backup {
	return &Backup{
		db:       db,
		archiver: archiver,
		sources:  sources,
		logger:   logger,
		now:      time.Now,
	}
}

// Run produces one archive at req.DestinationPath. It never panics or
// returns an error; every outcome is described by the Result.
func (uc *Backup) Run(ctx context.Context, req domain.BackupRequest, r Reporter) domain.Result {
	dbName := uc.db.GetName()
	uc.logger.Infof("[%s] Starting backup to %s", dbName, req.DestinationPath)

	manifest, err := uc.run(ctx, req, r)
	if err != nil {
		return uc.failed(req, err)
	}

	uc.logger.Infof("[%s] Backup completed: %s (%s, %s)",
		dbName, req.DestinationPath, manifest.BackupType,
		humanize.Bytes(uint64(fileSize(req.DestinationPath))))

	return domain.Result{
		Success:     true,
		Message:     fmt.Sprintf("Backup created successfully: %s", req.DestinationPath),
		ArchivePath: req.DestinationPath,
		Manifest:    &manifest,
	}
}

func (uc *Backup) run(ctx context.Context, req domain.BackupRequest, r Reporter) (domain.Manifest, error) {
	r.Status("Starting backup...")
	if err := uc.db.Ping(ctx); err != nil {
		return domain.Manifest{}, classify(err, domain.KindSourceUnavailable)
	}
	r.Progress(10)

	scratch, err := os.MkdirTemp(uc.sources.ScratchDir, "backup-*")
	if err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	r.Status("Copying database...")
	snap, err := uc.db.Snapshot(ctx, filepath.Join(scratch, domain.DatabaseEntry))
	if err != nil {
		return domain.Manifest{}, classify(err, domain.KindDestinationWriteFailure)
	}
	r.Progress(30)

	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	manifest := domain.Manifest{
		CreatedAt:      uc.now().UTC(),
		Version:        domain.FormatVersion,
		DatabaseSize:   snap.Size,
		BackupType:     domain.BackupTypeFor(req.IncludeAuxiliaryFiles),
		DatabaseSHA256: snap.SHA256,
		App:            uc.sources.AppName,
	}
	r.Progress(50)

	if req.IncludeAuxiliaryFiles {
		if err := checkpoint(ctx); err != nil {
			return domain.Manifest{}, err
		}
		r.Status("Copying configuration and resources...")
		if err := uc.copyAuxiliary(scratch); err != nil {
			return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to copy auxiliary files", err)
		}
		r.Progress(70)
	}

	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	r.Status("Compressing archive...")
	partial := partialPath(req.DestinationPath)
	defer os.Remove(partial)
	if err := uc.archiver.Write(manifest, scratch, partial); err != nil {
		return domain.Manifest{}, classify(err, domain.KindDestinationWriteFailure)
	}
	r.Progress(90)

	if err := os.RemoveAll(scratch); err != nil {
		uc.logger.Warnf("Failed to remove scratch directory %s: %v", scratch, err)
	}
	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	if err := os.Rename(partial, req.DestinationPath); err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to publish archive", err).WithPath(req.DestinationPath)
	}
	r.Status("Backup complete")
	r.Progress(100)

	return manifest, nil
}

// copyAuxiliary copies the configuration file and resources tree into
// scratch. Sources that do not exist are skipped.
func (uc *Backup) copyAuxiliary(scratch string) error {
	if cfg := uc.sources.ConfigFile; cfg != "" {
		if isRegularFile(cfg) {
			if err := copyFile(cfg, filepath.Join(scratch, domain.ConfigEntry)); err != nil {
				return err
			}
		} else {
			uc.logger.Warnf("Configuration file %s not found, skipping", cfg)
		}
	}

	if res := uc.sources.ResourcesDir; res != "" {
		if isDir(res) {
			if err := copyTree(res, filepath.Join(scratch, domain.ResourcesEntry)); err != nil {
				return err
			}
		} else {
			uc.logger.Warnf("Resources directory %s not found, skipping", res)
		}
	}

	return nil
}

// partialPath is a hidden sibling of dest. Archive listings skip it, so a
// crash before the final rename never leaves a visible archive behind.
func partialPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+"."+uuid.NewString()+".partial")
}

func (uc *Backup) failed(req domain.BackupRequest, err error) domain.Result {
	if domain.KindOf(err) == domain.KindCancelled {
		uc.logger.Warnf("[%s] Backup to %s cancelled", uc.db.GetName(), req.DestinationPath)
		return domain.Result{Message: "Backup cancelled", Err: err}
	}

	uc.logger.Errorf("[%s] Backup to %s failed: %v", uc.db.GetName(), req.DestinationPath, err)
	return domain.Result{
		Message: fmt.Sprintf("Backup failed: %v", err),
		Err:     err,
	}
}
