package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

const restartNotice = "Restart the application to load the restored database."

type Restore struct {
	archiver domain.Archiver
	sources  Sources
	logger   Logger
	now      func() time.Time
}

func NewRestore(archiver domain.Archiver, sources Sources, logger Logger) *Restore {
	return &Restore{
		archiver: archiver,
		sources:  sources,
		logger:   logger,
		now:      time.Now,
	}
}

// Run replaces req.TargetDatabasePath with the database stored in
// req.SourceArchivePath. When the target exists it is first copied to
// <target>.backup_<timestamp>; that copy is kept whatever the outcome.
// The target is only written once the archive has been fully checked.
func (uc *Restore) Run(ctx context.Context, req domain.RestoreRequest, r Reporter) domain.Result {
	uc.logger.Infof("Starting restore of %s from %s", req.TargetDatabasePath, req.SourceArchivePath)

	res := domain.Result{ArchivePath: req.SourceArchivePath}
	manifest, err := uc.run(ctx, req, r, &res)
	if err != nil {
		return uc.failed(req, res, err)
	}

	res.Success = true
	res.RestartRequired = true
	res.Manifest = &manifest
	res.Message = "Restore completed successfully. " + restartNotice
	if res.PreRestorePath != "" {
		res.Message += fmt.Sprintf(" The previous database was saved to %s", res.PreRestorePath)
	}

	uc.logger.Infof("Restore of %s completed from %s (backup of %s)",
		req.TargetDatabasePath, req.SourceArchivePath, manifest.CreatedAt.Local().Format(time.DateTime))
	return res
}

func (uc *Restore) run(ctx context.Context, req domain.RestoreRequest, r Reporter, res *domain.Result) (domain.Manifest, error) {
	target := req.TargetDatabasePath

	r.Status("Starting restore...")
	r.Progress(10)

	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	if isRegularFile(target) {
		r.Status("Saving current database...")
		saved, err := uc.saveCurrent(target)
		if err != nil {
			return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to save current database", err).WithPath(target)
		}
		res.PreRestorePath = saved
		uc.logger.Infof("Current database saved to %s", saved)
	}
	r.Progress(20)

	scratch, err := os.MkdirTemp(uc.sources.ScratchDir, "restore-*")
	if err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	r.Status("Extracting archive...")
	manifest, err := uc.archiver.Read(req.SourceArchivePath, scratch)
	if err != nil {
		return domain.Manifest{}, classify(err, domain.KindCorruptArchive)
	}
	r.Progress(30)

	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	r.Status("Checking database payload...")
	extracted := filepath.Join(scratch, domain.DatabaseEntry)
	if !isRegularFile(extracted) {
		return domain.Manifest{}, domain.NewError(domain.KindMissingDatabasePayload, "archive does not contain "+domain.DatabaseEntry, nil).WithPath(req.SourceArchivePath)
	}
	if manifest.DatabaseSHA256 != "" {
		sum, err := fileSHA256(extracted)
		if err != nil {
			return domain.Manifest{}, domain.NewError(domain.KindCorruptArchive, "failed to checksum database payload", err)
		}
		if sum != manifest.DatabaseSHA256 {
			return domain.Manifest{}, domain.NewError(domain.KindCorruptArchive, "database checksum mismatch", nil).WithPath(req.SourceArchivePath)
		}
	}
	r.Progress(50)

	// Last cancellation point. The database and its auxiliary files are
	// replaced together.
	if err := checkpoint(ctx); err != nil {
		return domain.Manifest{}, err
	}
	r.Status("Replacing database...")
	if err := replaceFile(extracted, target); err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to replace database", err).WithPath(target)
	}
	r.Progress(70)

	if err := uc.restoreAuxiliary(scratch, r); err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindDestinationWriteFailure, "failed to restore auxiliary files", err)
	}
	r.Progress(90)

	if err := os.RemoveAll(scratch); err != nil {
		uc.logger.Warnf("Failed to remove scratch directory %s: %v", scratch, err)
	}
	r.Status("Restore complete. " + restartNotice)
	r.Progress(100)

	return manifest, nil
}

// saveCurrent copies target to a fresh <target>.backup_<timestamp> path.
func (uc *Restore) saveCurrent(target string) (string, error) {
	base := domain.PreRestoreBackupPath(target, uc.now())
	saved := base
	for i := 1; exists(saved); i++ {
		saved = fmt.Sprintf("%s_%d", base, i)
	}

	if err := copyFile(target, saved); err != nil {
		os.Remove(saved)
		return "", err
	}
	return saved, nil
}

func (uc *Restore) restoreAuxiliary(scratch string, r Reporter) error {
	cfg := filepath.Join(scratch, domain.ConfigEntry)
	if isRegularFile(cfg) && uc.sources.ConfigFile != "" {
		r.Status("Restoring configuration...")
		if err := replaceFile(cfg, uc.sources.ConfigFile); err != nil {
			return err
		}
	}

	res := filepath.Join(scratch, domain.ResourcesEntry)
	if isDir(res) && uc.sources.ResourcesDir != "" {
		r.Status("Restoring resources...")
		if err := replaceDir(res, uc.sources.ResourcesDir); err != nil {
			return err
		}
	}

	return nil
}

func (uc *Restore) failed(req domain.RestoreRequest, res domain.Result, err error) domain.Result {
	res.Success = false
	res.Err = err

	if domain.KindOf(err) == domain.KindCancelled {
		res.Message = "Restore cancelled"
		uc.logger.Warnf("Restore of %s cancelled", req.TargetDatabasePath)
	} else {
		res.Message = fmt.Sprintf("Restore failed: %v", err)
		uc.logger.Errorf("Restore of %s from %s failed: %v", req.TargetDatabasePath, req.SourceArchivePath, err)
	}

	if res.PreRestorePath != "" {
		res.Message += fmt.Sprintf(". The previous database was saved to %s", res.PreRestorePath)
	}
	return res
}
