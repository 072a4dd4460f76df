package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// DefaultKeepCount is the number of automatic archives kept when none is configured.
const DefaultKeepCount = 10

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

type Retention struct {
	logger Logger
}

func NewRetention(logger Logger) *Retention {
	return &Retention{logger: logger}
}

type autoArchive struct {
	name    string
	created time.Time
}

// Prune deletes every automatic archive in dir beyond the keep most recently
// created ones. Files outside the automatic naming convention are never
// touched. A file that cannot be deleted is logged and skipped; the returned
// error aggregates those failures.
func (uc *Retention) Prune(ctx context.Context, dir string, keep int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var archives []autoArchive
	for _, entry := range entries {
		if entry.IsDir() || !domain.IsAutoBackupName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			uc.logger.Warnf("Could not stat %s: %v", entry.Name(), err)
			continue
		}
		archives = append(archives, autoArchive{name: entry.Name(), created: info.ModTime()})
	}

	var names []string
	for _, a := range expired(archives, keep) {
		names = append(names, a.name)
	}

	return uc.deleteAll(ctx, "local", names, func(ctx context.Context, name string) error {
		return os.Remove(filepath.Join(dir, name))
	})
}

// PruneTargets applies the same policy to every remote target in parallel.
// Remote files are ordered by the timestamp in their name.
func (uc *Retention) PruneTargets(ctx context.Context, targets []UploadTarget, keep int) error {
	if len(targets) == 0 {
		return nil
	}

	p := pool.New().WithErrors().WithContext(ctx)
	for _, target := range targets {
		target := target
		p.Go(func(ctx context.Context) error {
			if err := uc.pruneTarget(ctx, target, keep); err != nil {
				uc.logger.Errorf("Cleanup failed for %s: %v", target.Name, err)
				return fmt.Errorf("%s: %w", target.Name, err)
			}
			return nil
		})
	}
	return p.Wait()
}

func (uc *Retention) pruneTarget(ctx context.Context, target UploadTarget, keep int) error {
	files, err := target.Storage.List(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var archives []autoArchive
	for _, name := range files {
		created, err := domain.AutoBackupTime(name)
		if err != nil {
			continue
		}
		archives = append(archives, autoArchive{name: name, created: created})
	}

	var names []string
	for _, a := range expired(archives, keep) {
		names = append(names, a.name)
	}

	_, err = uc.deleteAll(ctx, target.Name, names, target.Storage.Delete)
	return err
}

func (uc *Retention) deleteAll(ctx context.Context, where string, names []string, del func(context.Context, string) error) (int, error) {
	var errs error
	deleted := 0
	for _, name := range names {
		if err := del(ctx, name); err != nil {
			uc.logger.Errorf("Failed to delete old backup %s from %s: %v", name, where, err)
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		uc.logger.Infof("Deleted old backup from %s: %s", where, name)
		deleted++
	}

	if len(names) > 0 {
		uc.logger.Infof("Deleted %d old backup(s) from %s", deleted, where)
	}
	return deleted, errs
}

// expired orders archives newest first and returns everything past keep.
func expired(archives []autoArchive, keep int) []autoArchive {
	if keep < 0 {
		keep = 0
	}
	sort.Slice(archives, func(i, j int) bool {
		if !archives[i].created.Equal(archives[j].created) {
			return archives[i].created.After(archives[j].created)
		}
		return archives[i].name > archives[j].name
	})
	if len(archives) <= keep {
		return nil
	}
	return archives[keep:]
}
