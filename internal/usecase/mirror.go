package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// Mirror copies published archives to remote upload targets. Failures are
// logged and returned but never affect the local archive.
type Mirror struct {
	targets   []UploadTarget
	notifiers []domain.Notifier
	logger    Logger
}

func NewMirror(targets []UploadTarget, notifiers []domain.Notifier, logger Logger) *Mirror {
	return &Mirror{targets: targets, notifiers: notifiers, logger: logger}
}

func (uc *Mirror) Targets() []UploadTarget {
	return uc.targets
}

// Upload sends archivePath to every target in parallel.
func (uc *Mirror) Upload(ctx context.Context, archivePath string) error {
	if len(uc.targets) == 0 {
		return nil
	}
	name := filepath.Base(archivePath)

	p := pool.New().WithErrors().WithContext(ctx)
	for _, target := range uc.targets {
		target := target
		p.Go(func(ctx context.Context) error {
			uc.logger.Infof("Uploading %s to %s...", name, target.Name)
			if err := target.Storage.Upload(ctx, archivePath, name); err != nil {
				uc.logger.Errorf("Failed to upload %s to %s: %v", name, target.Name, err)
				return fmt.Errorf("%s: %w", target.Name, err)
			}
			uc.logger.Infof("Successfully uploaded %s to %s", name, target.Name)
			return nil
		})
	}
	return p.Wait()
}

// Notify reports a failed unattended run to every notifier.
func (uc *Mirror) Notify(ctx context.Context, message string) {
	for _, n := range uc.notifiers {
		if err := n.Notify(ctx, message); err != nil {
			uc.logger.Warnf("Failed to send notification: %v", err)
		}
	}
}
