package domain

import (
	"context"
)

// Storage is a destination an archive can be mirrored to.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
}

// Notifier delivers a short human-readable message about a backup outcome.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
