package domain

import "context"

// Snapshot describes one point-in-time copy of the database file.
type Snapshot struct {
	Path   string
	Size   int64
	SHA256 string
}

// Database is a live database that can be captured as a file snapshot.
type Database interface {
	Snapshot(ctx context.Context, outputPath string) (Snapshot, error)
	GetName() string
	GetPath() string
	Ping(ctx context.Context) error
}
