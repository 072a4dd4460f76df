package domain

import (
	"time"
)

// FormatVersion is written into every manifest produced by this build.
const FormatVersion = "1.0.0"

// Fixed layout of an archive package.
const (
	DatabaseEntry  = "database.db"
	ManifestEntry  = "backup_info.json"
	ConfigEntry    = "config.py"
	ResourcesEntry = "resources"
	ArchiveExt     = ".zip"
)

type BackupType string

const (
	BackupTypeFull         BackupType = "full"
	BackupTypeDatabaseOnly BackupType = "database_only"
)

func BackupTypeFor(includeAuxiliaryFiles bool) BackupType {
	if includeAuxiliaryFiles {
		return BackupTypeFull
	}
	return BackupTypeDatabaseOnly
}

func (t BackupType) Valid() bool {
	return t == BackupTypeFull || t == BackupTypeDatabaseOnly
}

// Manifest is the backup_info record stored at the archive root.
// It is written once when the archive is built and never modified.
type Manifest struct {
	CreatedAt      time.Time
	Version        string
	DatabaseSize   int64
	BackupType     BackupType
	DatabaseSHA256 string
	App            string
}

// BackupEntry describes one archive file found in the backup directory.
type BackupEntry struct {
	Filename  string
	Path      string
	Size      int64
	CreatedAt time.Time
	IsAuto    bool
}

// BackupConfig is the runtime configuration persisted in the settings store.
type BackupConfig struct {
	AutoBackupEnabled bool
	IntervalHours     int
	Directory         string
}

func (c BackupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// BackupRequest is the input of one backup operation. The source is the
// database the executor was built with.
type BackupRequest struct {
	DestinationPath       string
	IncludeAuxiliaryFiles bool
}

// RestoreRequest is the input of one restore operation.
type RestoreRequest struct {
	SourceArchivePath  string
	TargetDatabasePath string
}
