package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	AutoBackupPrefix   = "auto_backup_"
	ManualBackupPrefix = "backup_"
	timestampLayout    = "20060102_150405"
)

var autoBackupPattern = regexp.MustCompile(`^auto_backup_(\d{8})_(\d{6})\.zip$`)

// AutoBackupName returns the retention-eligible archive name for t.
func AutoBackupName(t time.Time) string {
	return AutoBackupPrefix + t.Format(timestampLayout) + ArchiveExt
}

// ManualBackupName is the default name for an interactive backup without an explicit destination.
func ManualBackupName(t time.Time) string {
	return ManualBackupPrefix + t.Format(timestampLayout) + ArchiveExt
}

func IsAutoBackupName(name string) bool {
	return autoBackupPattern.MatchString(name)
}

func IsArchiveName(name string) bool {
	return strings.HasSuffix(name, ArchiveExt) && !strings.HasPrefix(name, ".")
}

// AutoBackupTime extracts the timestamp embedded in an automatic backup name.
func AutoBackupTime(name string) (time.Time, error) {
	matches := autoBackupPattern.FindStringSubmatch(name)
	if len(matches) < 3 {
		return time.Time{}, fmt.Errorf("invalid filename format: %s", name)
	}
	return time.ParseInLocation(timestampLayout, matches[1]+"_"+matches[2], time.Local)
}

// PreRestoreBackupPath is the rollback copy taken of target before a restore.
func PreRestoreBackupPath(target string, t time.Time) string {
	return target + ".backup_" + t.Format(timestampLayout)
}
