package compressor

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// manifestRecord is the on-disk shape of backup_info.json. Pointers let
// decoding tell a missing field apart from a zero value.
type manifestRecord struct {
	CreatedAt      *string `json:"created_at"`
	Version        *string `json:"version"`
	DatabaseSize   *int64  `json:"database_size"`
	BackupType     *string `json:"backup_type"`
	DatabaseSHA256 string  `json:"database_sha256,omitempty"`
	App            string  `json:"app,omitempty"`
}

// Archives written by the desktop application carry a naive local timestamp.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func EncodeManifest(m domain.Manifest) ([]byte, error) {
	createdAt := m.CreatedAt.UTC().Format(time.RFC3339Nano)
	backupType := string(m.BackupType)
	version := m.Version
	size := m.DatabaseSize

	data, err := json.MarshalIndent(manifestRecord{
		CreatedAt:      &createdAt,
		Version:        &version,
		DatabaseSize:   &size,
		BackupType:     &backupType,
		DatabaseSHA256: m.DatabaseSHA256,
		App:            m.App,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

func DecodeManifest(data []byte) (domain.Manifest, error) {
	var rec manifestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest, "manifest is not valid JSON", err)
	}

	switch {
	case rec.CreatedAt == nil:
		return domain.Manifest{}, missingField("created_at")
	case rec.Version == nil:
		return domain.Manifest{}, missingField("version")
	case rec.DatabaseSize == nil:
		return domain.Manifest{}, missingField("database_size")
	case rec.BackupType == nil:
		return domain.Manifest{}, missingField("backup_type")
	}

	createdAt, err := parseCreatedAt(*rec.CreatedAt)
	if err != nil {
		return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest, "created_at is not an ISO-8601 timestamp", err)
	}

	backupType := domain.BackupType(*rec.BackupType)
	if !backupType.Valid() {
		return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest,
			fmt.Sprintf("unknown backup_type %q", *rec.BackupType), nil)
	}
	if *rec.DatabaseSize < 0 {
		return domain.Manifest{}, domain.NewError(domain.KindInvalidManifest, "database_size is negative", nil)
	}

	return domain.Manifest{
		CreatedAt:      createdAt,
		Version:        *rec.Version,
		DatabaseSize:   *rec.DatabaseSize,
		BackupType:     backupType,
		DatabaseSHA256: rec.DatabaseSHA256,
		App:            rec.App,
	}, nil
}

func missingField(name string) error {
	return domain.NewError(domain.KindInvalidManifest, "manifest is missing required field "+name, nil)
}

func parseCreatedAt(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range createdAtLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
