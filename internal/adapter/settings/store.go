package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

// Keys persisted in the settings store.
const (
	KeyAutoEnabled = "backup_auto_enabled"
	KeyInterval    = "backup_interval"
	KeyLocation    = "backup_location"
)

// Store is a flat key/value settings file. Values are kept as strings.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns every stored key. A missing file is an empty store.
func (s *Store) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *Store) load() (map[string]string, error) {
	values := map[string]string{}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return values, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	for _, key := range v.AllKeys() {
		value, err := cast.ToStringE(v.Get(key))
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		values[key] = value
	}
	return values, nil
}

// Save merges values into the stored keys and rewrites the file.
func (s *Store) Save(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range current {
		v.Set(key, value)
	}
	for key, value := range values {
		v.Set(strings.ToLower(key), value)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := v.WriteConfigAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Decode converts stored strings into a BackupConfig. Values that are
// missing or unusable fall back to defaults; each fallback for a present
// but bad value is reported in warnings.
func Decode(values map[string]string, defaults domain.BackupConfig) (domain.BackupConfig, []string) {
	cfg := defaults
	var warnings []string

	if raw, ok := values[KeyAutoEnabled]; ok {
		enabled, err := cast.ToBoolE(strings.TrimSpace(raw))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %q is not a boolean", KeyAutoEnabled, raw))
		} else {
			cfg.AutoBackupEnabled = enabled
		}
	}

	if raw, ok := values[KeyInterval]; ok {
		// Decimal only: a hand-edited "010" means ten hours.
		hours, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("%s: %q is not an integer", KeyInterval, raw))
		case hours < 1:
			warnings = append(warnings, fmt.Sprintf("%s: %d is not a positive number of hours", KeyInterval, hours))
		default:
			cfg.IntervalHours = hours
		}
	}

	if raw, ok := values[KeyLocation]; ok {
		if location := strings.TrimSpace(raw); location != "" {
			cfg.Directory = location
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: empty location", KeyLocation))
		}
	}

	return cfg, warnings
}

// Encode is the inverse of Decode.
func Encode(cfg domain.BackupConfig) map[string]string {
	return map[string]string{
		KeyAutoEnabled: cast.ToString(cfg.AutoBackupEnabled),
		KeyInterval:    cast.ToString(cfg.IntervalHours),
		KeyLocation:    cfg.Directory,
	}
}
