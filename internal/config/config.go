package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Paths  PathsConfig  `mapstructure:"paths"`
	Backup BackupConfig `mapstructure:"backup"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// PathsConfig locates the live data that backups capture and restores replace.
type PathsConfig struct {
	Database     string `mapstructure:"database"`
	ConfigFile   string `mapstructure:"config_file"`
	ResourcesDir string `mapstructure:"resources_dir"`
	ScratchDir   string `mapstructure:"scratch_dir"`
}

type BackupConfig struct {
	SettingsFile         string         `mapstructure:"settings_file"`
	KeepCount            int            `mapstructure:"keep_count"`
	DefaultLocation      string         `mapstructure:"default_location"`
	DefaultIntervalHours int            `mapstructure:"default_interval_hours"`
	MirrorManual         bool           `mapstructure:"mirror_manual"`
	UploadTargets        []UploadTarget `mapstructure:"upload_targets"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Local mirror, e.g. a mounted USB drive
	Path string `mapstructure:"path"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "school-backup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "backup.log")
	v.SetDefault("paths.database", "school_database.db")
	v.SetDefault("paths.config_file", "config.py")
	v.SetDefault("paths.resources_dir", "resources")
	v.SetDefault("paths.scratch_dir", os.TempDir())
	v.SetDefault("backup.settings_file", "backup_settings.yaml")
	v.SetDefault("backup.keep_count", 10)
	v.SetDefault("backup.default_location", "backups")
	v.SetDefault("backup.default_interval_hours", 24)
	v.SetDefault("backup.mirror_manual", false)
}

// Load reads the YAML file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SCHOOL_BACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.Database == "" {
		return fmt.Errorf("paths.database is required")
	}
	if c.Backup.SettingsFile == "" {
		return fmt.Errorf("backup.settings_file is required")
	}
	if c.Backup.KeepCount < 1 {
		return fmt.Errorf("backup.keep_count must be positive, got %d", c.Backup.KeepCount)
	}
	if c.Backup.DefaultIntervalHours < 1 {
		return fmt.Errorf("backup.default_interval_hours must be positive, got %d", c.Backup.DefaultIntervalHours)
	}
	if c.Backup.DefaultLocation == "" {
		return fmt.Errorf("backup.default_location is required")
	}

	for i, target := range c.Backup.UploadTargets {
		if !target.Enabled {
			continue
		}
		switch target.Type {
		case "local":
			if target.Path == "" {
				return fmt.Errorf("upload_targets[%d]: path is required for local", i)
			}
		case "s3":
			if target.Bucket == "" {
				return fmt.Errorf("upload_targets[%d]: bucket is required for s3", i)
			}
		case "gdrive":
			if target.FolderID == "" {
				return fmt.Errorf("upload_targets[%d]: folder_id is required for gdrive", i)
			}
		case "telegram":
			if target.BotToken == "" || target.ChatID == "" {
				return fmt.Errorf("upload_targets[%d]: bot_token and chat_id are required for telegram", i)
			}
		default:
			return fmt.Errorf("upload_targets[%d]: unknown type %q", i, target.Type)
		}
	}

	return nil
}

// DatabaseName is used to label the database in logs.
func (c *Config) DatabaseName() string {
	return filepath.Base(c.Paths.Database)
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
