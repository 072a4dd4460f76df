package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/KMINALI2005/School-management-system/internal/adapter/compressor"
	"github.com/KMINALI2005/School-management-system/internal/adapter/database"
	"github.com/KMINALI2005/School-management-system/internal/adapter/settings"
	"github.com/KMINALI2005/School-management-system/internal/adapter/storage"
	"github.com/KMINALI2005/School-management-system/internal/config"
	"github.com/KMINALI2005/School-management-system/internal/domain"
	"github.com/KMINALI2005/School-management-system/internal/infrastructure/logger"
	"github.com/KMINALI2005/School-management-system/internal/infrastructure/scheduler"
	"github.com/KMINALI2005/School-management-system/internal/usecase"
)

// App is the backup manager. It owns the runtime BackupConfig and the
// scheduler, and allows one backup or restore per database path at a time.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	ownLogger bool
	settings  *settings.Store
	scheduler *scheduler.Scheduler
	archiver  *compressor.ZipCompressor
	db        domain.Database
	backupUC  *usecase.Backup
	restoreUC *usecase.Restore
	retention *usecase.Retention
	mirror    *usecase.Mirror

	mu           sync.Mutex
	backupConfig domain.BackupConfig
	local        *storage.LocalStorage

	busyMu sync.Mutex
	busy   map[string]string

	background sync.WaitGroup
	now        func() time.Time

	// holdScheduler keeps the scheduler stopped until Run. Guarded by mu.
	holdScheduler bool
}

// Option adjusts a manager at construction.
type Option func(*App)

// WithSchedulerOnRun leaves the scheduler stopped until Run is called, so
// one-shot callers never start the background loop.
func WithSchedulerOnRun() Option {
	return func(a *App) {
		a.holdScheduler = true
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := NewWithLogger(ctx, cfg, log, opts...)
	if err != nil {
		log.Close()
		return nil, err
	}
	a.ownLogger = true
	return a, nil
}

// NewWithLogger builds the manager around an existing logger, loads the
// persisted settings and starts the scheduler when automatic backups are on,
// unless WithSchedulerOnRun defers it.
func NewWithLogger(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	log.Infof("Starting %s", cfg.App.Name)

	store := settings.NewStore(cfg.Backup.SettingsFile)
	values, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	backupConfig, warnings := settings.Decode(values, domain.BackupConfig{
		AutoBackupEnabled: false,
		IntervalHours:     cfg.Backup.DefaultIntervalHours,
		Directory:         cfg.Backup.DefaultLocation,
	})
	for _, w := range warnings {
		log.Warnf("Ignoring setting %s", w)
	}

	local, err := storage.NewLocal(backupConfig.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	sources := usecase.Sources{
		ConfigFile:   cfg.Paths.ConfigFile,
		ResourcesDir: cfg.Paths.ResourcesDir,
		ScratchDir:   cfg.Paths.ScratchDir,
		AppName:      cfg.App.Name,
	}
	archiver := compressor.NewZip()
	db := database.NewFile(cfg.DatabaseName(), cfg.Paths.Database)
	if err := db.Ping(ctx); err != nil {
		log.Warnf("Database is not available yet: %v", err)
	}
	targets, notifiers := initializeUploadTargets(ctx, cfg, log)

	a := &App{
		config:       cfg,
		logger:       log,
		settings:     store,
		scheduler:    scheduler.New(log),
		archiver:     archiver,
		db:           db,
		backupUC:     usecase.NewBackup(db, archiver, sources, log),
		restoreUC:    usecase.NewRestore(archiver, sources, log),
		retention:    usecase.NewRetention(log),
		mirror:       usecase.NewMirror(targets, notifiers, log),
		backupConfig: backupConfig,
		local:        local,
		busy:         make(map[string]string),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	log.Infof("Backup directory: %s, automatic backups: %t every %dh, %d remote target(s)",
		backupConfig.Directory, backupConfig.AutoBackupEnabled, backupConfig.IntervalHours, len(targets))

	if backupConfig.AutoBackupEnabled && !a.holdScheduler {
		if err := a.startScheduler(backupConfig); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func initializeUploadTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]usecase.UploadTarget, []domain.Notifier) {
	var targets []usecase.UploadTarget
	var notifiers []domain.Notifier

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive upload enabled")

		case "s3":
			stor, err = storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			tg, err := storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			stor = tg
			notifiers = append(notifiers, tg)
			log.Infof("✓ Telegram upload enabled")

		case "local":
			stor, err = storage.NewLocal(targetCfg.Path)
			if err != nil {
				log.Errorf("Failed to initialize local mirror %s: %v", targetCfg.Path, err)
				continue
			}
			log.Infof("✓ Local mirror enabled (%s)", targetCfg.Path)

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets, notifiers
}

// BackupConfig returns a copy of the runtime configuration.
func (a *App) BackupConfig() domain.BackupConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backupConfig
}

func (a *App) DatabasePath() string {
	return a.db.GetPath()
}

func (a *App) SettingsPath() string {
	return a.settings.Path()
}

// acquire marks path busy for op. A second operation on the same path is
// rejected rather than queued.
func (a *App) acquire(path, op string) (func(), error) {
	key := lockKey(path)

	a.busyMu.Lock()
	defer a.busyMu.Unlock()

	if running, ok := a.busy[key]; ok {
		return nil, domain.NewError(domain.KindOperationInProgress,
			fmt.Sprintf("a %s is already running", running), nil).WithPath(path)
	}
	a.busy[key] = op

	return func() {
		a.busyMu.Lock()
		delete(a.busy, key)
		a.busyMu.Unlock()
	}, nil
}

func lockKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// CreateBackup starts a backup of the live database into dest. An empty
// dest means backup_<timestamp>.zip in the backup directory.
func (a *App) CreateBackup(ctx context.Context, dest string, includeAuxiliaryFiles bool) (*usecase.Job, error) {
	if dest == "" {
		dest = a.localStorage().GetPath(domain.ManualBackupName(a.now()))
	}

	release, err := a.acquire(a.db.GetPath(), "backup")
	if err != nil {
		a.logger.Warnf("Rejected backup to %s: %v", dest, err)
		return nil, err
	}

	req := domain.BackupRequest{DestinationPath: dest, IncludeAuxiliaryFiles: includeAuxiliaryFiles}
	job := usecase.StartJob(ctx, "backup", func(ctx context.Context, r usecase.Reporter) domain.Result {
		defer release()

		res := a.backupUC.Run(ctx, req, r)
		if res.Success && a.config.Backup.MirrorManual {
			a.mirrorInBackground(res.ArchivePath)
		}
		return res
	})
	a.logger.WithJob(job.ID()).Infof("Backup job started: %s (full=%t)", dest, includeAuxiliaryFiles)
	return job, nil
}

// RestoreBackup starts a restore of archive over the live database.
func (a *App) RestoreBackup(ctx context.Context, archive string) (*usecase.Job, error) {
	target := a.db.GetPath()

	release, err := a.acquire(target, "restore")
	if err != nil {
		a.logger.Warnf("Rejected restore from %s: %v", archive, err)
		return nil, err
	}

	req := domain.RestoreRequest{SourceArchivePath: archive, TargetDatabasePath: target}
	job := usecase.StartJob(ctx, "restore", func(ctx context.Context, r usecase.Reporter) domain.Result {
		defer release()
		return a.restoreUC.Run(ctx, req, r)
	})
	a.logger.WithJob(job.ID()).Infof("Restore job started: %s from %s", target, archive)
	return job, nil
}

func (a *App) mirrorInBackground(archive string) {
	if len(a.mirror.Targets()) == 0 {
		return
	}

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		if err := a.mirror.Upload(context.Background(), archive); err != nil {
			a.logger.Warnf("Mirroring %s finished with errors: %v", filepath.Base(archive), err)
		}
	}()
}

// RunAutoBackup performs one unattended full backup followed by retention.
// It is what the scheduler fires.
func (a *App) RunAutoBackup(ctx context.Context) error {
	local := a.localStorage()

	release, err := a.acquire(a.db.GetPath(), "backup")
	if err != nil {
		a.logger.Warnf("Skipping automatic backup: %v", err)
		return nil
	}
	defer release()

	dest := local.GetPath(domain.AutoBackupName(a.now()))
	a.logger.Infof("=== Triggered automatic backup: %s ===", filepath.Base(dest))

	req := domain.BackupRequest{DestinationPath: dest, IncludeAuxiliaryFiles: true}
	res := a.backupUC.Run(ctx, req, usecase.LogReporter{Logger: a.logger, Prefix: "[auto]"})
	if !res.Success {
		a.mirror.Notify(ctx, fmt.Sprintf("❌ Automatic school backup failed: %s", res.Message))
		return res.Err
	}

	if _, err := a.retention.Prune(ctx, local.BasePath(), a.config.Backup.KeepCount); err != nil {
		a.logger.Warnf("Retention finished with errors: %v", err)
	}

	if err := a.mirror.Upload(ctx, dest); err != nil {
		a.logger.Warnf("Mirroring finished with errors: %v", err)
	}
	if err := a.retention.PruneTargets(ctx, a.mirror.Targets(), a.config.Backup.KeepCount); err != nil {
		a.logger.Warnf("Remote retention finished with errors: %v", err)
	}

	return nil
}

// ListBackups returns every archive in the backup directory, newest first.
func (a *App) ListBackups(ctx context.Context) ([]domain.BackupEntry, error) {
	return a.localStorage().Entries(ctx)
}

func (a *App) localStorage() *storage.LocalStorage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.local
}

// DeleteBackup removes one archive file.
func (a *App) DeleteBackup(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		a.logger.Errorf("Failed to delete backup %s: %v", path, err)
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	if !info.Mode().IsRegular() {
		err := errors.New("not a regular file")
		a.logger.Errorf("Failed to delete backup %s: %v", path, err)
		return fmt.Errorf("failed to delete backup %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		a.logger.Errorf("Failed to delete backup %s: %v", path, err)
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	a.logger.Infof("Deleted backup %s", path)
	return nil
}

func (a *App) ValidateBackup(path string) (bool, string) {
	return a.archiver.Validate(path)
}

// ReadManifest returns the manifest of an archive without extracting it.
func (a *App) ReadManifest(path string) (domain.Manifest, error) {
	return a.archiver.ReadManifest(path)
}

func (a *App) StartScheduler() error {
	return a.startScheduler(a.BackupConfig())
}

func (a *App) startScheduler(cfg domain.BackupConfig) error {
	if err := a.scheduler.Start(cfg.Interval(), a.RunAutoBackup); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

func (a *App) StopScheduler() {
	a.scheduler.Stop()
}

func (a *App) SchedulerRunning() bool {
	return a.scheduler.Running()
}

func (a *App) NextAutoBackup() time.Time {
	return a.scheduler.Next()
}

// SetAutoBackup persists the flag and starts or stops the scheduler.
func (a *App) SetAutoBackup(enabled bool) error {
	cfg, err := a.update(func(c *domain.BackupConfig) error {
		c.AutoBackupEnabled = enabled
		return nil
	})
	if err != nil {
		return err
	}

	if !enabled {
		a.StopScheduler()
		return nil
	}
	if a.schedulerHeld() {
		return nil
	}
	return a.startScheduler(cfg)
}

func (a *App) schedulerHeld() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holdScheduler
}

// SetInterval persists the interval and restarts a running scheduler.
func (a *App) SetInterval(hours int) error {
	cfg, err := a.update(func(c *domain.BackupConfig) error {
		if hours < 1 {
			return fmt.Errorf("interval must be a positive number of hours, got %d", hours)
		}
		c.IntervalHours = hours
		return nil
	})
	if err != nil {
		return err
	}

	if a.SchedulerRunning() {
		return a.startScheduler(cfg)
	}
	return nil
}

// SetLocation persists a new backup directory, creating it if needed.
func (a *App) SetLocation(dir string) error {
	if dir == "" {
		return errors.New("backup location cannot be empty")
	}
	local, err := storage.NewLocal(dir)
	if err != nil {
		return err
	}

	if _, err := a.update(func(c *domain.BackupConfig) error {
		c.Directory = dir
		return nil
	}); err != nil {
		return err
	}

	a.mu.Lock()
	a.local = local
	a.mu.Unlock()
	return nil
}

// update applies fn to a copy of the config, persists it and only then
// makes it current.
func (a *App) update(fn func(*domain.BackupConfig) error) (domain.BackupConfig, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.backupConfig
	if err := fn(&next); err != nil {
		return a.backupConfig, err
	}
	if err := a.settings.Save(settings.Encode(next)); err != nil {
		return a.backupConfig, fmt.Errorf("failed to save settings: %w", err)
	}

	a.backupConfig = next
	a.logger.Infof("Backup settings updated: automatic=%t interval=%dh location=%s",
		next.AutoBackupEnabled, next.IntervalHours, next.Directory)
	return next, nil
}

// Run starts the scheduler when automatic backups are on and blocks until
// ctx is done. The scheduler keeps firing in the background.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.holdScheduler = false
	a.mu.Unlock()

	cfg := a.BackupConfig()
	if cfg.AutoBackupEnabled {
		if !a.SchedulerRunning() {
			if err := a.startScheduler(cfg); err != nil {
				return err
			}
		}
		a.logger.Infof("Automatic backups every %dh, next at %s", cfg.IntervalHours, a.NextAutoBackup().Format(time.DateTime))
	} else {
		a.logger.Warnf("Automatic backups are disabled")
	}

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	a.background.Wait()
	if a.ownLogger {
		a.logger.Close()
	}
}
