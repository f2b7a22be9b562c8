package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	Passphrase string
	// Prefix is prepended to every object key.
	Prefix string
	// Interval between scheduled backups. Zero disables the schedule;
	// RunNow still works.
	Interval time.Duration
	// Retention is how long completed backups are kept. Zero keeps them
	// forever.
	Retention time.Duration
}

// Enabled reports whether the config has everything a backup needs.
func (c Config) Enabled() bool {
	return c.S3.complete() && c.Passphrase != ""
}

const defaultPrefix = "progresspoint"

func (c Config) prefix() string {
	if c.Prefix == "" {
		return defaultPrefix
	}
	return strings.TrimSuffix(c.Prefix, "/")
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

var (
	ErrDisabled   = errors.New("backup not configured")
	ErrInProgress = errors.New("backup already in progress")
)

// Manager takes encrypted snapshots of the database and keeps them in
// S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	running sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. db and bs may be nil for a manager
// that only restores.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, callback StatusCallback, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		db:       db,
		backups:  bs,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}

	if cfg.Enabled() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	if bs != nil {
		if last, err := bs.LatestCompleted(); err == nil && last != nil {
			m.status.LastBackup = last.CompletedAt
		}
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.cfg.Interval <= 0 || m.done != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	m.logger.Info("backup schedule started", "interval", interval)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scheduled(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow takes a backup immediately and returns its record id. It fails
// with ErrInProgress rather than queueing behind a running backup.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return 0, ErrDisabled
	}
	if !m.running.TryLock() {
		return 0, ErrInProgress
	}
	defer m.running.Unlock()

	return m.runBackup(ctx, client)
}

func (m *Manager) fail(id int64, err error) {
	if uerr := m.backups.UpdateStatus(id, model.BackupStatusFailed, err.Error()); uerr != nil {
		m.logger.Error("record backup failure", "id", id, "error", uerr)
	}
	m.setStatus(Status{State: StateError, Error: err.Error()})
}

func (m *Manager) runBackup(ctx context.Context, client s3Client) (int64, error) {
	m.mu.RLock()
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	prefix := m.cfg.prefix()
	m.mu.RUnlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	started := time.Now().UTC()
	filename := fmt.Sprintf("backup-%s.db.enc", started.Format("2006-01-02T150405Z"))
	s3Key := prefix + "/" + filename

	record, err := m.backups.Create(filename, s3Key, started)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "progresspoint-backup-")
	if err != nil {
		m.fail(record.ID, err)
		return 0, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// VACUUM INTO writes a consistent snapshot without touching the live
	// file, and works for in-memory databases too.
	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		m.fail(record.ID, err)
		return 0, fmt.Errorf("snapshot database: %w", err)
	}

	plain, err := os.ReadFile(snapshot)
	if err != nil {
		m.fail(record.ID, err)
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Seal(plain, passphrase)
	if err != nil {
		m.fail(record.ID, err)
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	if err := m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		m.logger.Warn("mark backup uploading", "id", record.ID, "error", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		m.fail(record.ID, err)
		return 0, fmt.Errorf("upload to s3: %w", err)
	}

	now := time.Now().UTC()
	if err := m.backups.MarkCompleted(record.ID, int64(len(sealed)), now); err != nil {
		m.fail(record.ID, err)
		return 0, fmt.Errorf("mark completed: %w", err)
	}
	m.setStatus(Status{State: StateIdle, LastBackup: &now})

	m.logger.Info("backup completed", "id", record.ID, "key", s3Key, "bytes", len(sealed), "took", now.Sub(started))
	return record.ID, nil
}

// Cleanup deletes backups older than the retention period, both the
// records and the stored objects.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retention := m.cfg.Retention
	m.mu.RUnlock()

	if client == nil || retention <= 0 {
		return nil
	}

	before := time.Now().UTC().Add(-retention)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys))
	}
	return nil
}

// Remote lists the backup object keys in storage, oldest first. It works
// without a local database, which is what a restore after data loss needs.
func (m *Manager) Remote(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	prefix := m.cfg.prefix() + "/"
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrDisabled
	}

	var keys []string
	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil && strings.HasSuffix(*obj.Key, ".db.enc") {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	// Timestamps in the key make lexical order chronological.
	sort.Strings(keys)
	return keys, nil
}

// Restore downloads the backup stored under key (the newest one when key
// is empty), decrypts and integrity-checks it, and writes it to dbPath.
// The server must not be running against dbPath.
func (m *Manager) Restore(ctx context.Context, key, dbPath string) (string, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return "", ErrDisabled
	}

	if key == "" {
		keys, err := m.Remote(ctx)
		if err != nil {
			return "", err
		}
		if len(keys) == 0 {
			return "", errors.New("no backups in storage")
		}
		key = keys[len(keys)-1]
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download from s3: %w", err)
	}
	sealed, err := io.ReadAll(result.Body)
	result.Body.Close()
	if err != nil {
		return "", fmt.Errorf("read download: %w", err)
	}

	plain, err := Open(sealed, passphrase)
	if err != nil {
		return "", fmt.Errorf("decrypt backup: %w", err)
	}

	staged := dbPath + ".restore"
	if err := os.WriteFile(staged, plain, 0600); err != nil {
		return "", fmt.Errorf("stage restore: %w", err)
	}
	defer os.Remove(staged)

	if err := integrityCheck(staged); err != nil {
		return "", err
	}

	if err := os.Rename(staged, dbPath); err != nil {
		return "", fmt.Errorf("replace database: %w", err)
	}
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")

	m.logger.Info("backup restored", "key", key, "path", dbPath)
	return key, nil
}

func integrityCheck(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
