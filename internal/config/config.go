// Package config defines the flag and environment bindings of both
// binaries. Fields are filled by kong; every flag also reads a PP_*
// environment variable.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dukerupert/progresspoint/internal/backup"
)

type Logging struct {
	Level  string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"PP_LOG_LEVEL"`
	Format string `help:"Log format." enum:"text,json" default:"text" env:"PP_LOG_FORMAT"`
	File   string `help:"Also write logs to this file, rotated by size." type:"path" env:"PP_LOG_FILE"`
}

type Backup struct {
	Endpoint   string        `help:"S3-compatible endpoint URL. Empty means AWS." env:"PP_BACKUP_ENDPOINT"`
	Bucket     string        `help:"Bucket that receives backups." env:"PP_BACKUP_BUCKET"`
	Region     string        `help:"Bucket region." default:"us-east-1" env:"PP_BACKUP_REGION"`
	AccessKey  string        `help:"S3 access key." env:"PP_BACKUP_ACCESS_KEY"`
	SecretKey  string        `help:"S3 secret key." env:"PP_BACKUP_SECRET_KEY"`
	Passphrase string        `help:"Encryption passphrase. Falls back to the OS keyring." env:"PP_BACKUP_PASSPHRASE"`
	Prefix     string        `help:"Object key prefix." default:"progresspoint" env:"PP_BACKUP_PREFIX"`
	Interval   time.Duration `help:"Time between scheduled backups, 0 to disable." default:"24h" env:"PP_BACKUP_INTERVAL"`
	Retention  time.Duration `help:"How long to keep backups, 0 to keep forever." default:"720h" env:"PP_BACKUP_RETENTION"`
}

func (b Backup) Validate() error {
	if b.Interval < 0 || b.Retention < 0 {
		return errors.New("backup interval and retention cannot be negative")
	}
	if b.Endpoint != "" {
		if _, err := url.ParseRequestURI(b.Endpoint); err != nil {
			return fmt.Errorf("backup endpoint: %w", err)
		}
	}
	return nil
}

// Manager converts the flags into a backup.Config.
func (b Backup) Manager() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
		},
		Passphrase: b.Passphrase,
		Prefix:     b.Prefix,
		Interval:   b.Interval,
		Retention:  b.Retention,
	}
}

type Server struct {
	Addr            string        `help:"Listen address." default:":8080" env:"PP_ADDR"`
	DBPath          string        `help:"SQLite database file." default:"progresspoint.db" type:"path" env:"PP_DB_PATH"`
	Timezone        string        `help:"IANA time zone that decides what today is. Empty means the host zone." env:"PP_TIMEZONE"`
	AllowedOrigins  []string      `help:"Browser origins allowed to open /ws." env:"PP_ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests on shutdown." default:"10s" env:"PP_SHUTDOWN_TIMEOUT"`

	Log    Logging `embed:"" prefix:"log-"`
	Backup Backup  `embed:"" prefix:"backup-"`
}

func (s Server) Validate() error {
	if s.DBPath == "" {
		return errors.New("database path is required")
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	if s.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return s.Backup.Validate()
}

// Location resolves Timezone.
func (s Server) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type Client struct {
	Server  string        `help:"ProgressPoint server URL." default:"http://localhost:8080" env:"PP_SERVER"`
	Cache   string        `help:"Offline cache database." default:"~/.local/share/progresspoint/cache.db" type:"path" env:"PP_CACHE"`
	Timeout time.Duration `help:"Per-request timeout." default:"5s" env:"PP_TIMEOUT"`

	Log Logging `embed:"" prefix:"log-"`
}

func (c Client) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url %q must be http or https", c.Server)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// WebSocketURL derives the /ws endpoint from the server URL.
func (c Client) WebSocketURL() string {
	u, err := url.Parse(c.Server)
	if err != nil {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}
