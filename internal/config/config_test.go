package config

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, v any, args ...string) error {
	t.Helper()
	parser, err := kong.New(v, kong.Exit(func(int) { t.Fatal("kong tried to exit") }))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	return err
}

func TestServerDefaults(t *testing.T) {
	var s Server
	require.NoError(t, parse(t, &s))

	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "text", s.Log.Format)
	assert.Equal(t, 24*time.Hour, s.Backup.Interval)
	assert.Equal(t, 720*time.Hour, s.Backup.Retention)
	assert.Equal(t, 10*time.Second, s.ShutdownTimeout)

	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
	assert.False(t, s.Backup.Manager().Enabled())
}

func TestServerEnv(t *testing.T) {
	t.Setenv("PP_ADDR", "127.0.0.1:9000")
	t.Setenv("PP_TIMEZONE", "Europe/Berlin")
	t.Setenv("PP_LOG_FORMAT", "json")
	t.Setenv("PP_BACKUP_BUCKET", "snapshots")
	t.Setenv("PP_BACKUP_ACCESS_KEY", "ak")
	t.Setenv("PP_BACKUP_SECRET_KEY", "sk")
	t.Setenv("PP_BACKUP_PASSPHRASE", "pw")
	t.Setenv("PP_BACKUP_INTERVAL", "6h")

	var s Server
	require.NoError(t, parse(t, &s))

	assert.Equal(t, "127.0.0.1:9000", s.Addr)
	assert.Equal(t, "json", s.Log.Format)
	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	bc := s.Backup.Manager()
	assert.True(t, bc.Enabled())
	assert.Equal(t, "snapshots", bc.S3.Bucket)
	assert.Equal(t, 6*time.Hour, bc.Interval)
}

func TestServerFlagsOverride(t *testing.T) {
	var s Server
	require.NoError(t, parse(t, &s, "--addr=:7000", "--backup-prefix=pp", "--log-level=debug"))
	assert.Equal(t, ":7000", s.Addr)
	assert.Equal(t, "pp", s.Backup.Prefix)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestServerValidate(t *testing.T) {
	var s Server
	err := parse(t, &s, "--timezone=Mars/Olympus")
	assert.Error(t, err)

	s = Server{}
	err = parse(t, &s, "--backup-retention=-1h")
	assert.Error(t, err)

	s = Server{}
	err = parse(t, &s, "--log-level=loud")
	assert.Error(t, err, "enum should reject unknown levels")
}

func TestClient(t *testing.T) {
	var c Client
	require.NoError(t, parse(t, &c, "--server=https://pp.example.com:8443"))
	assert.Equal(t, "wss://pp.example.com:8443/ws", c.WebSocketURL())
	assert.Equal(t, 5*time.Second, c.Timeout)

	c = Client{}
	require.NoError(t, parse(t, &c))
	assert.Equal(t, "ws://localhost:8080/ws", c.WebSocketURL())

	c = Client{}
	assert.Error(t, parse(t, &c, "--server=ftp://example.com"))
}
