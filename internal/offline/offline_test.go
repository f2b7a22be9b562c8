package offline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/database"
	"github.com/dukerupert/progresspoint/internal/server"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := OpenMirror(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// switchable serves the real router until it is switched off, after which
// every connection is refused at the transport level.
type switchable struct {
	ts     *httptest.Server
	online atomic.Bool
	srv    *server.Server
}

func newSwitchable(t *testing.T) *switchable {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &switchable{}
	s.srv = server.New(db, server.Options{
		Version: "test",
		Clock:   func() time.Time { return testNow },
	}, discardLogger())
	router := s.srv.Router()
	s.online.Store(true)
	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.online.Load() {
			hj, ok := w.(http.Hijacker)
			if ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
					return
				}
			}
			panic(http.ErrAbortHandler)
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(s.ts.Close)
	return s
}

func newTestCache(t *testing.T) (*Cache, *switchable) {
	t.Helper()
	s := newSwitchable(t)
	api := client.New(s.ts.URL, 2*time.Second)
	return NewCache(api, openTestMirror(t), func() time.Time { return testNow }, discardLogger()), s
}
