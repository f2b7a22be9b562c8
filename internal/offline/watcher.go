package offline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/sethvargo/go-retry"

	ws "github.com/dukerupert/progresspoint/internal/websocket"
)

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = time.Minute
	dialTimeout      = 10 * time.Second
)

var errDisconnected = errors.New("websocket disconnected")

// Watcher keeps a websocket open to the server. Every successful connect,
// including the first, calls OnConnect; that is where queued writes are
// synced.
type Watcher struct {
	URL       string
	OnConnect func(ctx context.Context)
	OnMessage func(msg ws.Message)
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
}

func (w *Watcher) backoff() retry.Backoff {
	base, max := w.BaseDelay, w.MaxDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	if max <= 0 {
		max = defaultMaxDelay
	}
	return retry.WithCappedDuration(max, retry.WithJitterPercent(20, retry.NewExponential(base)))
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// Run connects and reconnects until ctx is done. The backoff restarts
// after every connection that was established.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		var conn *websocket.Conn
		err := retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
			dctx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()
			c, _, err := websocket.Dial(dctx, w.URL, nil)
			if err != nil {
				w.logger().Debug("server unreachable", "url", w.URL, "error", err)
				return retry.RetryableError(err)
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		err = w.serve(ctx, conn)
		if ctx.Err() != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return ctx.Err()
		}
		w.logger().Info("connection to server lost", "error", err)
	}
}

func (w *Watcher) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.CloseNow()
	w.logger().Info("connected to server", "url", w.URL)

	if w.OnConnect != nil {
		go w.OnConnect(ctx)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return errors.Join(errDisconnected, err)
		}
		var msg ws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger().Warn("bad frame from server", "error", err)
			continue
		}
		if w.OnMessage != nil {
			w.OnMessage(msg)
		}
	}
}
