package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/progresspoint/internal/backup"
	"github.com/dukerupert/progresspoint/internal/offline"
	ws "github.com/dukerupert/progresspoint/internal/websocket"
)

type SyncCmd struct{}

func (c *SyncCmd) Run(a *app) error {
	report, err := offline.NewSyncer(a.cache).Sync(a.ctx)
	if err != nil {
		return fmt.Errorf("sync stopped after %d item(s): %w", report.Delivered(), err)
	}
	fmt.Fprintln(a.out, syncSummary(report))
	return nil
}

func syncSummary(r offline.Report) string {
	if r.Delivered() == 0 && r.Pending == 0 {
		return mutedStyle.Render("Nothing to sync.")
	}
	msg := okStyle.Render(fmt.Sprintf("Synced %d task(s), %d habit(s), %d check(s).", r.Tasks, r.Habits, r.Checks))
	if r.Pending > 0 {
		msg += "\n" + pendingStyle.Render(fmt.Sprintf("%d item(s) were rejected and stay pending, see the log.", r.Pending))
	}
	return msg
}

type WatchCmd struct{}

func (c *WatchCmd) Run(a *app) error {
	syncer := offline.NewSyncer(a.cache)
	w := &offline.Watcher{
		URL:    a.cfg.WebSocketURL(),
		Logger: a.logger,
		OnConnect: func(ctx context.Context) {
			a.logger.Info("connected", "server", a.cfg.Server)
			report, err := syncer.Sync(ctx)
			if err != nil {
				a.logger.Warn("sync interrupted", "error", err)
				return
			}
			if report.Delivered() > 0 || report.Pending > 0 {
				a.logger.Info("synced", "tasks", report.Tasks, "habits", report.Habits, "checks", report.Checks, "pending", report.Pending)
			}
		},
		OnMessage: func(msg ws.Message) {
			if msg.Type != ws.TypeBackupStatus {
				return
			}
			var s backup.Status
			if err := json.Unmarshal(msg.Data, &s); err != nil {
				a.logger.Debug("decode backup status", "error", err)
				return
			}
			a.logger.Info("backup", "state", s.State, "error", s.Error)
		},
	}
	a.logger.Info("watching", "url", w.URL)
	err := w.Run(a.ctx)
	if a.ctx.Err() != nil {
		return nil
	}
	return err
}
