package store

import (
	"testing"
	"time"

	"github.com/dukerupert/progresspoint/internal/database"
	"github.com/dukerupert/progresspoint/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupLifecycle(t *testing.T) {
	bs := setupBackupTestDB(t)

	started := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	b, err := bs.Create("backup-1.db.enc", "backups/backup-1.db.enc", started)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want pending", b.Status)
	}

	if err := bs.UpdateStatus(b.ID, model.BackupStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := bs.MarkCompleted(b.ID, 4096, started.Add(time.Minute)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if got.Status != model.BackupStatusCompleted || got.SizeBytes != 4096 || got.CompletedAt == nil {
		t.Errorf("backup = %+v", got)
	}

	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest == nil || latest.ID != b.ID {
		t.Errorf("latest = %+v, want id %d", latest, b.ID)
	}
}

func TestBackupFailedRecordKeepsMessage(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("x.db.enc", "backups/x.db.enc", time.Now())
	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "upload refused"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(b.ID)
	if got.ErrorMessage != "upload refused" {
		t.Errorf("error_message = %q", got.ErrorMessage)
	}

	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest != nil {
		t.Errorf("expected no completed backup, got %+v", latest)
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)

	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	bs.Create("old.db.enc", "backups/old.db.enc", now.AddDate(0, 0, -40))
	bs.Create("new.db.enc", "backups/new.db.enc", now.AddDate(0, 0, -1))

	keys, err := bs.DeleteOlderThan(now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Errorf("deleted keys = %v", keys)
	}

	remaining, err := bs.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Filename != "new.db.enc" {
		t.Errorf("remaining = %+v", remaining)
	}
}
