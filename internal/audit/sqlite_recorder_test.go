package audit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/timgst1/aegis/internal/audit"
	"github.com/timgst1/aegis/internal/authz"
	"github.com/timgst1/aegis/internal/storage/sqlite"
)

func newRecorder(t *testing.T) *audit.SQLiteRecorder {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := sqlite.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return audit.NewSQLiteRecorder(db)
}

func TestRecordAndRecent(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first := audit.Entry{
		At:      base,
		Status:  "denied",
		Subject: "ServiceAccount:demo/my-pod-sa",
		Action:  authz.Action{Verb: "delete", Resource: "pods", Namespace: "demo"},
		Reason:  "no rule grants verb=delete on pods in namespace=demo for subject=ServiceAccount:demo/my-pod-sa",
	}
	second := audit.Entry{
		At:      base.Add(time.Second),
		Status:  "allowed",
		Subject: "ServiceAccount:demo/my-pod-sa",
		Action:  authz.Action{Verb: "get", Resource: "pods", Namespace: "demo"},
		Reason:  "role demo/pod-reader via rolebinding demo/pod-reader grants verb=get on pods",
	}

	if err := r.Record(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := r.Record(ctx, second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	entries, err := r.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Status != "allowed" || entries[1].Status != "denied" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Status, entries[1].Status)
	}
	if entries[0].ID == "" {
		t.Fatalf("expected generated id")
	}
	if entries[0].Action.Verb != "get" || entries[0].Action.Resource != "pods" {
		t.Fatalf("unexpected action: %+v", entries[0].Action)
	}
	if !entries[0].At.Equal(second.At) {
		t.Fatalf("expected timestamp %v, got %v", second.At, entries[0].At)
	}
}

func TestRecent_LimitDefaultsWhenNonPositive(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	if err := r.Record(ctx, audit.Entry{Status: "allowed", Action: authz.Action{Verb: "get", Resource: "pods"}, Reason: "r"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := r.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}
