package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"thepipe/internal/geometry"
	"thepipe/internal/journal"
	"thepipe/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != "001_initial" {
		t.Fatalf("unexpected schema version %q", version)
	}

	// Reopening must not reapply migrations.
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	again, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
}

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	entries := []journal.Entry{
		{Pipe: "studio", Direction: journal.DirectionPush, PushID: "p1", Outcome: journal.OutcomeSent, Nodes: 3,
			Kinds: journal.KindCounts(map[geometry.Kind]int{geometry.KindLine: 2}), PayloadBytes: 120},
		{Pipe: "studio", Direction: journal.DirectionPull, Outcome: journal.OutcomeEmpty},
		{Pipe: "other", Direction: journal.DirectionReceive, SessionID: "s1", Outcome: journal.OutcomeRolledBack, Error: "boom"},
	}
	for _, e := range entries {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, "studio", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 studio entries, got %d", len(got))
	}
	if got[0].Direction != journal.DirectionPull || got[1].PushID != "p1" {
		t.Fatalf("entries not newest first: %+v", got)
	}
	if got[1].Kinds["line"] != 2 {
		t.Fatalf("kinds not round-tripped: %+v", got[1].Kinds)
	}
	if got[1].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be stamped")
	}

	all, err := store.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("Recent all: %v", err)
	}
	if len(all) != 3 || all[0].Error != "boom" {
		t.Fatalf("unexpected entries: %+v", all)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[journal.DirectionReceive][journal.OutcomeRolledBack] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := store.Record(ctx, journal.Entry{Direction: journal.DirectionPush}); err == nil {
		t.Fatal("expected error for entry without pipe")
	}
}

func TestReceiveObjectsReplaced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	first := []journal.ObjectRef{{Kind: geometry.KindLine, ID: "a"}, {Kind: geometry.KindArc, ID: "b"}}
	if err := store.ReplaceReceive(ctx, "studio", "s1", first); err != nil {
		t.Fatalf("ReplaceReceive: %v", err)
	}
	second := []journal.ObjectRef{{Kind: geometry.KindMesh, ID: "c"}}
	if err := store.ReplaceReceive(ctx, "studio", "s2", second); err != nil {
		t.Fatalf("ReplaceReceive: %v", err)
	}

	got, err := store.PreviousReceive(ctx, "studio")
	if err != nil {
		t.Fatalf("PreviousReceive: %v", err)
	}
	if len(got) != 1 || got[0] != second[0] {
		t.Fatalf("unexpected refs: %+v", got)
	}
	none, err := store.PreviousReceive(ctx, "unknown")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no refs, got %+v err=%v", none, err)
	}
}

func TestPruneAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if _, err := store.Record(ctx, journal.Entry{Pipe: "p", Direction: journal.DirectionPush, Outcome: journal.OutcomeSent, CreatedAt: old}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := store.Record(ctx, journal.Entry{Pipe: "p", Direction: journal.DirectionPush, Outcome: journal.OutcomeSent}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	removed, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("pruned %d, want 1", removed)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.Exists || !health.Readable || !health.IntegrityCheck || health.TotalEntries != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.Path != filepath.Join(testsupport.BaseDir(cfg), "state", "journal.db") {
		t.Fatalf("unexpected path %q", health.Path)
	}
}
