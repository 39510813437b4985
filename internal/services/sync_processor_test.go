package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"
	"tourledger/internal/sheets/memory"
	"tourledger/internal/storage"
)

// flakyMirror fails every copy until healed.
type flakyMirror struct {
	*memory.Store
	err error
}

func (m *flakyMirror) MirrorShow(ctx context.Context, s core.Show) error {
	if m.err != nil {
		return m.err
	}
	return m.Store.MirrorShow(ctx, s)
}

func newSyncFixture(t *testing.T) (*storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo, memory.New()
}

func TestNewSyncProcessor_DefaultBatchSize(t *testing.T) {
	p := NewSyncProcessor(nil, nil, SyncProcessorConfig{})
	if p.config.BatchSize != DefaultSyncProcessorConfig().BatchSize {
		t.Errorf("expected default batch size, got %d", p.config.BatchSize)
	}
}

func TestSyncProcessor_ProcessBatchCopiesEveryTable(t *testing.T) {
	repo, mirror := newSyncFixture(t)
	ctx := context.Background()
	seedTour(t, repo)
	posted, err := repo.PostSettlement(ctx, core.Settlement{ShowID: "NYC-2025-01", CashDueToArtist: 535218.75}, time.Now())
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	p := NewSyncProcessor(repo, mirror, SyncProcessorConfig{BatchSize: 2})
	total := 0
	for i := 0; i < 5; i++ {
		n, err := p.ProcessBatch(ctx)
		if err != nil {
			t.Fatalf("process batch: %v", err)
		}
		total += n
	}
	// 1 show + 1 revenue + 3 expenses + 1 settlement
	if total != 6 {
		t.Fatalf("synced %d records, want 6", total)
	}

	shows, _ := mirror.FindShows(ctx, "NYC-2025-01")
	exps, _ := mirror.ListExpenses(ctx, "NYC-2025-01")
	settlements, _ := mirror.ListSettlements(ctx)
	if len(shows) != 1 || len(exps) != 3 || len(settlements) != 1 {
		t.Fatalf("mirror contents: shows=%d expenses=%d settlements=%d", len(shows), len(exps), len(settlements))
	}
	if settlements[0].ID != posted.ID {
		t.Fatalf("mirrored settlement id = %q, want %q", settlements[0].ID, posted.ID)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %v %v", pending, err)
	}
}

func TestSyncProcessor_FailureIsRetried(t *testing.T) {
	repo, _ := newSyncFixture(t)
	ctx := context.Background()
	show, err := repo.CreateShow(ctx, core.Show{ShowID: "LA-2025-02"})
	if err != nil {
		t.Fatalf("create show: %v", err)
	}

	mirror := &flakyMirror{Store: memory.New(), err: errors.New("rate limited")}
	p := NewSyncProcessor(repo, mirror, DefaultSyncProcessorConfig())

	if err := p.SyncRecord(ctx, ports.TableShows, show.ID); !errors.Is(err, ErrCopyFailed) {
		t.Fatalf("expected ErrCopyFailed, got %v", err)
	}
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("expected entry kept with one attempt, got %+v %v", pending, err)
	}

	mirror.err = nil
	n, err := p.ProcessBatch(ctx)
	if err != nil || n != 1 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}
	got, err := mirror.GetShow(ctx, show.ID)
	if err != nil || got.ShowID != "LA-2025-02" {
		t.Fatalf("mirrored show: %+v %v", got, err)
	}
}

func TestSyncProcessor_SkipsRecordsWithoutPendingEntry(t *testing.T) {
	repo, mirror := newSyncFixture(t)
	ctx := context.Background()
	p := NewSyncProcessor(repo, mirror, DefaultSyncProcessorConfig())

	if err := p.SyncRecord(ctx, ports.TableExpenses, "recmissing"); err != nil {
		t.Fatalf("never enqueued record: %v", err)
	}
	if err := p.SyncRecord(ctx, "tickets", "rec1"); err != nil {
		t.Fatalf("unknown table: %v", err)
	}
	if exps, _ := mirror.ListExpenses(ctx, ""); len(exps) != 0 {
		t.Fatalf("mirror should be empty, got %+v", exps)
	}
}

func TestSyncProcessor_SyncedRecordIsCopiedOnce(t *testing.T) {
	repo, mirror := newSyncFixture(t)
	ctx := context.Background()
	seedTour(t, repo)
	p := NewSyncProcessor(repo, mirror, SyncProcessorConfig{BatchSize: 10})

	if _, err := p.ProcessBatch(ctx); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	shows, _ := repo.FindShows(ctx, "NYC-2025-01")
	exps, _ := repo.ListExpenses(ctx, "NYC-2025-01")
	// Messages published before the sweep arrive afterwards.
	redelivered := []struct{ table, id string }{
		{ports.TableShows, shows[0].ID},
		{ports.TableExpenses, exps[0].ID},
	}
	for _, m := range redelivered {
		if err := p.SyncRecord(ctx, m.table, m.id); err != nil {
			t.Fatalf("sync %s again: %v", m.table, err)
		}
	}

	replicaShows, _ := mirror.FindShows(ctx, "NYC-2025-01")
	replicaExps, _ := mirror.ListExpenses(ctx, "NYC-2025-01")
	if len(replicaShows) != 1 || len(replicaExps) != len(exps) {
		t.Fatalf("replica shows=%d expenses=%d, want 1 and %d", len(replicaShows), len(replicaExps), len(exps))
	}
}

func TestSyncProcessor_ParkedRecordIsSkipped(t *testing.T) {
	repo, _ := newSyncFixture(t)
	ctx := context.Background()
	show, err := repo.CreateShow(ctx, core.Show{ShowID: "LA-2025-02"})
	if err != nil {
		t.Fatalf("create show: %v", err)
	}

	mirror := &flakyMirror{Store: memory.New(), err: errors.New("rate limited")}
	p := NewSyncProcessor(repo, mirror, DefaultSyncProcessorConfig())
	for i := 0; i < storage.MaxSyncAttempts; i++ {
		if err := p.SyncRecord(ctx, ports.TableShows, show.ID); !errors.Is(err, ErrCopyFailed) {
			t.Fatalf("attempt %d: expected ErrCopyFailed, got %v", i+1, err)
		}
	}

	mirror.err = nil
	if err := p.SyncRecord(ctx, ports.TableShows, show.ID); err != nil {
		t.Fatalf("parked record: %v", err)
	}
	if _, err := mirror.GetShow(ctx, show.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("parked record should not be copied, got %v", err)
	}
	if status, _ := repo.SyncStatus(ctx, ports.TableShows, show.ID); status != storage.SyncError {
		t.Fatalf("status = %q, want error", status)
	}
}
