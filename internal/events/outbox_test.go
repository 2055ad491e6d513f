package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithExec(mock)

	mock.ExpectExec("INSERT INTO outbox").WithArgs(pgxmock.AnyArg(), "lead-created", pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.Publish(context.Background(), "lead-created", map[string]string{"id": "l1"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "type", "payload", "created_at"}).AddRow(id, "lead-created", []byte(`{"id":"l1"}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || string(entries[0].Payload) != `{"id":"l1"}` {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOutboxStoreRejectsUnmarshalablePayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	if err := newOutboxStoreWithExec(mock).Publish(context.Background(), "lead-created", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database calls: %v", err)
	}
}

type memoryPending struct {
	entries   []OutboxEntry
	delivered map[uuid.UUID]bool
}

func (m *memoryPending) FetchPending(_ context.Context, limit int32) ([]OutboxEntry, error) {
	var out []OutboxEntry
	for _, e := range m.entries {
		if !m.delivered[e.ID] && int32(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryPending) MarkDelivered(_ context.Context, id uuid.UUID) (bool, error) {
	if m.delivered[id] {
		return false, nil
	}
	m.delivered[id] = true
	return true, nil
}

type flakyHandler struct {
	failType string
	handled  []string
}

func (h *flakyHandler) Handle(_ context.Context, entry OutboxEntry) error {
	if entry.Type == h.failType {
		return errors.New("broker unavailable")
	}
	h.handled = append(h.handled, entry.Type)
	return nil
}

func TestDelivererLeavesFailedEntriesPending(t *testing.T) {
	store := &memoryPending{
		entries: []OutboxEntry{
			{ID: uuid.New(), Type: "lead-created"},
			{ID: uuid.New(), Type: "lead-updated"},
			{ID: uuid.New(), Type: "lead-deleted"},
		},
		delivered: map[uuid.UUID]bool{},
	}
	handler := &flakyHandler{failType: "lead-updated"}
	d := NewDeliverer(store, handler, logging.NewWithWriter("error", io.Discard)).WithBatchSize(10)

	if got := d.drain(context.Background()); got != 2 {
		t.Fatalf("expected 2 delivered, got %d", got)
	}
	pending, _ := store.FetchPending(context.Background(), 10)
	if len(pending) != 1 || pending[0].Type != "lead-updated" {
		t.Fatalf("expected only the failed entry to remain, got %#v", pending)
	}

	handler.failType = ""
	if got := d.drain(context.Background()); got != 1 {
		t.Fatalf("expected retry to deliver 1, got %d", got)
	}
}
