package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"chikabot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func textMsg(sender, mid string) *domain.ParsedMessage {
	text := "hello"
	return &domain.ParsedMessage{SenderID: sender, MessageID: mid, Text: &text}
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Record(ctx, "evt-1", textMsg("U1", "m1"), domain.DeliveryOutcome{
		Delivered:         true,
		ExternalMessageID: "ext-1",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	err = s.Record(ctx, "evt-2", textMsg("U2", "m2"), domain.DeliveryOutcome{
		Error: "HTTP 400: bad recipient",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	records, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	// Most recent first.
	if records[0].EventID != "evt-2" {
		t.Errorf("records[0].EventID = %q, want evt-2", records[0].EventID)
	}
	if records[0].Delivered {
		t.Error("evt-2 should not be marked delivered")
	}
	if records[0].Error != "HTTP 400: bad recipient" {
		t.Errorf("records[0].Error = %q", records[0].Error)
	}
	if !records[1].Delivered || records[1].ExternalMessageID != "ext-1" {
		t.Errorf("evt-1 record = %+v", records[1])
	}
}

func TestRecord_NilMessage(t *testing.T) {
	s := newTestStore(t)

	err := s.Record(context.Background(), "evt-1", nil, domain.DeliveryOutcome{Error: "generator: timeout"})
	if err != nil {
		t.Fatalf("Record with nil message: %v", err)
	}

	records, err := s.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].MessageID != "" || records[0].SenderID != "" {
		t.Errorf("got %+v, want one record with empty message fields", records)
	}
}

func TestRecent_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, "evt", textMsg("U1", "m"), domain.DeliveryOutcome{Delivered: true}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	records, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}
