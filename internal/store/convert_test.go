package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestToPgText(t *testing.T) {
	if got := toPgText(""); got.Valid {
		t.Error("expected empty string to map to NULL")
	}

	got := toPgText("hello")
	if !got.Valid || got.String != "hello" {
		t.Errorf("expected valid 'hello', got %+v", got)
	}
}

func TestToPgDate(t *testing.T) {
	if got := toPgDate(nil); got.Valid {
		t.Error("expected nil to map to NULL")
	}

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	got := toPgDate(&now)
	if !got.Valid || !got.Time.Equal(now) {
		t.Errorf("expected valid %v, got %+v", now, got)
	}
}

func TestToPgUUID(t *testing.T) {
	id := uuid.New()

	got := toPgUUID(id)
	if !got.Valid {
		t.Fatal("expected valid UUID")
	}
	if uuid.UUID(got.Bytes) != id {
		t.Errorf("expected %s, got %s", id, uuid.UUID(got.Bytes))
	}
}

func TestToPgUUIDPtr(t *testing.T) {
	if got := toPgUUIDPtr(nil); got.Valid {
		t.Error("expected nil to map to NULL")
	}

	id := uuid.New()
	got := toPgUUIDPtr(&id)
	if !got.Valid || uuid.UUID(got.Bytes) != id {
		t.Errorf("expected valid %s, got %+v", id, got)
	}
}
