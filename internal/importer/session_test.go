package importer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

var registerTestEntity sync.Once

// sessionService wires a Service over fakes, registering the clients
// test definition on first use.
func sessionService(store *fakeStore, lookup Lookup) *Service {
	registerTestEntity.Do(func() {
		Register(execTestDef())
	})
	if lookup == nil {
		lookup = &fakeLookup{}
	}
	return NewService(store, lookup, nil, nil, nil)
}

const clientsCSV = "Name,Email\nAcme,info@acme.com\nBolt,ops@bolt.io\n,missing@name.com\n"

func TestCreateSession(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)

	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if view.RowCount != 3 {
		t.Errorf("expected 3 rows, got %d", view.RowCount)
	}
	if view.Mapping["Name"] != "name" || view.Mapping["Email"] != "email" {
		t.Errorf("expected auto-detected mapping, got %v", view.Mapping)
	}
	if len(view.MissingRequired) != 0 {
		t.Errorf("expected no missing required fields, got %v", view.MissingRequired)
	}
	if view.ValidRows != 2 || view.InvalidRows != 1 {
		t.Errorf("expected 2 valid / 1 invalid, got %d/%d", view.ValidRows, view.InvalidRows)
	}
	if view.Phase != PhasePreview {
		t.Errorf("expected preview phase, got %s", view.Phase)
	}
}

func TestCreateSession_NoHeaderRow(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)

	_, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "empty.csv", nil)
	if err == nil {
		t.Fatal("expected an error for a file with no header row")
	}
	if !strings.Contains(err.Error(), "no data") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateSession_UnknownEntity(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)

	_, err := svc.CreateSession(context.Background(), uuid.New(), EntityType("widgets"), "w.csv", []byte("A\n1\n"))
	if err == nil {
		t.Fatal("expected an error for an unregistered entity")
	}
}

func TestSetMapping(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)
	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	t.Run("reassign revalidates", func(t *testing.T) {
		// Mapping the name column to skip makes every row invalid.
		next, err := svc.SetMapping(view.ID, "Name", SkipField)
		if err != nil {
			t.Fatalf("SetMapping failed: %v", err)
		}
		if next.ValidRows != 0 {
			t.Errorf("expected 0 valid rows with name unmapped, got %d", next.ValidRows)
		}
		if len(next.MissingRequired) != 1 || next.MissingRequired[0] != "name" {
			t.Errorf("expected name missing, got %v", next.MissingRequired)
		}
		if next.Phase != PhaseMapping {
			t.Errorf("expected mapping phase, got %s", next.Phase)
		}

		// Restore.
		if _, err := svc.SetMapping(view.ID, "Name", "name"); err != nil {
			t.Fatalf("restore failed: %v", err)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		if _, err := svc.SetMapping(view.ID, "Name", "flavor"); err == nil {
			t.Error("expected an error for an unknown field")
		}
	})

	t.Run("unknown header rejected", func(t *testing.T) {
		if _, err := svc.SetMapping(view.ID, "Nope", "name"); err == nil {
			t.Error("expected an error for an unknown column")
		}
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		if _, err := svc.SetMapping("no-such-session", "Name", "name"); err == nil {
			t.Error("expected an error for an unknown session")
		}
	})
}

func TestConfirm_BlockedOnMissingRequired(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)

	// No name-ish column at all: the required field cannot be mapped.
	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "c.csv", []byte("Email\na@b.com\n"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	err = svc.Confirm(context.Background(), view.ID)
	if err == nil {
		t.Fatal("expected Confirm to refuse with a required field unmapped")
	}
	if !strings.Contains(err.Error(), "required fields not mapped") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("expected the missing field to be named: %v", err)
	}
}

func TestConfirm_RunsImport(t *testing.T) {
	store := newFakeStore()
	svc := sessionService(store, nil)

	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := svc.Confirm(context.Background(), view.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	result, err := svc.Result(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if result.SuccessCount != 2 {
		t.Errorf("expected 2 imported, got %d", result.SuccessCount)
	}
	if result.FailedCount != 1 {
		t.Errorf("expected 1 failed (empty name), got %d", result.FailedCount)
	}
	if result.Errors[0].Row != 3 {
		t.Errorf("expected failure on row 3, got %d", result.Errors[0].Row)
	}
	if len(store.clients) != 2 {
		t.Errorf("expected 2 stored clients, got %d", len(store.clients))
	}

	t.Run("mapping frozen after confirm", func(t *testing.T) {
		_, err := svc.SetMapping(view.ID, "Name", SkipField)
		if err == nil {
			t.Fatal("expected SetMapping to fail after confirm")
		}
		if !strings.Contains(err.Error(), "frozen") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("double confirm rejected", func(t *testing.T) {
		if err := svc.Confirm(context.Background(), view.ID); err == nil {
			t.Error("expected second Confirm to fail")
		}
	})
}

func TestSubscribeProgress(t *testing.T) {
	store := newFakeStore()
	svc := sessionService(store, nil)

	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ch, err := svc.SubscribeProgress(view.ID)
	if err != nil {
		t.Fatalf("SubscribeProgress failed: %v", err)
	}

	if err := svc.Confirm(context.Background(), view.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	var last ImportProgress
	for p := range ch {
		last = p
	}

	if last.Phase != PhaseImporting {
		t.Errorf("expected importing snapshots, got %s", last.Phase)
	}
	if last.CurrentRow != 3 {
		t.Errorf("expected final snapshot at row 3, got %d", last.CurrentRow)
	}
}

func TestResult_NotConfirmed(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)

	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err := svc.Result(context.Background(), view.ID); err == nil {
		t.Error("expected Result to fail before confirm")
	}
}

func TestPreview_DuplicateAnnotations(t *testing.T) {
	store := newFakeStore()
	lookup := &fakeLookup{keys: map[string]bool{"acme|info@acme.com": true}}
	svc := sessionService(store, lookup)

	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rows, _, err := svc.Preview(context.Background(), view.ID, 0, 10)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2].Valid {
		t.Error("expected row 3 to be invalid")
	}

	// The duplicate check runs in the background; poll until it lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, v, err := svc.Preview(context.Background(), view.ID, 0, 10)
		if err != nil {
			t.Fatalf("Preview failed: %v", err)
		}
		if !v.Duplicates.Checking && v.Duplicates.Count > 0 {
			if !rows[0].Duplicate {
				t.Error("expected row 1 flagged as duplicate")
			}
			if rows[1].Duplicate {
				t.Error("expected row 2 not flagged")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("duplicate check did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPreview_Pagination(t *testing.T) {
	svc := sessionService(newFakeStore(), nil)

	view, err := svc.CreateSession(context.Background(), uuid.New(), EntityClients, "clients.csv", []byte(clientsCSV))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rows, _, err := svc.Preview(context.Background(), view.ID, 1, 1)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].RowIndex != 1 {
		t.Errorf("expected row index 1, got %d", rows[0].RowIndex)
	}
	if rows[0].Row["Name"] != "Bolt" {
		t.Errorf("expected Bolt, got %q", rows[0].Row["Name"])
	}
}
