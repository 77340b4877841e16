package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeLookup struct {
	keys map[string]bool
	err  error
}

func (f *fakeLookup) ExistingKeys(ctx context.Context, tenantID uuid.UUID, entity EntityType) (map[string]bool, error) {
	return f.keys, f.err
}

func clientTestDef() EntityDefinition {
	return EntityDefinition{
		Type: EntityClients,
		Fields: []FieldDefinition{
			{Field: "name", Required: true, Aliases: []string{"name"}},
			{Field: "email", Aliases: []string{"email"}},
		},
		DuplicateKey: DuplicateKeyClients,
	}
}

func TestDetectorCheck(t *testing.T) {
	table := RawTable{
		Headers: []string{"Name", "Email"},
		Rows: []Row{
			{"Name": "Acme", "Email": "info@acme.com"},
			{"Name": "Bolt", "Email": "ops@bolt.io"},
			{"Name": "ACME", "Email": "INFO@ACME.COM"}, // case differs, same key
		},
	}
	mapping := ColumnMapping{"Name": "name", "Email": "email"}

	lookup := &fakeLookup{keys: map[string]bool{
		"acme|info@acme.com": true,
	}}
	d := NewDetector(lookup, nil)

	set := d.Check(context.Background(), uuid.New(), clientTestDef(), table, mapping)

	if set.Count != 2 {
		t.Errorf("expected 2 duplicates, got %d", set.Count)
	}
	if !set.Indices[0] || !set.Indices[2] {
		t.Errorf("expected rows 0 and 2 flagged, got %v", set.Indices)
	}
	if set.Indices[1] {
		t.Error("expected row 1 not flagged")
	}
}

func TestDetectorCheck_LookupFailureDegradesToEmpty(t *testing.T) {
	table := RawTable{
		Headers: []string{"Name"},
		Rows:    []Row{{"Name": "Acme"}},
	}
	lookup := &fakeLookup{err: errors.New("connection refused")}
	d := NewDetector(lookup, nil)

	set := d.Check(context.Background(), uuid.New(), clientTestDef(), table, ColumnMapping{"Name": "name"})

	if set.Count != 0 || len(set.Indices) != 0 {
		t.Errorf("expected empty set on lookup failure, got %+v", set)
	}
}

func TestDetectorCheck_KeylessRowsNeverFlagged(t *testing.T) {
	table := RawTable{
		Headers: []string{"Name", "Email"},
		Rows:    []Row{{"Email": "info@acme.com"}}, // no name, no key
	}
	lookup := &fakeLookup{keys: map[string]bool{"|info@acme.com": true}}
	d := NewDetector(lookup, nil)

	set := d.Check(context.Background(), uuid.New(), clientTestDef(), table, ColumnMapping{"Name": "name", "Email": "email"})

	if set.Count != 0 {
		t.Errorf("expected no flags for keyless rows, got %d", set.Count)
	}
}

func TestDetectorStart(t *testing.T) {
	table := RawTable{
		Headers: []string{"Name"},
		Rows:    []Row{{"Name": "Acme"}},
	}
	lookup := &fakeLookup{keys: map[string]bool{"acme|": true}}
	d := NewDetector(lookup, nil)

	ch := d.Start(context.Background(), uuid.New(), clientTestDef(), table, ColumnMapping{"Name": "name"})

	set, ok := <-ch
	if !ok {
		t.Fatal("expected a result on the channel")
	}
	if set.Count != 1 {
		t.Errorf("expected 1 duplicate, got %d", set.Count)
	}
	if _, open := <-ch; open {
		t.Error("expected channel to close after delivering the result")
	}
}

func TestDuplicateKeys(t *testing.T) {
	t.Run("clients", func(t *testing.T) {
		mapping := ColumnMapping{"Name": "name", "Email": "email"}

		key := DuplicateKeyClients(Row{"Name": "Acme Co", "Email": "Info@Acme.com"}, mapping)
		if key != "acme co|info@acme.com" {
			t.Errorf("got %q", key)
		}

		if key := DuplicateKeyClients(Row{"Email": "x@y.com"}, mapping); key != "" {
			t.Errorf("expected empty key without name, got %q", key)
		}
	})

	t.Run("jobs", func(t *testing.T) {
		mapping := ColumnMapping{"Title": "title", "Date": "scheduled_date"}

		key := DuplicateKeyJobs(Row{"Title": "AC Repair", "Date": "3/15/2024"}, mapping)
		if key != "ac repair|2024-03-15" {
			t.Errorf("got %q", key)
		}

		// Unparseable date leaves the date part empty.
		key = DuplicateKeyJobs(Row{"Title": "AC Repair", "Date": "soonish"}, mapping)
		if key != "ac repair|" {
			t.Errorf("got %q", key)
		}

		if key := DuplicateKeyJobs(Row{"Date": "3/15/2024"}, mapping); key != "" {
			t.Errorf("expected empty key without title, got %q", key)
		}
	})

	t.Run("equipment", func(t *testing.T) {
		mapping := ColumnMapping{"Serial": "serial_number"}

		if key := DuplicateKeyEquipment(Row{"Serial": "SN-001"}, mapping); key != "sn-001" {
			t.Errorf("got %q", key)
		}
		if key := DuplicateKeyEquipment(Row{}, mapping); key != "" {
			t.Errorf("expected empty key without serial, got %q", key)
		}
	})
}
