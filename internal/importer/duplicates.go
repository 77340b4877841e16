package importer

// duplicates.go cross-references parsed rows against existing tenant
// records. Detection is advisory: flagged rows are still imported, and
// a failed lookup degrades to "no duplicates found" rather than an
// operator-visible error.
//
// Match keys are heuristic by design (two distinct clients can share a
// name and email); tightening them is a product decision, not an
// engine one.

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Detector flags probable duplicates of already-persisted records.
type Detector struct {
	lookup Lookup
	log    *slog.Logger
}

// NewDetector creates a detector over the existing-record lookup.
func NewDetector(lookup Lookup, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{lookup: lookup, log: log}
}

// Check compares every row's duplicate key against the tenant's
// persisted records and returns the flagged row indices. It runs
// synchronously; Start wraps it in a goroutine for the preview step.
func (d *Detector) Check(ctx context.Context, tenantID uuid.UUID, def EntityDefinition, table RawTable, mapping ColumnMapping) DuplicateSet {
	result := DuplicateSet{Indices: make(map[int]bool)}

	existing, err := d.lookup.ExistingKeys(ctx, tenantID, def.Type)
	if err != nil {
		d.log.Warn("duplicate lookup failed, treating all rows as new",
			"entity", def.Type, "error", err)
		return result
	}
	if len(existing) == 0 {
		return result
	}

	for i, row := range table.Rows {
		key := def.DuplicateKey(row, mapping)
		if key == "" {
			continue
		}
		if existing[key] {
			result.Indices[i] = true
			result.Count++
		}
	}
	return result
}

// Start runs Check in the background and delivers the result on the
// returned channel. It must not block the mapping step; the channel is
// buffered so the result can arrive after the preview has rendered.
func (d *Detector) Start(ctx context.Context, tenantID uuid.UUID, def EntityDefinition, table RawTable, mapping ColumnMapping) <-chan DuplicateSet {
	ch := make(chan DuplicateSet, 1)
	go func() {
		defer close(ch)
		ch <- d.Check(ctx, tenantID, def, table, mapping)
	}()
	return ch
}

// DuplicateKeyClients builds the client match key: normalized
// name + email. Returns "" when the name is absent.
func DuplicateKeyClients(row Row, mapping ColumnMapping) string {
	name := strings.ToLower(MappedValue(row, mapping, "name"))
	if name == "" {
		return ""
	}
	email := strings.ToLower(MappedValue(row, mapping, "email"))
	return name + "|" + email
}

// DuplicateKeyJobs builds the job match key: normalized title +
// scheduled date (YYYY-MM-DD, empty when unparseable).
func DuplicateKeyJobs(row Row, mapping ColumnMapping) string {
	title := strings.ToLower(MappedValue(row, mapping, "title"))
	if title == "" {
		return ""
	}
	date := ""
	if t, ok := NormalizeDate(MappedValue(row, mapping, "scheduled_date")); ok {
		date = t.Format("2006-01-02")
	}
	return title + "|" + date
}

// DuplicateKeyEquipment builds the equipment match key: normalized
// serial number. Rows without a serial are never flagged.
func DuplicateKeyEquipment(row Row, mapping ColumnMapping) string {
	return strings.ToLower(MappedValue(row, mapping, "serial_number"))
}
