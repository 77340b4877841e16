// Package importer provides the bulk spreadsheet import engine for
// Fieldline. It has no UI dependencies and can be driven by any frontend.
package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies one of the importable record types.
type EntityType string

const (
	EntityClients   EntityType = "clients"
	EntityJobs      EntityType = "jobs"
	EntityEquipment EntityType = "equipment"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityClients, EntityJobs, EntityEquipment:
		return true
	}
	return false
}

// Row is one data record from the uploaded file, keyed by raw header.
// Headers with no value in the source line are absent, not empty.
type Row map[string]string

// RawTable is the parsed form of an uploaded spreadsheet.
// Header order is display order; row order is import order.
// It is never mutated after parsing.
type RawTable struct {
	Headers []string
	Rows    []Row
}

// FieldDefinition describes one canonical field of an entity type.
type FieldDefinition struct {
	Field    string   // canonical identifier, e.g. "scheduled_date"
	Label    string   // display name, e.g. "Scheduled Date"
	Aliases  []string // header spellings matched case-insensitively
	Required bool
}

// SkipField is the sentinel assignment that removes a header from a mapping.
const SkipField = "skip"

// ColumnMapping associates raw headers with canonical field identifiers.
// Invariant: a canonical field appears as a value at most once.
// Mappings have value semantics; Set returns a new mapping and never
// mutates its receiver, so a mapping can be threaded through the wizard
// steps and frozen at confirm time.
type ColumnMapping map[string]string

// Field returns the canonical field the header is mapped to, if any.
func (m ColumnMapping) Field(header string) (string, bool) {
	f, ok := m[header]
	return f, ok
}

// HeaderFor returns the header currently mapped to the canonical field.
func (m ColumnMapping) HeaderFor(field string) (string, bool) {
	for h, f := range m {
		if f == field {
			return h, true
		}
	}
	return "", false
}

// Set returns a copy of the mapping with header assigned to field.
//
// Assigning SkipField removes any existing assignment for the header.
// Assigning a field already held by another header unmaps that header
// first: last write wins, and the previous holder silently becomes
// unmapped. Callers rendering a mapping UI must re-read the whole
// mapping after every Set.
func (m ColumnMapping) Set(header, field string) ColumnMapping {
	next := make(ColumnMapping, len(m)+1)
	for h, f := range m {
		if h == header {
			continue
		}
		if field != SkipField && f == field {
			continue // reassignment: previous holder loses the field
		}
		next[h] = f
	}
	if field != SkipField && field != "" {
		next[header] = field
	}
	return next
}

// ValidationOutcome is the per-row result of validating one row against
// the current mapping. Derived, never stored; recomputed whenever the
// mapping changes.
type ValidationOutcome struct {
	RowIndex int    `json:"rowIndex"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// DuplicateSet flags rows that probably duplicate existing tenant
// records. Advisory only: flagged rows are still imported.
type DuplicateSet struct {
	Indices  map[int]bool `json:"indices"`
	Count    int          `json:"count"`
	Checking bool         `json:"checking"`
}

// RowError records the failure of a single row at commit time.
// Row is 1-based (first data row is 1).
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult is the terminal artifact of one import run. It is the
// only thing handed back to the surrounding UI; the session that
// produced it is discarded.
//
// Importing the same file twice creates duplicate records. Duplicate
// detection flags, it never deduplicates.
type ImportResult struct {
	Entity       EntityType    `json:"entity"`
	SuccessCount int           `json:"successCount"`
	FailedCount  int           `json:"failedCount"`
	Errors       []RowError    `json:"errors"`
	Duration     time.Duration `json:"-"`
}

// ImportPhase indicates where an import session currently is.
type ImportPhase string

const (
	PhaseMapping   ImportPhase = "mapping"
	PhasePreview   ImportPhase = "preview"
	PhaseImporting ImportPhase = "importing"
	PhaseComplete  ImportPhase = "complete"
)

// ImportProgress is a snapshot of a running import, published to
// progress listeners after every row.
type ImportProgress struct {
	SessionID  string      `json:"sessionId"`
	Entity     EntityType  `json:"entity"`
	Phase      ImportPhase `json:"phase"`
	TotalRows  int         `json:"totalRows"`
	CurrentRow int         `json:"currentRow"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
}

// Percent returns import progress as 0-100.
func (p ImportProgress) Percent() int {
	if p.TotalRows == 0 {
		return 0
	}
	return (p.CurrentRow * 100) / p.TotalRows
}

// ProgressCallback receives progress snapshots during an import run.
type ProgressCallback func(ImportProgress)

// ClientRecord is a normalized client row ready for persistence.
type ClientRecord struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	Zip     string
	Notes   string
}

// JobRecord is a normalized job row ready for persistence.
// ClientID is resolved best-effort from ClientName before insert.
type JobRecord struct {
	Title         string
	Description   string
	Status        string
	Priority      string
	ScheduledDate *time.Time
	ClientName    string
	ClientID      *uuid.UUID
	Address       string
	Notes         string
}

// EquipmentRecord is a normalized equipment row ready for persistence.
type EquipmentRecord struct {
	Name          string
	EquipmentType string
	SerialNumber  string
	Model         string
	Manufacturer  string
	InstallDate   *time.Time
	Status        string
	ClientName    string
	ClientID      *uuid.UUID
	Notes         string
}

// Store is the persistence collaborator. Implementations are expected
// to scope every operation to the given tenant.
type Store interface {
	InsertClient(ctx context.Context, tenantID uuid.UUID, rec ClientRecord) error
	InsertJob(ctx context.Context, tenantID uuid.UUID, rec JobRecord) error
	InsertEquipment(ctx context.Context, tenantID uuid.UUID, rec EquipmentRecord) error

	// FindClientIDByName returns the id of an existing client with the
	// given name, matched case-insensitively. ok is false when there is
	// no unambiguous match.
	FindClientIDByName(ctx context.Context, tenantID uuid.UUID, name string) (uuid.UUID, bool, error)
}

// Lookup is the existing-record lookup collaborator used only by the
// duplicate detector.
type Lookup interface {
	// ExistingKeys returns the duplicate-match keys of all persisted
	// records of the entity type for the tenant.
	ExistingKeys(ctx context.Context, tenantID uuid.UUID, entity EntityType) (map[string]bool, error)
}

// Notifier delivers downstream notifications. Failures are logged by
// the caller and never surface as import errors.
type Notifier interface {
	SendPortalInvite(ctx context.Context, tenantID uuid.UUID, email string) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) SendPortalInvite(context.Context, uuid.UUID, string) error { return nil }
