package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ExecDeps bundles the external collaborators an EntityDefinition needs
// at commit time.
type ExecDeps struct {
	Store    Store
	Notifier Notifier
	Log      *slog.Logger
}

// EntityDefinition is the closed per-entity-type variant: field list,
// normalization, duplicate keying, and persistence for one importable
// entity. The executor and detector dispatch through it instead of
// branching on entity type.
type EntityDefinition struct {
	Type   EntityType
	Label  string
	Fields []FieldDefinition

	// DuplicateKey derives the existing-record match key for a row, or
	// "" when the row has no usable key. Must match the key format the
	// Lookup collaborator produces for persisted records.
	DuplicateKey func(row Row, mapping ColumnMapping) string

	// BuildRecord normalizes a validated row into a typed record.
	BuildRecord func(row Row, mapping ColumnMapping) any

	// Insert persists one record. Returned errors are recorded against
	// the row and must already be operator-readable.
	Insert func(ctx context.Context, deps ExecDeps, tenantID uuid.UUID, record any) error

	// PostInsert runs after a successful insert for side effects whose
	// failure must not count against the row (e.g. portal invites).
	// Optional.
	PostInsert func(ctx context.Context, deps ExecDeps, tenantID uuid.UUID, record any)
}

var (
	registry   = make(map[EntityType]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the entity type is already registered.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Type))
	}
	registry[def.Type] = def
}

// Get returns an entity definition by type.
// Returns false if not found.
func Get(entity EntityType) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[entity]
	return def, ok
}

// All returns every registered entity definition in a fixed order
// (clients, jobs, equipment) for consistent display.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	order := []EntityType{EntityClients, EntityJobs, EntityEquipment}
	result := make([]EntityDefinition, 0, len(registry))
	for _, t := range order {
		if def, ok := registry[t]; ok {
			result = append(result, def)
		}
	}
	return result
}

// FieldsFor returns the canonical field list for an entity type.
// Pure lookup; the returned slice must not be mutated.
func FieldsFor(entity EntityType) ([]FieldDefinition, bool) {
	def, ok := Get(entity)
	if !ok {
		return nil, false
	}
	return def.Fields, true
}

// Clear removes all registered entities. Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[EntityType]EntityDefinition)
}
