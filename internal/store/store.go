// Package store provides the PostgreSQL persistence and existing-record
// lookup adapters behind the import engine's Store and Lookup
// interfaces. Every query is scoped to a tenant.
package store

import (
	"context"
	"fmt"

	"github.com/fieldline/fieldline/internal/importer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements importer.Store and importer.Lookup over a pgx
// pool or transaction.
type Postgres struct {
	db DBTX
}

// New creates a Postgres store.
func New(db DBTX) *Postgres {
	return &Postgres{db: db}
}

const insertClientSQL = `
INSERT INTO clients (id, tenant_id, name, email, phone, address, city, state, zip, notes)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertClient persists one client record for the tenant.
func (p *Postgres) InsertClient(ctx context.Context, tenantID uuid.UUID, rec importer.ClientRecord) error {
	_, err := p.db.Exec(ctx, insertClientSQL,
		toPgUUID(tenantID),
		rec.Name,
		toPgText(rec.Email),
		toPgText(rec.Phone),
		toPgText(rec.Address),
		toPgText(rec.City),
		toPgText(rec.State),
		toPgText(rec.Zip),
		toPgText(rec.Notes),
	)
	if err != nil {
		return friendlyError("save client", err)
	}
	return nil
}

const insertJobSQL = `
INSERT INTO jobs (id, tenant_id, title, description, status, priority, scheduled_date, client_id, address, notes)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertJob persists one job record for the tenant.
func (p *Postgres) InsertJob(ctx context.Context, tenantID uuid.UUID, rec importer.JobRecord) error {
	_, err := p.db.Exec(ctx, insertJobSQL,
		toPgUUID(tenantID),
		rec.Title,
		toPgText(rec.Description),
		rec.Status,
		rec.Priority,
		toPgDate(rec.ScheduledDate),
		toPgUUIDPtr(rec.ClientID),
		toPgText(rec.Address),
		toPgText(rec.Notes),
	)
	if err != nil {
		return friendlyError("save job", err)
	}
	return nil
}

const insertEquipmentSQL = `
INSERT INTO equipment (id, tenant_id, name, equipment_type, serial_number, model, manufacturer, install_date, status, client_id, notes)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// InsertEquipment persists one equipment record for the tenant.
func (p *Postgres) InsertEquipment(ctx context.Context, tenantID uuid.UUID, rec importer.EquipmentRecord) error {
	_, err := p.db.Exec(ctx, insertEquipmentSQL,
		toPgUUID(tenantID),
		toPgText(rec.Name),
		rec.EquipmentType,
		toPgText(rec.SerialNumber),
		toPgText(rec.Model),
		toPgText(rec.Manufacturer),
		toPgDate(rec.InstallDate),
		rec.Status,
		toPgUUIDPtr(rec.ClientID),
		toPgText(rec.Notes),
	)
	if err != nil {
		return friendlyError("save equipment", err)
	}
	return nil
}

// FindClientIDByName returns the id of the tenant's client with the
// given name, matched case-insensitively. ok is false when there is no
// match or the name is ambiguous.
func (p *Postgres) FindClientIDByName(ctx context.Context, tenantID uuid.UUID, name string) (uuid.UUID, bool, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id FROM clients WHERE tenant_id = $1 AND lower(name) = lower($2) LIMIT 2`,
		toPgUUID(tenantID), name)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("find client by name: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, false, fmt.Errorf("scan client id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, false, fmt.Errorf("find client by name: %w", err)
	}
	if len(ids) != 1 {
		return uuid.Nil, false, nil // no match, or ambiguous
	}
	return ids[0], true, nil
}

// Duplicate-key queries per entity type. The key formats must stay in
// sync with the importer.DuplicateKey* builders.
const (
	clientKeysSQL = `
SELECT lower(coalesce(name, '')) || '|' || lower(coalesce(email, ''))
FROM clients WHERE tenant_id = $1 AND name IS NOT NULL AND name <> ''`

	jobKeysSQL = `
SELECT lower(title) || '|' || coalesce(to_char(scheduled_date, 'YYYY-MM-DD'), '')
FROM jobs WHERE tenant_id = $1`

	equipmentKeysSQL = `
SELECT lower(serial_number)
FROM equipment WHERE tenant_id = $1 AND serial_number IS NOT NULL AND serial_number <> ''`
)

// ExistingKeys returns the duplicate-match keys of all persisted
// records of the entity type for the tenant.
func (p *Postgres) ExistingKeys(ctx context.Context, tenantID uuid.UUID, entity importer.EntityType) (map[string]bool, error) {
	var query string
	switch entity {
	case importer.EntityClients:
		query = clientKeysSQL
	case importer.EntityJobs:
		query = jobKeysSQL
	case importer.EntityEquipment:
		query = equipmentKeysSQL
	default:
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}

	rows, err := p.db.Query(ctx, query, toPgUUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("existing keys for %s: %w", entity, err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("existing keys for %s: %w", entity, err)
	}
	return keys, nil
}
