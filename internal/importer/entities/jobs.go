package entities

import (
	"context"

	"github.com/fieldline/fieldline/internal/importer"
	"github.com/google/uuid"
)

func init() {
	registerJobs()
}

func registerJobs() {
	importer.Register(importer.EntityDefinition{
		Type:  importer.EntityJobs,
		Label: "Jobs",
		Fields: []importer.FieldDefinition{
			{Field: "title", Label: "Title", Required: true,
				Aliases: []string{"title", "job title", "job name", "work order", "summary"}},
			{Field: "description", Label: "Description",
				Aliases: []string{"description", "details", "job description", "scope"}},
			{Field: "status", Label: "Status",
				Aliases: []string{"status", "job status"}},
			{Field: "priority", Label: "Priority",
				Aliases: []string{"priority", "urgency"}},
			{Field: "scheduled_date", Label: "Scheduled Date",
				Aliases: []string{"scheduled date", "schedule", "date", "service date", "appointment", "due date"}},
			{Field: "client_name", Label: "Client",
				Aliases: []string{"client", "client name", "customer", "customer name", "account"}},
			{Field: "address", Label: "Address",
				Aliases: []string{"address", "location", "site address"}},
			{Field: "notes", Label: "Notes",
				Aliases: []string{"notes", "comments"}},
		},
		DuplicateKey: importer.DuplicateKeyJobs,
		BuildRecord: func(row importer.Row, mapping importer.ColumnMapping) any {
			rec := importer.JobRecord{
				Title:       importer.MappedValue(row, mapping, "title"),
				Description: importer.MappedValue(row, mapping, "description"),
				Status:      importer.NormalizeJobStatus(importer.MappedValue(row, mapping, "status")),
				Priority:    importer.NormalizePriority(importer.MappedValue(row, mapping, "priority")),
				ClientName:  importer.MappedValue(row, mapping, "client_name"),
				Address:     importer.MappedValue(row, mapping, "address"),
				Notes:       importer.MappedValue(row, mapping, "notes"),
			}
			if t, ok := importer.NormalizeDate(importer.MappedValue(row, mapping, "scheduled_date")); ok {
				rec.ScheduledDate = &t
			}
			return rec
		},
		Insert: func(ctx context.Context, deps importer.ExecDeps, tenantID uuid.UUID, record any) error {
			rec := record.(importer.JobRecord)
			attachClient(ctx, deps, tenantID, rec.ClientName, &rec.ClientID)
			return deps.Store.InsertJob(ctx, tenantID, rec)
		},
	})
}

// attachClient resolves an existing client by name and sets *id on a
// match. Resolution is best-effort: a miss or a lookup error leaves the
// record unlinked rather than failing the row.
func attachClient(ctx context.Context, deps importer.ExecDeps, tenantID uuid.UUID, name string, id **uuid.UUID) {
	if name == "" {
		return
	}
	clientID, ok, err := deps.Store.FindClientIDByName(ctx, tenantID, name)
	if err != nil {
		deps.Log.Debug("client match failed", "tenant", tenantID, "name", name, "error", err)
		return
	}
	if ok {
		*id = &clientID
	}
}
