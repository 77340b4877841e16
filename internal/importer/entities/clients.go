// Package entities registers the importable Fieldline entity types
// (clients, jobs, equipment) with the importer registry. Import it for
// side effects:
//
//	_ "github.com/fieldline/fieldline/internal/importer/entities"
package entities

import (
	"context"

	"github.com/fieldline/fieldline/internal/importer"
	"github.com/google/uuid"
)

func init() {
	registerClients()
}

func registerClients() {
	importer.Register(importer.EntityDefinition{
		Type:  importer.EntityClients,
		Label: "Clients",
		Fields: []importer.FieldDefinition{
			{Field: "name", Label: "Name", Required: true,
				Aliases: []string{"name", "full name", "client name", "customer name", "contact name", "company", "company name"}},
			{Field: "email", Label: "Email",
				Aliases: []string{"email", "email address", "e-mail"}},
			{Field: "phone", Label: "Phone",
				Aliases: []string{"phone", "phone number", "mobile", "telephone", "cell"}},
			{Field: "address", Label: "Address",
				Aliases: []string{"address", "street", "street address", "address 1"}},
			{Field: "city", Label: "City",
				Aliases: []string{"city", "town"}},
			{Field: "state", Label: "State",
				Aliases: []string{"state", "province", "region"}},
			{Field: "zip", Label: "ZIP",
				Aliases: []string{"zip", "zip code", "postal code", "postcode"}},
			{Field: "notes", Label: "Notes",
				Aliases: []string{"notes", "comments"}},
		},
		DuplicateKey: importer.DuplicateKeyClients,
		BuildRecord: func(row importer.Row, mapping importer.ColumnMapping) any {
			return importer.ClientRecord{
				Name:    importer.MappedValue(row, mapping, "name"),
				Email:   importer.MappedValue(row, mapping, "email"),
				Phone:   importer.MappedValue(row, mapping, "phone"),
				Address: importer.MappedValue(row, mapping, "address"),
				City:    importer.MappedValue(row, mapping, "city"),
				State:   importer.MappedValue(row, mapping, "state"),
				Zip:     importer.MappedValue(row, mapping, "zip"),
				Notes:   importer.MappedValue(row, mapping, "notes"),
			}
		},
		Insert: func(ctx context.Context, deps importer.ExecDeps, tenantID uuid.UUID, record any) error {
			return deps.Store.InsertClient(ctx, tenantID, record.(importer.ClientRecord))
		},
		PostInsert: func(ctx context.Context, deps importer.ExecDeps, tenantID uuid.UUID, record any) {
			rec := record.(importer.ClientRecord)
			if rec.Email == "" {
				return
			}
			// Best-effort portal invite. A failed invite is not a failed
			// import row.
			if err := deps.Notifier.SendPortalInvite(ctx, tenantID, rec.Email); err != nil {
				deps.Log.Warn("portal invite failed",
					"tenant", tenantID, "email", rec.Email, "error", err)
			}
		},
	})
}
