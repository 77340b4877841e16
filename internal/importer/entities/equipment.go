package entities

import (
	"context"

	"github.com/fieldline/fieldline/internal/importer"
	"github.com/google/uuid"
)

func init() {
	registerEquipment()
}

func registerEquipment() {
	importer.Register(importer.EntityDefinition{
		Type:  importer.EntityEquipment,
		Label: "Equipment",
		Fields: []importer.FieldDefinition{
			{Field: "equipment_type", Label: "Equipment Type", Required: true,
				Aliases: []string{"equipment type", "type", "category", "asset type"}},
			{Field: "name", Label: "Name",
				Aliases: []string{"name", "equipment name", "asset name", "unit"}},
			{Field: "serial_number", Label: "Serial Number",
				Aliases: []string{"serial number", "serial", "serial no", "serial #", "sn"}},
			{Field: "model", Label: "Model",
				Aliases: []string{"model", "model number", "model no"}},
			{Field: "manufacturer", Label: "Manufacturer",
				Aliases: []string{"manufacturer", "make", "brand", "vendor"}},
			{Field: "install_date", Label: "Install Date",
				Aliases: []string{"install date", "installed", "installation date", "date installed", "in service date"}},
			{Field: "status", Label: "Status",
				Aliases: []string{"status", "condition"}},
			{Field: "client_name", Label: "Client",
				Aliases: []string{"client", "client name", "customer", "customer name"}},
			{Field: "notes", Label: "Notes",
				Aliases: []string{"notes", "comments"}},
		},
		DuplicateKey: importer.DuplicateKeyEquipment,
		BuildRecord: func(row importer.Row, mapping importer.ColumnMapping) any {
			rec := importer.EquipmentRecord{
				Name:          importer.MappedValue(row, mapping, "name"),
				EquipmentType: importer.MappedValue(row, mapping, "equipment_type"),
				SerialNumber:  importer.MappedValue(row, mapping, "serial_number"),
				Model:         importer.MappedValue(row, mapping, "model"),
				Manufacturer:  importer.MappedValue(row, mapping, "manufacturer"),
				Status:        importer.NormalizeEquipmentStatus(importer.MappedValue(row, mapping, "status")),
				ClientName:    importer.MappedValue(row, mapping, "client_name"),
				Notes:         importer.MappedValue(row, mapping, "notes"),
			}
			if t, ok := importer.NormalizeDate(importer.MappedValue(row, mapping, "install_date")); ok {
				rec.InstallDate = &t
			}
			return rec
		},
		Insert: func(ctx context.Context, deps importer.ExecDeps, tenantID uuid.UUID, record any) error {
			rec := record.(importer.EquipmentRecord)
			attachClient(ctx, deps, tenantID, rec.ClientName, &rec.ClientID)
			return deps.Store.InsertEquipment(ctx, tenantID, rec)
		},
	})
}
