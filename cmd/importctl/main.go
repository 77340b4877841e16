// importctl is the operator companion to the import service: it
// validates files offline and runs headless imports against the
// database without going through the HTTP wizard.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fieldline/fieldline/internal/importer"
	_ "github.com/fieldline/fieldline/internal/importer/entities"
	"github.com/fieldline/fieldline/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagEntity string
	flagTenant string
)

func main() {
	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Validate and run bulk imports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagEntity, "entity", "e", "", "entity type: clients, jobs, equipment")

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a file and report mapping and validation results without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	runCmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Import a file directly using DATABASE_URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	runCmd.Flags().StringVarP(&flagTenant, "tenant", "t", "", "tenant UUID (required)")

	root.AddCommand(validateCmd, runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadTable reads and parses path. The extension decides the format,
// matching the upload endpoint's behavior.
func loadTable(path string) (importer.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return importer.RawTable{}, err
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return importer.ParseWorkbook(bytes.NewReader(data))
	}

	text, _ := importer.DecodeText(data)
	return importer.ParseCSV(text), nil
}

func resolveEntity() (importer.EntityDefinition, error) {
	entity := importer.EntityType(flagEntity)
	if !entity.Valid() {
		return importer.EntityDefinition{}, fmt.Errorf("--entity must be one of: clients, jobs, equipment (got %q)", flagEntity)
	}
	def, ok := importer.Get(entity)
	if !ok {
		return importer.EntityDefinition{}, fmt.Errorf("entity not registered: %s", entity)
	}
	return def, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	def, err := resolveEntity()
	if err != nil {
		return err
	}

	table, err := loadTable(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if len(table.Headers) == 0 {
		return fmt.Errorf("no data: file has no header row")
	}

	mapping := importer.AutoDetect(table.Headers, def.Fields)

	fmt.Printf("File: %s (%d columns, %d rows)\n\n", args[0], len(table.Headers), len(table.Rows))

	fmt.Println("Detected mapping:")
	headers := make([]string, 0, len(mapping))
	for h := range mapping {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	for _, h := range headers {
		fmt.Printf("  %-30s -> %s\n", h, mapping[h])
	}
	for _, h := range table.Headers {
		if _, ok := mapping[h]; !ok {
			fmt.Printf("  %-30s -> (unmapped)\n", h)
		}
	}

	if missing := importer.MissingRequired(mapping, def.Fields); len(missing) > 0 {
		fmt.Printf("\nRequired fields without a column: %s\n", strings.Join(missing, ", "))
	}

	outcomes := importer.ValidateRows(table, mapping, def.Fields)
	valid := importer.CountValid(outcomes)
	fmt.Printf("\nValidation: %d valid, %d invalid\n", valid, len(outcomes)-valid)

	for _, o := range outcomes {
		if !o.Valid {
			fmt.Printf("  row %d: %s\n", o.RowIndex+1, o.Error)
		}
	}

	if valid < len(outcomes) {
		os.Exit(2)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	tenant, err := uuid.Parse(flagTenant)
	if err != nil {
		return fmt.Errorf("--tenant must be a valid UUID: %w", err)
	}

	def, err := resolveEntity()
	if err != nil {
		return err
	}

	table, err := loadTable(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if len(table.Headers) == 0 {
		return fmt.Errorf("no data: file has no header row")
	}

	mapping := importer.AutoDetect(table.Headers, def.Fields)
	if missing := importer.MissingRequired(mapping, def.Fields); len(missing) > 0 {
		return fmt.Errorf("required fields not mapped: %s", strings.Join(missing, ", "))
	}

	_ = godotenv.Overload()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DB_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	db := store.New(pool)
	executor := importer.NewExecutor(db, importer.NopNotifier{}, slog.Default())

	fmt.Printf("Importing %d rows of %s for tenant %s\n", len(table.Rows), def.Type, tenant)

	start := time.Now()
	result := executor.Run(context.WithoutCancel(ctx), tenant, def, table, mapping, func(p importer.ImportProgress) {
		if p.CurrentRow%100 == 0 || p.CurrentRow == p.TotalRows {
			fmt.Printf("  %d/%d (ok %d, failed %d)\n", p.CurrentRow, p.TotalRows, p.Succeeded, p.Failed)
		}
	})

	fmt.Printf("\nDone in %s: %d imported, %d failed\n", time.Since(start).Round(time.Millisecond), result.SuccessCount, result.FailedCount)
	for _, re := range result.Errors {
		fmt.Printf("  row %d: %s\n", re.Row, re.Error)
	}

	if result.FailedCount > 0 {
		os.Exit(2)
	}
	return nil
}
