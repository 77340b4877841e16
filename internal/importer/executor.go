package importer

// executor.go commits a confirmed import session.
//
// Rows are imported strictly sequentially, in file order, so that row
// numbers map unambiguously to outcomes and the backend is not hit with
// concurrent writes from one bulk action. Partial success is the
// expected common case: anything that can be isolated to one row stays
// isolated to that row, and the run always returns an aggregate
// ImportResult rather than an overall failure.

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Executor persists valid rows entity by entity.
type Executor struct {
	deps ExecDeps
}

// NewExecutor creates an executor over the persistence collaborators.
func NewExecutor(store Store, notifier Notifier, log *slog.Logger) *Executor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{deps: ExecDeps{Store: store, Notifier: notifier, Log: log}}
}

// Run imports the table under the frozen mapping and returns the
// aggregate result. Each row is re-validated at commit time rather than
// trusting the preview pass, since the mapping may have changed in
// between. Invalid rows are skipped and counted as failures with their
// validation reason; a failed persistence call is recorded against its
// 1-based row number and never aborts the remaining rows.
//
// There is no cancellation of a run once started; ctx bounds the
// individual persistence calls, and a context failure on one row is
// accounted like any other row failure.
func (e *Executor) Run(ctx context.Context, tenantID uuid.UUID, def EntityDefinition, table RawTable, mapping ColumnMapping, progress ProgressCallback) ImportResult {
	start := time.Now()
	result := ImportResult{Entity: def.Type}

	snapshot := ImportProgress{
		Entity:    def.Type,
		Phase:     PhaseImporting,
		TotalRows: len(table.Rows),
	}

	for i, row := range table.Rows {
		rowNum := i + 1

		if reason := ValidateRow(row, mapping, def.Fields); reason != "" {
			result.FailedCount++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Error: reason})
		} else {
			record := def.BuildRecord(row, mapping)
			if err := def.Insert(ctx, e.deps, tenantID, record); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, RowError{Row: rowNum, Error: err.Error()})
			} else {
				result.SuccessCount++
				if def.PostInsert != nil {
					def.PostInsert(ctx, e.deps, tenantID, record)
				}
			}
		}

		if progress != nil {
			snapshot.CurrentRow = rowNum
			snapshot.Succeeded = result.SuccessCount
			snapshot.Failed = result.FailedCount
			progress(snapshot)
		}
	}

	result.Duration = time.Since(start)
	e.deps.Log.Info("import finished",
		"entity", def.Type,
		"tenant", tenantID,
		"succeeded", result.SuccessCount,
		"failed", result.FailedCount,
		"duration", result.Duration,
	)
	return result
}
