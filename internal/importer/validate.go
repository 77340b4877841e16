package importer

// validate.go classifies rows against the current mapping.
//
// Validation has no persisted state: outcomes are recomputed for the
// full row set any time the mapping changes, and again row by row at
// commit time, since the mapping may diverge between preview and
// confirm.

import "fmt"

// ValidateRow checks one row against the required fields of the entity.
// It returns "" when the row is valid; otherwise the reason names the
// first required field (in field-definition order) that is unmapped or
// whose mapped value is empty. Deterministic: the same inputs always
// produce the same reason.
func ValidateRow(row Row, mapping ColumnMapping, fields []FieldDefinition) string {
	for _, fd := range fields {
		if !fd.Required {
			continue
		}
		header, ok := mapping.HeaderFor(fd.Field)
		if !ok {
			return fmt.Sprintf("required field %q has no mapped column", fd.Field)
		}
		if CleanCell(row[header]) == "" {
			return fmt.Sprintf("required field %q is empty", fd.Field)
		}
	}
	return ""
}

// ValidateRows validates every row of the table under the mapping.
// Outcomes are indexed by row position in import order.
func ValidateRows(table RawTable, mapping ColumnMapping, fields []FieldDefinition) []ValidationOutcome {
	outcomes := make([]ValidationOutcome, len(table.Rows))
	for i, row := range table.Rows {
		reason := ValidateRow(row, mapping, fields)
		outcomes[i] = ValidationOutcome{
			RowIndex: i,
			Valid:    reason == "",
			Error:    reason,
		}
	}
	return outcomes
}

// CountValid returns how many outcomes are valid.
func CountValid(outcomes []ValidationOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Valid {
			n++
		}
	}
	return n
}
