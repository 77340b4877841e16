package importer

import "strings"

// AutoDetect builds the initial column mapping for a set of uploaded
// headers. Each header is normalized to lowercase and trimmed, then
// matched against every field's alias set in field-definition order;
// the first field with an exact or substring alias match wins. Headers
// that match nothing stay unmapped, which the wizard renders as "skip".
//
// AutoDetect is idempotent and preserves the one-to-one invariant: a
// field claimed by an earlier header is not offered to later ones.
func AutoDetect(headers []string, fields []FieldDefinition) ColumnMapping {
	mapping := make(ColumnMapping, len(headers))
	taken := make(map[string]bool, len(fields))

	for _, header := range headers {
		normalized := strings.ToLower(strings.TrimSpace(header))
		if normalized == "" {
			continue
		}
		for _, fd := range fields {
			if taken[fd.Field] {
				continue
			}
			if matchesAlias(normalized, fd.Aliases) {
				mapping[header] = fd.Field
				taken[fd.Field] = true
				break
			}
		}
	}
	return mapping
}

// matchesAlias reports whether the normalized header matches any alias,
// exactly or as a substring in either direction.
func matchesAlias(header string, aliases []string) bool {
	for _, alias := range aliases {
		if header == alias {
			return true
		}
	}
	for _, alias := range aliases {
		if strings.Contains(header, alias) || strings.Contains(alias, header) {
			return true
		}
	}
	return false
}

// MissingRequired returns the required canonical fields that have no
// mapped header, in field-definition order. A non-empty result blocks
// progression from the mapping step to the preview step.
func MissingRequired(mapping ColumnMapping, fields []FieldDefinition) []string {
	var missing []string
	for _, fd := range fields {
		if !fd.Required {
			continue
		}
		if _, ok := mapping.HeaderFor(fd.Field); !ok {
			missing = append(missing, fd.Field)
		}
	}
	return missing
}

// MappedValue returns the cleaned cell value for a canonical field, or
// "" when the field is unmapped or the row has no value under the
// mapped header.
func MappedValue(row Row, mapping ColumnMapping, field string) string {
	header, ok := mapping.HeaderFor(field)
	if !ok {
		return ""
	}
	return CleanCell(row[header])
}
