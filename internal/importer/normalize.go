package importer

// normalize.go holds the per-field value normalizers.
//
// Every normalizer is total: unparseable input degrades to a defined
// default (or a false ok) instead of an error, so validation and
// preview stay deterministic no matter what the spreadsheet contains.
// Tests assert the defaults, not just the absence of a crash.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot controls how 2-digit years are read. A parsed year
// more than this many years in the future is pushed back a century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// NormalizeDate parses common date representations. ok is false when no
// layout matches; the caller decides whether that fails validation.
func NormalizeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Unambiguous 4-digit-year layouts first.
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivot := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// Priority levels recognized across the product.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// NormalizePriority maps free-text or numeric priority input to one of
// low, medium, high, urgent. Unrecognized input defaults to medium.
func NormalizePriority(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "lo", "l", "1", "minor":
		return PriorityLow
	case "medium", "med", "m", "2", "normal", "standard":
		return PriorityMedium
	case "high", "hi", "h", "3", "important":
		return PriorityHigh
	case "urgent", "u", "4", "critical", "emergency", "asap":
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}

// Job statuses. Pending is the baseline for unrecognized input.
const (
	JobPending    = "pending"
	JobScheduled  = "scheduled"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobCancelled  = "cancelled"
)

// NormalizeJobStatus maps free text to the nearest canonical job
// status, defaulting to pending.
func NormalizeJobStatus(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", " ")
	v = strings.ReplaceAll(v, "_", " ")
	switch v {
	case "pending", "new", "open", "unscheduled", "backlog":
		return JobPending
	case "scheduled", "booked", "assigned", "dispatched":
		return JobScheduled
	case "in progress", "inprogress", "started", "active", "working", "en route":
		return JobInProgress
	case "completed", "complete", "done", "finished", "closed":
		return JobCompleted
	case "cancelled", "canceled", "void", "abandoned":
		return JobCancelled
	default:
		return JobPending
	}
}

// Equipment statuses. Active is the baseline for unrecognized input.
const (
	EquipmentActive      = "active"
	EquipmentMaintenance = "maintenance"
	EquipmentRepair      = "repair"
	EquipmentRetired     = "retired"
)

// NormalizeEquipmentStatus maps free text to the nearest canonical
// equipment status, defaulting to active.
func NormalizeEquipmentStatus(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "active", "in service", "in-service", "operational", "ok", "running", "installed":
		return EquipmentActive
	case "maintenance", "servicing", "service due", "under maintenance":
		return EquipmentMaintenance
	case "repair", "broken", "faulty", "needs repair", "out of service":
		return EquipmentRepair
	case "retired", "decommissioned", "scrapped", "disposed", "inactive":
		return EquipmentRetired
	default:
		return EquipmentActive
	}
}

// numericPattern accepts integers, decimals, and scientific notation
// after currency cleanup.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// NormalizeCurrency parses a monetary amount, tolerating currency
// symbols, thousands separators, and accounting-style parentheses for
// negatives. ok is false when nothing numeric remains.
func NormalizeCurrency(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}

	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="..."), and stray
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
