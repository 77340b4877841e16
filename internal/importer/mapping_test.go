package importer

import (
	"reflect"
	"testing"
)

var contactFields = []FieldDefinition{
	{Field: "name", Label: "Name", Required: true,
		Aliases: []string{"name", "full name", "client name"}},
	{Field: "email", Label: "Email",
		Aliases: []string{"email", "email address", "e-mail"}},
	{Field: "phone", Label: "Phone",
		Aliases: []string{"phone", "phone number", "mobile"}},
	{Field: "notes", Label: "Notes",
		Aliases: []string{"notes", "comments"}},
}

func TestAutoDetect(t *testing.T) {
	mapping := AutoDetect([]string{"Full Name", "Email Address", "Phone #", "Internal ID"}, contactFields)

	want := ColumnMapping{
		"Full Name":     "name",
		"Email Address": "email",
		"Phone #":       "phone",
	}
	if !reflect.DeepEqual(mapping, want) {
		t.Errorf("expected %v, got %v", want, mapping)
	}
	if _, ok := mapping["Internal ID"]; ok {
		t.Error("expected unrecognized header to stay unmapped")
	}
}

func TestAutoDetect_Idempotent(t *testing.T) {
	headers := []string{"Name", "Email", "Phone"}

	first := AutoDetect(headers, contactFields)
	second := AutoDetect(headers, contactFields)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical mappings, got %v then %v", first, second)
	}
}

func TestAutoDetect_OneToOne(t *testing.T) {
	// Two headers both matching "name": only the first claims the field.
	mapping := AutoDetect([]string{"Name", "Client Name", "Email"}, contactFields)

	if mapping["Name"] != "name" {
		t.Errorf("expected first header to claim name, got %q", mapping["Name"])
	}
	if f, ok := mapping["Client Name"]; ok {
		t.Errorf("expected second name-ish header to stay unmapped, got %q", f)
	}

	seen := map[string]string{}
	for h, f := range mapping {
		if prev, dup := seen[f]; dup {
			t.Errorf("field %q mapped from both %q and %q", f, prev, h)
		}
		seen[f] = h
	}
}

func TestAutoDetect_CaseInsensitive(t *testing.T) {
	mapping := AutoDetect([]string{"NAME", "eMaIl"}, contactFields)

	if mapping["NAME"] != "name" || mapping["eMaIl"] != "email" {
		t.Errorf("expected case-insensitive matches, got %v", mapping)
	}
}

func TestColumnMappingSet(t *testing.T) {
	t.Run("reassigning a field unmaps the previous holder", func(t *testing.T) {
		m := ColumnMapping{"H1": "email"}

		next := m.Set("H2", "email")

		if _, ok := next["H1"]; ok {
			t.Error("expected H1 to be unmapped after H2 took email")
		}
		if next["H2"] != "email" {
			t.Errorf("expected H2 -> email, got %q", next["H2"])
		}
	})

	t.Run("skip removes the assignment", func(t *testing.T) {
		m := ColumnMapping{"H1": "email", "H2": "name"}

		next := m.Set("H1", SkipField)

		if _, ok := next["H1"]; ok {
			t.Error("expected H1 to be removed")
		}
		if next["H2"] != "name" {
			t.Error("expected H2 to be untouched")
		}
	})

	t.Run("receiver is never mutated", func(t *testing.T) {
		m := ColumnMapping{"H1": "email"}

		_ = m.Set("H2", "email")
		_ = m.Set("H1", SkipField)

		if m["H1"] != "email" || len(m) != 1 {
			t.Errorf("receiver mutated: %v", m)
		}
	})

	t.Run("field never appears twice", func(t *testing.T) {
		m := ColumnMapping{}
		for _, h := range []string{"A", "B", "C"} {
			m = m.Set(h, "name")
		}

		count := 0
		for _, f := range m {
			if f == "name" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("expected name mapped once, found %d", count)
		}
		if m["C"] != "name" {
			t.Error("expected last write to win")
		}
	})
}

func TestHeaderFor(t *testing.T) {
	m := ColumnMapping{"Full Name": "name", "Email": "email"}

	if h, ok := m.HeaderFor("name"); !ok || h != "Full Name" {
		t.Errorf("expected Full Name, got %q (ok=%v)", h, ok)
	}
	if _, ok := m.HeaderFor("phone"); ok {
		t.Error("expected no header for unmapped field")
	}
}

func TestMissingRequired(t *testing.T) {
	fields := []FieldDefinition{
		{Field: "name", Required: true},
		{Field: "email"},
		{Field: "serial", Required: true},
	}

	t.Run("all mapped", func(t *testing.T) {
		m := ColumnMapping{"N": "name", "S": "serial"}
		if missing := MissingRequired(m, fields); len(missing) != 0 {
			t.Errorf("expected none missing, got %v", missing)
		}
	})

	t.Run("reports in field-definition order", func(t *testing.T) {
		missing := MissingRequired(ColumnMapping{}, fields)
		want := []string{"name", "serial"}
		if !reflect.DeepEqual(missing, want) {
			t.Errorf("expected %v, got %v", want, missing)
		}
	})
}

func TestMappedValue(t *testing.T) {
	row := Row{"Full Name": `  "Acme"  `, "Email": "a@b.com"}
	m := ColumnMapping{"Full Name": "name", "Email": "email"}

	if got := MappedValue(row, m, "name"); got != "Acme" {
		t.Errorf("expected cleaned value Acme, got %q", got)
	}
	if got := MappedValue(row, m, "phone"); got != "" {
		t.Errorf("expected empty for unmapped field, got %q", got)
	}
}
