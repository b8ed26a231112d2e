package ingestion

import (
	"strings"
	"testing"

	"github.com/jmvega/xlsx-loader/internal/domain"
)

func validRow() RawRow {
	return RawRow{
		Number: 2,
		Fields: map[string]string{
			"nombre":      "Ana",
			"apellido":    "Lopez",
			"edad":        "30",
			"correo":      "Ana@X.com",
			"tipo_sangre": "a+",
		},
	}
}

func TestValidateRowNormalizes(t *testing.T) {
	outcome := ValidateRow(validRow())

	accepted, ok := outcome.(domain.Accepted)
	if !ok {
		t.Fatalf("expected Accepted, got %#v", outcome)
	}
	if accepted.Record.Email != "ana@x.com" {
		t.Fatalf("email must be lower-cased, got %q", accepted.Record.Email)
	}
	if accepted.Record.BloodType != domain.BloodAPositive {
		t.Fatalf("blood type must be upper-cased, got %q", accepted.Record.BloodType)
	}
	if accepted.Record.FullName() != "Ana Lopez" {
		t.Fatalf("unexpected full name %q", accepted.Record.FullName())
	}
}

func TestValidateRowAgeBounds(t *testing.T) {
	cases := []struct {
		age   string
		valid bool
	}{
		{"0", true},
		{"150", true},
		{"151", false},
		{"-1", false},
		{"treinta", false},
		{"30.0", true},
		{"30.5", false},
	}

	for _, tc := range cases {
		row := validRow()
		row.Fields["edad"] = tc.age

		outcome := ValidateRow(row)
		_, accepted := outcome.(domain.Accepted)
		if accepted != tc.valid {
			t.Fatalf("age %q: expected valid=%v, got %#v", tc.age, tc.valid, outcome)
		}
		if !tc.valid {
			invalid := outcome.(domain.Invalid)
			if len(invalid.Violations) != 1 || !strings.Contains(invalid.Violations[0], "edad") {
				t.Fatalf("age %q: expected one age violation, got %v", tc.age, invalid.Violations)
			}
		}
	}
}

func TestValidateRowAccumulatesViolationsInOrder(t *testing.T) {
	row := RawRow{
		Number: 5,
		Fields: map[string]string{
			"nombre":      "  ",
			"apellido":    "",
			"edad":        "200",
			"correo":      "not-an-email",
			"tipo_sangre": "Z+",
		},
	}

	outcome := ValidateRow(row)
	invalid, ok := outcome.(domain.Invalid)
	if !ok {
		t.Fatalf("expected Invalid, got %#v", outcome)
	}
	if invalid.Row != 5 {
		t.Fatalf("expected row 5, got %d", invalid.Row)
	}
	if len(invalid.Violations) != 5 {
		t.Fatalf("expected 5 violations, got %d: %v", len(invalid.Violations), invalid.Violations)
	}

	wantOrder := []string{"nombre", "apellido", "edad", "correo", "sangre"}
	for i, keyword := range wantOrder {
		if !strings.Contains(strings.ToLower(invalid.Violations[i]), keyword) {
			t.Fatalf("violation %d should mention %q, got %q", i, keyword, invalid.Violations[i])
		}
	}
}

func TestValidateRowNameLength(t *testing.T) {
	row := validRow()
	row.Fields["nombre"] = strings.Repeat("a", 101)

	outcome := ValidateRow(row)
	invalid, ok := outcome.(domain.Invalid)
	if !ok {
		t.Fatalf("expected Invalid, got %#v", outcome)
	}
	if !strings.Contains(invalid.Violations[0], "100") {
		t.Fatalf("expected length violation, got %v", invalid.Violations)
	}

	row.Fields["nombre"] = strings.Repeat("a", 100)
	if _, ok := ValidateRow(row).(domain.Accepted); !ok {
		t.Fatalf("100 characters is within bounds")
	}
}

func TestNormalizeEmailIdempotent(t *testing.T) {
	raw := "  Ana.Lopez+tag@Example.COM "
	once := NormalizeEmail(raw)
	twice := NormalizeEmail(once)
	if once != twice {
		t.Fatalf("normalization must be idempotent: %q vs %q", once, twice)
	}
	if once != "ana.lopez+tag@example.com" {
		t.Fatalf("unexpected normalization result %q", once)
	}
}

func TestValidateRowAllBloodTypes(t *testing.T) {
	for _, bt := range domain.BloodTypes {
		row := validRow()
		row.Fields["tipo_sangre"] = strings.ToLower(bt.String())
		if _, ok := ValidateRow(row).(domain.Accepted); !ok {
			t.Fatalf("blood type %s should be valid", bt)
		}
	}
}
