package ingestion

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmvega/xlsx-loader/internal/domain"
)

const maxNameLength = 100

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lower-cases an address. The result is the natural
// key personas are deduplicated on; normalization is idempotent.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateRow applies every field rule to one raw row and never fails: the
// result is either Accepted with the normalized record or Invalid with the
// accumulated violations in rule order. Duplicate detection happens later in
// the pipeline; a row can pass here and still be rejected as a duplicate.
func ValidateRow(row RawRow) domain.RowOutcome {
	var violations []string

	firstName := strings.TrimSpace(row.Fields["nombre"])
	if firstName == "" {
		violations = append(violations, "El nombre no puede estar vacío")
	} else if len([]rune(firstName)) > maxNameLength {
		violations = append(violations, "El nombre no puede superar los 100 caracteres")
	}

	lastName := strings.TrimSpace(row.Fields["apellido"])
	if lastName == "" {
		violations = append(violations, "El apellido no puede estar vacío")
	} else if len([]rune(lastName)) > maxNameLength {
		violations = append(violations, "El apellido no puede superar los 100 caracteres")
	}

	age, ageErr := parseAge(row.Fields["edad"])
	if ageErr != nil {
		violations = append(violations, "La edad debe ser un número entero")
	} else if age < 0 || age > 150 {
		violations = append(violations, "La edad debe estar entre 0 y 150 años")
	}

	email := NormalizeEmail(row.Fields["correo"])
	if !emailPattern.MatchString(email) {
		violations = append(violations, "El formato del correo no es válido")
	}

	bloodType, btErr := domain.ParseBloodType(row.Fields["tipo_sangre"])
	if btErr != nil {
		violations = append(violations, fmt.Sprintf(
			"Tipo de sangre inválido. Valores permitidos: %s", validBloodTypes()))
	}

	if len(violations) > 0 {
		return domain.Invalid{Row: row.Number, Violations: violations}
	}

	return domain.Accepted{Record: domain.Persona{
		FirstName: firstName,
		LastName:  lastName,
		Age:       age,
		Email:     email,
		BloodType: bloodType,
	}}
}

// parseAge accepts plain integers and float renderings that spreadsheets
// produce for numeric cells ("30.0"), as long as they convert losslessly.
func parseAge(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("edad is empty")
	}
	if age, err := strconv.Atoi(value); err == nil {
		return age, nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && math.Mod(f, 1) == 0 {
		return int(f), nil
	}
	return 0, fmt.Errorf("edad %q is not an integer", raw)
}

func validBloodTypes() string {
	names := make([]string, len(domain.BloodTypes))
	for i, bt := range domain.BloodTypes {
		names[i] = bt.String()
	}
	return strings.Join(names, ", ")
}
