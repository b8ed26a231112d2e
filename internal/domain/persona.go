package domain

import (
	"fmt"
	"strings"
	"time"
)

// BloodType is one of the eight valid blood groups.
type BloodType string

const (
	BloodAPositive  BloodType = "A+"
	BloodANegative  BloodType = "A-"
	BloodBPositive  BloodType = "B+"
	BloodBNegative  BloodType = "B-"
	BloodABPositive BloodType = "AB+"
	BloodABNegative BloodType = "AB-"
	BloodOPositive  BloodType = "O+"
	BloodONegative  BloodType = "O-"
)

// BloodTypes lists every valid blood group in display order.
var BloodTypes = []BloodType{
	BloodAPositive, BloodANegative,
	BloodBPositive, BloodBNegative,
	BloodABPositive, BloodABNegative,
	BloodOPositive, BloodONegative,
}

// ParseBloodType upper-cases and trims raw input and matches it against the
// valid blood groups.
func ParseBloodType(raw string) (BloodType, error) {
	candidate := BloodType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, bt := range BloodTypes {
		if candidate == bt {
			return bt, nil
		}
	}
	return "", fmt.Errorf("invalid blood type %q", raw)
}

func (b BloodType) String() string {
	return string(b)
}

// Persona is the canonical validated person record. Email is the natural key:
// it is stored lower-cased and the personas table enforces its uniqueness.
// Records are immutable once stored; this pipeline never updates or deletes
// them.
type Persona struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"nombre"`
	LastName  string    `json:"apellido"`
	Age       int       `json:"edad"`
	Email     string    `json:"correo"`
	BloodType BloodType `json:"tipo_sangre"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins the given and family names for display.
func (p Persona) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
