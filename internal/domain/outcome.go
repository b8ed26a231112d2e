package domain

// RowOutcome classifies exactly one decoded data row. It is a closed sum:
// Accepted, Duplicate, and Invalid are the only implementations, so consumers
// switching on the concrete type cover every case.
type RowOutcome interface {
	rowOutcome()
}

// Accepted carries the fully normalized record for a row that passed every
// field rule. The record has no ID yet; the batch commit assigns one.
type Accepted struct {
	Record Persona
}

// Duplicate marks a valid row whose email was already claimed, either by the
// store or by an earlier row in the same file.
type Duplicate struct {
	Row      int    `json:"indice"`
	Email    string `json:"correo"`
	FullName string `json:"nombre_completo"`
	Reason   string `json:"mensaje"`
}

// Invalid carries the accumulated rule violations for one row, in rule order.
type Invalid struct {
	Row        int      `json:"fila"`
	Violations []string `json:"errores"`
}

func (Accepted) rowOutcome()  {}
func (Duplicate) rowOutcome() {}
func (Invalid) rowOutcome()   {}
