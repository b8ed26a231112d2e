package web

import (
	"encoding/json"
	"net/http"
)

// ResponseType mirrors the notification styles the frontend renders.
type ResponseType string

const (
	TypeSuccess ResponseType = "success"
	TypeError   ResponseType = "error"
	TypeWarning ResponseType = "warning"
	TypeInfo    ResponseType = "info"
)

// APIResponse is the envelope shared by every JSON endpoint.
type APIResponse struct {
	Estado  bool         `json:"estado"`
	Tipo    ResponseType `json:"tipo"`
	Titulo  string       `json:"titulo"`
	Mensaje string       `json:"mensaje"`
	Datos   any          `json:"datos,omitempty"`
	Errores []string     `json:"errores,omitempty"`
}

// Success writes a success envelope with the given payload.
func Success(w http.ResponseWriter, status int, titulo, mensaje string, datos any) {
	WriteJSON(w, status, APIResponse{
		Estado:  true,
		Tipo:    TypeSuccess,
		Titulo:  titulo,
		Mensaje: mensaje,
		Datos:   datos,
	})
}

// Error writes an error envelope with the itemized error list.
func Error(w http.ResponseWriter, status int, titulo, mensaje string, errores ...string) {
	WriteJSON(w, status, APIResponse{
		Estado:  false,
		Tipo:    TypeError,
		Titulo:  titulo,
		Mensaje: mensaje,
		Errores: errores,
	})
}

// WriteJSON renders any payload as indented JSON.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
