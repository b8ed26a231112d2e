package people

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jmvega/xlsx-loader/internal/web"

	"github.com/go-chi/chi/v5"
)

// Handler exposes persona listings and statistics.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/estadisticas", h.handleStatistics)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit > 1000 {
		limit = 1000
	}
	offset := queryInt(r, "skip", 0)

	personas, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		web.Error(w, http.StatusInternalServerError, "Error",
			"Error al obtener personas", err.Error())
		return
	}

	web.Success(w, http.StatusOK, "Personas Obtenidas",
		fmt.Sprintf("Se encontraron %d personas", len(personas)),
		map[string]any{"personas": personas, "total": len(personas)})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		web.Error(w, http.StatusInternalServerError, "Error",
			"Error al obtener estadísticas", err.Error())
		return
	}

	web.Success(w, http.StatusOK, "Estadísticas Obtenidas",
		"Estadísticas calculadas correctamente", stats)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
