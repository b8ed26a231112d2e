package ingestion

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmvega/xlsx-loader/internal/repository"
	"github.com/jmvega/xlsx-loader/internal/web"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the load pipeline and its run history over HTTP.
type Handler struct {
	service       *Service
	tracker       *Tracker
	maxUploadSize int64
}

func NewHandler(service *Service, tracker *Tracker, maxUploadSize int64) *Handler {
	return &Handler{
		service:       service,
		tracker:       tracker,
		maxUploadSize: maxUploadSize,
	}
}

// Routes mounts the upload, history, and task-status endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.handleUpload)
	r.Get("/historial", h.handleHistory)
	r.Get("/tasks/{taskID}/status", h.handleTaskStatus)
	return r
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		web.Error(w, http.StatusBadRequest, "Archivo Inválido",
			"No se pudo leer el archivo enviado", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		web.Error(w, http.StatusBadRequest, "Archivo Inválido",
			"El campo 'file' es obligatorio", err.Error())
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".csv" {
		web.Error(w, http.StatusBadRequest, "Archivo Inválido",
			"Solo se permiten archivos .xlsx o .csv", "Extensión no válida: "+ext)
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "Archivo Inválido",
			"No se pudo leer el contenido del archivo", err.Error())
		return
	}

	result, err := h.service.Submit(r.Context(), header.Filename, payload)
	if err != nil {
		var structureErr *StructureError
		if errors.As(err, &structureErr) {
			web.Error(w, http.StatusBadRequest, "Estructura Inválida",
				"El archivo no tiene las columnas requeridas",
				structureErr.Error(),
				"Columnas encontradas: "+strings.Join(structureErr.Found, ", "))
			return
		}
		web.Error(w, http.StatusBadRequest, "Error en Carga",
			"Error al procesar el archivo", err.Error())
		return
	}

	if result.Async {
		web.Success(w, http.StatusAccepted, "Carga en Proceso",
			"El archivo se está procesando en segundo plano",
			map[string]any{
				"task_id": result.TaskID,
				"run_id":  result.RunID,
			})
		return
	}

	report := result.Report
	if report.Duplicates > 0 || report.Invalid > 0 {
		web.Success(w, http.StatusOK, "Carga Completada con Observaciones",
			fmt.Sprintf("Se cargaron %d registros. %d duplicados, %d con errores",
				report.Accepted, report.Duplicates, report.Invalid),
			report)
		return
	}
	web.Success(w, http.StatusOK, "Carga Exitosa",
		fmt.Sprintf("Se cargaron %d registros correctamente", report.Accepted),
		report)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "skip", 0)

	runs, err := h.tracker.History(r.Context(), limit, offset)
	if err != nil {
		web.Error(w, http.StatusInternalServerError, "Error",
			"Error al obtener el historial", err.Error())
		return
	}

	web.Success(w, http.StatusOK, "Historial Obtenido",
		fmt.Sprintf("Se encontraron %d cargas", len(runs)),
		map[string]any{"historial": runs, "total": len(runs)})
}

func (h *Handler) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	run, err := h.tracker.ByTaskID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			web.Error(w, http.StatusNotFound, "Tarea No Encontrada",
				"No existe una carga con ese identificador", taskID)
			return
		}
		web.Error(w, http.StatusInternalServerError, "Error",
			"Error al consultar la tarea", err.Error())
		return
	}

	web.Success(w, http.StatusOK, "Estado de Tarea",
		fmt.Sprintf("La carga está en estado %s", run.Status),
		run)
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
