package medicines

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /entries y el alias /api/medicines que usa el
// formulario web.
func RegisterRoutes(r chi.Router, svc *Service, loc *time.Location) {
	for _, base := range []string{"/entries", "/api/medicines"} {
		r.Route(base, func(er chi.Router) {
			er.Post("/", createEntryHandler(svc, loc))
			er.Get("/", listEntriesHandler(svc))
			er.Get("/{entryID}", getEntryHandler(svc))
			er.Delete("/{entryID}", deleteEntryHandler(svc))
		})
	}
}

// createEntryRequest es el cuerpo que envía el formulario.
type createEntryRequest struct {
	Name    string          `json:"name"`
	Tablets json.RawMessage `json:"tablets" swaggertype:"integer"` // número o string numérico
	Time    string          `json:"time"`                          // ISO-8601
	Email   string          `json:"email"`
}

// entryResponse representa una entrada con el estado de su recordatorio.
type entryResponse struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Tablets        int            `json:"tablets"`
	Time           time.Time      `json:"time"`
	Email          string         `json:"email"`
	ReminderStatus ReminderStatus `json:"reminder_status,omitempty"`
	ReminderAt     *time.Time     `json:"reminder_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// createEntryHandler godoc
// @Summary Registrar una toma de medicamento
// @Description Crea la entrada y programa un recordatorio por email leadTime antes de la hora indicada. Si esa hora de aviso ya pasó, la entrada se guarda igual y `reminder_status` vuelve como `skipped`.
// @Tags entries
// @Accept json
// @Produce json
// @Param payload body createEntryRequest true "Datos de la toma; time en ISO-8601"
// @Success 200 {object} entryResponse
// @Failure 400 {object} errorResponse "payload inválido"
// @Failure 500 {object} errorResponse "error creating medicine"
// @Router /entries [post]
func createEntryHandler(svc *Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		tablets, err := ParseTablets(req.Tablets)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err := ParseTime(req.Time, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		m, err := svc.Create(r.Context(), CreateInput{
			Name:    req.Name,
			Tablets: tablets,
			Time:    t,
			Email:   req.Email,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "error creating medicine")
			return
		}

		writeJSON(w, http.StatusOK, toEntryResponse(m))
	}
}

// listEntriesHandler godoc
// @Summary Listar entradas
// @Description Devuelve todas las entradas ordenadas por hora ascendente.
// @Tags entries
// @Produce json
// @Success 200 {array} entryResponse
// @Failure 500 {object} errorResponse "error fetching medicines"
// @Router /entries [get]
func listEntriesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error fetching medicines")
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toEntryResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getEntryHandler godoc
// @Summary Obtener una entrada
// @Tags entries
// @Produce json
// @Param entryID path string true "ID de la entrada"
// @Success 200 {object} entryResponse
// @Failure 404 {object} errorResponse "entry not found"
// @Failure 500 {object} errorResponse "internal error"
// @Router /entries/{entryID} [get]
func getEntryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "entryID"))
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEntryResponse(m))
	}
}

// deleteEntryHandler godoc
// @Summary Borrar una entrada
// @Description Borra la entrada y cancela su recordatorio si todavía no se disparó.
// @Tags entries
// @Param entryID path string true "ID de la entrada"
// @Success 204
// @Failure 404 {object} errorResponse "entry not found"
// @Failure 500 {object} errorResponse "internal error"
// @Router /entries/{entryID} [delete]
func deleteEntryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "entryID")); err != nil {
			writeLookupError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusNotFound, "entry not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toEntryResponse(m Medicine) entryResponse {
	return entryResponse{
		ID:             m.ID,
		Name:           m.Name,
		Tablets:        m.Tablets,
		Time:           m.Time,
		Email:          m.Email,
		ReminderStatus: m.ReminderStatus,
		ReminderAt:     m.ReminderAt,
		CreatedAt:      m.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
