package notes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Prefix is where the notes API is mounted and the prefix purged after writes.
const Prefix = "/notes"

// maxBodyBytes bounds request bodies for create and update.
const maxBodyBytes = 64 << 10

// NotesMutations tracks writes by operation ("create", "update", "delete")
var NotesMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notes_mutations_total",
		Help: "Total number of note writes",
	},
	[]string{"operation"},
)

// Purger invalidates cached responses; *cache.Middleware satisfies it.
type Purger interface {
	PurgePrefix(ctx context.Context, prefix string) error
}

// Handler serves the notes API.
type Handler struct {
	repo   *Repository
	purger Purger
	logger zerolog.Logger
}

// NewHandler creates the notes API over repo. purger may be nil when no cache is in front.
func NewHandler(repo *Repository, purger Purger, logger zerolog.Logger) *Handler {
	return &Handler{repo: repo, purger: purger, logger: logger}
}

// Routes returns the API router, to be mounted at Prefix.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

type noteInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	notes, err := h.repo.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	n, err := h.repo.Create(r.Context(), in.Title, in.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(r, "create")
	w.Header().Set("Location", Prefix+"/"+n.ID)
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	n, err := h.repo.Update(r.Context(), chi.URLParam(r, "id"), in.Title, in.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(r, "update")
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutated(r, "delete")
	w.WriteHeader(http.StatusNoContent)
}

// mutated records a write and drops every cached notes response.
func (h *Handler) mutated(r *http.Request, operation string) {
	NotesMutations.WithLabelValues(operation).Inc()
	if h.purger == nil {
		return
	}
	if err := h.purger.PurgePrefix(r.Context(), Prefix); err != nil {
		h.loggerFor(r).Warn().Err(err).Str("operation", operation).Msg("Failed to purge notes cache")
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	h.loggerFor(r).Error().Err(err).Msg("Notes request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (h *Handler) loggerFor(r *http.Request) *zerolog.Logger {
	logger := hlog.FromRequest(r)
	if logger.GetLevel() == zerolog.Disabled {
		return &h.logger
	}
	return logger
}

func decodeInput(w http.ResponseWriter, r *http.Request) (noteInput, bool) {
	var in noteInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return in, false
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title is required"})
		return in, false
	}
	return in, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
