package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	service        services.ProjectServiceProvider
	maxUploadBytes int64
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service services.ProjectServiceProvider, maxUploadBytes int64) *ProjectHandler {
	return &ProjectHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// ProjectPayload defines the structure for project creation requests.
type ProjectPayload struct {
	Name    string `json:"name"`
	DueDate string `json:"dueDate"`
	Status  string `json:"status"`
}

// ProjectPatchPayload carries the fields of a partial update. Absent fields
// are left unchanged.
type ProjectPatchPayload struct {
	Name    *string `json:"name"`
	DueDate *string `json:"dueDate"`
	Status  *string `json:"status"`
}

// GetAll lists the caller's projects.
func (h *ProjectHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	projects, err := h.service.GetAllProjects(r.Context(), uid, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, log.Error().Str("user_id", uid), err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get returns one project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	project, err := h.service.GetProjectByID(r.Context(), uid, id)
	if err != nil {
		writeError(w, log.Error().Str("project_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Create adds a project for the caller.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var payload ProjectPayload
	if !decode(w, r, &payload) {
		return
	}

	project, err := h.service.CreateProject(r.Context(), uid, services.ProjectInput{
		Name:    payload.Name,
		DueDate: payload.DueDate,
		Status:  payload.Status,
	})
	if err != nil {
		writeError(w, log.Error().Str("user_id", uid), err)
		return
	}

	log.Info().Str("project_id", project.ID).Str("user_id", uid).Msg("Project created")
	writeJSON(w, http.StatusCreated, project)
}

// Update applies a partial update to a project.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload ProjectPatchPayload
	if !decode(w, r, &payload) {
		return
	}

	project, err := h.service.UpdateProject(r.Context(), uid, id, services.ProjectPatch{
		Name:    payload.Name,
		DueDate: payload.DueDate,
		Status:  payload.Status,
	})
	if err != nil {
		writeError(w, log.Error().Str("project_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Delete removes a project and its payments.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProject(r.Context(), uid, id); err != nil {
		writeError(w, log.Error().Str("project_id", id), err)
		return
	}

	log.Info().Str("project_id", id).Str("user_id", uid).Msg("Project deleted")
	writeMessage(w, http.StatusOK, "Project deleted successfully")
}

// Export streams the caller's projects as a CSV attachment. The body is
// buffered so a failure can still be reported as a 500.
func (h *ProjectHandler) Export(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportProjects(r.Context(), uid, &buf); err != nil {
		writeError(w, log.Error().Str("user_id", uid), err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="projects.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Failed to write export")
	}
}

// Import reads a CSV upload from the multipart field "file".
func (h *ProjectHandler) Import(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	res, err := h.service.ImportProjects(r.Context(), uid, file)
	if err != nil {
		writeError(w, log.Error().Str("user_id", uid), err)
		return
	}

	log.Info().Str("user_id", uid).Int("imported", res.Imported).Msg("Projects imported")
	writeJSON(w, http.StatusOK, struct {
		Message  string `json:"message"`
		Imported int    `json:"imported"`
	}{Message: "Import successful", Imported: res.Imported})
}

// Earnings summarizes paid and pending amounts for ?year (default: this year).
func (h *ProjectHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			writeMessage(w, http.StatusBadRequest, "year must be a number")
			return
		}
		year = y
	}

	summary, err := h.service.GetEarnings(r.Context(), uid, year)
	if err != nil {
		writeError(w, log.Error().Str("user_id", uid), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
