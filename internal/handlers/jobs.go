package handlers

import (
	"net/http"
	"strings"

	"bidmarket/models"

	"github.com/go-chi/chi/v5"
)

// CreateJobHandler обрабатывает POST /api/jobs
func (h *Handler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	var job models.Job
	if !h.decodeBody(w, r, &job) {
		return
	}
	// id и дату создания назначает хранилище
	job.ID = ""
	job.Buyer.Email = strings.TrimSpace(job.Buyer.Email)

	out, err := h.Bids.PostJob(r.Context(), job)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !out.Accepted() {
		writeRejection(w, out.Rejection)
		return
	}

	writeJSON(w, http.StatusCreated, out.Value)
}

// GetJobHandler обрабатывает GET /api/jobs/{jobId}
func (h *Handler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(chi.URLParam(r, "jobId"))
	if jobID == "" {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "Invalid jobId")
		return
	}

	out, err := h.Bids.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !out.Accepted() {
		writeRejection(w, out.Rejection)
		return
	}

	writeJSON(w, http.StatusOK, out.Value)
}
