package v1alpha1

import (
	"net/http"
	"strconv"
)

const defaultJobListLimit = 50

func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		h.badRequest(w, r, "invalid job id")
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, job)
}

func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.badRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := h.jobSrv.ListJobs(r.Context(), r.URL.Query().Get("type"), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, jobs)
}

func (h *ServiceHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		h.badRequest(w, r, "invalid job id")
		return
	}

	job, err := h.jobSrv.RetryJob(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, job)
}
