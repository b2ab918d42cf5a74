package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

func (h *ServiceHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req api.BatchCreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "malformed request body: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	batch, err := h.batchSrv.CreateBatch(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, batch)
}

func (h *ServiceHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batchSrv.ListBatches(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, batches)
}

func (h *ServiceHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		h.badRequest(w, r, "invalid batch id")
		return
	}

	batch, err := h.batchSrv.GetBatch(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, batch)
}

func (h *ServiceHandler) ListBatchFiles(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		h.badRequest(w, r, "invalid batch id")
		return
	}

	files, err := h.batchSrv.ListBatchFiles(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, files)
}
