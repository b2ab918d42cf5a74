package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

func (h *ServiceHandler) ListReviewItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.reviewSrv.ListReviewItems(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, items)
}

func (h *ServiceHandler) AssignFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		h.badRequest(w, r, "invalid file job id")
		return
	}

	var req api.AssignRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "malformed request body: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	reply, err := h.reviewSrv.Assign(r.Context(), id, req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, reply)
}
