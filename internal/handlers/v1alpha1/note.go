package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

func (h *ServiceHandler) BulkPaste(w http.ResponseWriter, r *http.Request) {
	var req api.BulkPasteRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "malformed request body: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	reply, err := h.noteSrv.BulkPaste(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, reply)
}
