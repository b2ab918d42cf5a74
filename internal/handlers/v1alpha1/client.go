package v1alpha1

import (
	"net/http"
)

func (h *ServiceHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clientSrv.ListClients(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, clients)
}
