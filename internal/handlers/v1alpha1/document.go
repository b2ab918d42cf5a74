package v1alpha1

import (
	"io"
	"net/http"

	"github.com/go-chi/render"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

const maxUploadMemory = 32 << 20

// SmartUpload accepts a multipart form with one or more "files" parts and
// stores them for a later smart-process-async call.
func (h *ServiceHandler) SmartUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.badRequest(w, r, "failed to parse multipart form: "+err.Error())
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.badRequest(w, r, "at least one file is required")
		return
	}

	files := make([]api.BatchFileUpload, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			h.badRequest(w, r, "failed to read file "+header.Filename)
			return
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			h.badRequest(w, r, "failed to read file "+header.Filename)
			return
		}

		file := api.BatchFileUpload{FileName: header.Filename, Content: string(data)}
		if err := h.validator.Struct(file); err != nil {
			h.badRequest(w, r, err.Error())
			return
		}
		files = append(files, file)
	}

	reply, err := h.docSrv.Upload(r.Context(), files)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, reply)
}

func (h *ServiceHandler) SmartProcess(w http.ResponseWriter, r *http.Request) {
	var req api.SmartProcessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "malformed request body: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	reply, err := h.docSrv.ProcessAsync(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusAccepted, reply)
}
