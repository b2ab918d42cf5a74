// Package v1alpha1 holds the HTTP handlers for the document intake API.
// Handlers decode and validate requests, call into the service layer and
// translate typed service errors to status codes.
package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/handlers/validator"
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/pkg/requestid"
)

type ServiceHandler struct {
	batchSrv  *service.BatchService
	docSrv    *service.DocumentService
	jobSrv    *service.JobService
	reviewSrv *service.ReviewService
	noteSrv   *service.NoteService
	clientSrv *service.ClientService
	validator *validator.Validator
}

func NewServiceHandler(
	batchSrv *service.BatchService,
	docSrv *service.DocumentService,
	jobSrv *service.JobService,
	reviewSrv *service.ReviewService,
	noteSrv *service.NoteService,
	clientSrv *service.ClientService,
) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewBatchValidationRules()...)
	v.Register(validator.NewAssignValidationRules()...)

	return &ServiceHandler{
		batchSrv:  batchSrv,
		docSrv:    docSrv,
		jobSrv:    jobSrv,
		reviewSrv: reviewSrv,
		noteSrv:   noteSrv,
		clientSrv: clientSrv,
		validator: v,
	}
}

// Routes mounts every operation of the API onto the given router.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/smart-upload", h.SmartUpload)
		r.Post("/smart-process-async", h.SmartProcess)
	})
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.ListJobs)
		r.Get("/{id}", h.GetJob)
		r.Post("/{id}/retry", h.RetryJob)
	})
	r.Route("/transcripts", func(r chi.Router) {
		r.Post("/batches", h.CreateBatch)
		r.Get("/batches", h.ListBatches)
		r.Get("/batches/{id}", h.GetBatch)
		r.Get("/batches/{id}/files", h.ListBatchFiles)
		r.Get("/review", h.ListReviewItems)
		r.Post("/files/{id}/assign", h.AssignFile)
	})
	r.Post("/progress-notes/bulk-paste", h.BulkPaste)
	r.Get("/clients", h.ListClients)
}

func (h *ServiceHandler) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

// renderError maps the service error taxonomy onto HTTP status codes.
func (h *ServiceHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var notFound *service.ErrResourceNotFound
	var invalid *service.ErrInvalidRequest
	var conflict *service.ErrConflict
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.As(err, &conflict):
		status = http.StatusConflict
	}

	h.respond(w, r, status, api.Error{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context())})
}

func (h *ServiceHandler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	h.respond(w, r, http.StatusBadRequest, api.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())})
}

// uuidParam parses the {id} path parameter.
func uuidParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
