package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/extraction"
	"github.com/clinicio/docflow/internal/resolver"
	"github.com/clinicio/docflow/internal/service/mappers"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

// JobTypeSmartProcess is the generic job type created by
// smart-process-async and executed by ProcessJob.
const JobTypeSmartProcess = "smart-process-async"

type smartProcessPayload struct {
	DocumentIds []uuid.UUID `json:"documentIds"`
}

// smartProcessOutcome is one per-document entry of the job result.
type smartProcessOutcome struct {
	DocumentId  uuid.UUID  `json:"documentId"`
	ClientId    *uuid.UUID `json:"clientId,omitempty"`
	ClientName  *string    `json:"clientName,omitempty"`
	Confidence  int        `json:"confidence"`
	SessionDate *string    `json:"sessionDate,omitempty"`
	Decision    string     `json:"decision"`
}

type DocumentService struct {
	store      store.Store
	extractor  extraction.TextExtractor
	resolver   *resolver.Resolver
	maxRetries int
	log        *zap.SugaredLogger
}

func NewDocumentService(s store.Store, extractor extraction.TextExtractor, r *resolver.Resolver, maxRetries int) *DocumentService {
	return &DocumentService{
		store:      s,
		extractor:  extractor,
		resolver:   r,
		maxRetries: maxRetries,
		log:        zap.S().Named("document_service"),
	}
}

// Upload stores raw documents for a later smart-process-async call.
func (s *DocumentService) Upload(ctx context.Context, files []api.BatchFileUpload) (*api.SmartUploadReply, error) {
	if len(files) == 0 {
		return nil, NewErrInvalidRequest("no files in upload")
	}

	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	reply := &api.SmartUploadReply{Uploaded: make([]api.UploadedDocument, 0, len(files))}
	for _, file := range files {
		doc, err := s.store.Document().Create(ctx, model.Document{
			ID:       uuid.New(),
			FileName: file.FileName,
			Content:  file.Content,
			Status:   model.DocumentStatusUploaded,
		})
		if err != nil {
			_, _ = store.Rollback(ctx)
			return nil, err
		}
		reply.Uploaded = append(reply.Uploaded, doc.ToApiResource())
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Infow("documents uploaded", "count", len(reply.Uploaded))
	return reply, nil
}

// ProcessAsync enqueues one generic job covering the given documents and
// returns immediately with the job handle.
func (s *DocumentService) ProcessAsync(ctx context.Context, req api.SmartProcessRequest) (*api.SmartProcessReply, error) {
	docs, err := s.store.Document().ListByIDs(ctx, req.DocumentIds)
	if err != nil {
		return nil, err
	}
	if len(docs) != len(req.DocumentIds) {
		found := make(map[uuid.UUID]bool, len(docs))
		for _, d := range docs {
			found[d.ID] = true
		}
		for _, id := range req.DocumentIds {
			if !found[id] {
				return nil, NewErrDocumentNotFound(id)
			}
		}
	}

	payload, err := json.Marshal(smartProcessPayload{DocumentIds: req.DocumentIds})
	if err != nil {
		return nil, err
	}

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	job, err := s.store.Job().Create(ctx, model.Job{
		ID:         uuid.New(),
		Type:       JobTypeSmartProcess,
		Status:     api.JobStatusQueued,
		Payload:    payload,
		MaxRetries: s.maxRetries,
	})
	if err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}
	for _, doc := range docs {
		if err := s.store.Document().UpdateStatus(ctx, doc.ID, model.DocumentStatusProcessing); err != nil {
			_, _ = store.Rollback(ctx)
			return nil, err
		}
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Infow("smart process job enqueued", "job", job.ID, "documents", len(docs))
	return &api.SmartProcessReply{JobId: job.ID, Status: job.Status}, nil
}

// ProcessJob executes one smart-process job: every document is extracted
// and resolved against the roster, and the per-document outcomes become
// the job result. Matches the scheduler's handler signature.
func (s *DocumentService) ProcessJob(ctx context.Context, job *model.Job) ([]byte, error) {
	var payload smartProcessPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding job payload: %w", err)
	}

	docs, err := s.store.Document().ListByIDs(ctx, payload.DocumentIds)
	if err != nil {
		return nil, err
	}

	clients, err := s.store.Client().List(ctx)
	if err != nil {
		return nil, err
	}
	roster := mappers.KnownClients(clients)

	outcomes := make([]smartProcessOutcome, 0, len(docs))
	for _, doc := range docs {
		outcome, err := s.processDocument(ctx, doc, roster)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)

		if err := s.store.Document().UpdateStatus(ctx, doc.ID, model.DocumentStatusResolved); err != nil {
			return nil, err
		}
	}

	return json.Marshal(outcomes)
}

func (s *DocumentService) processDocument(ctx context.Context, doc model.Document, roster []resolver.KnownClient) (*smartProcessOutcome, error) {
	text, err := s.extractor.Extract(ctx, extraction.Document{
		FileName:   doc.FileName,
		Content:    doc.Content,
		UploadedAt: doc.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.resolver.Resolve(ctx, resolver.Input{
		Text:       text,
		FileName:   doc.FileName,
		UploadedAt: doc.CreatedAt,
		Clients:    roster,
	})
	if err != nil {
		return nil, err
	}

	outcome := &smartProcessOutcome{
		DocumentId: doc.ID,
		Confidence: result.ClientConfidence,
		Decision:   string(result.Decision),
	}
	if result.Best != nil {
		outcome.ClientId = &result.Best.ClientID
		outcome.ClientName = &result.Best.ClientName
	}
	if result.SessionDate != nil {
		d := result.SessionDate.Format("2006-01-02")
		outcome.SessionDate = &d
	}
	return outcome, nil
}
