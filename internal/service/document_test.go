package service_test

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/config"
	"github.com/clinicio/docflow/internal/extraction"
	"github.com/clinicio/docflow/internal/resolver"
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

var _ = Describe("document service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		srv    *service.DocumentService
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		srv = service.NewDocumentService(s, extraction.NewPlainTextExtractor(), resolver.New(nil, resolver.DefaultThresholds()), 3)
	})

	AfterAll(func() {
		s.Close()
	})

	Context("upload", func() {
		It("stores each file as an uploaded document", func() {
			reply, err := srv.Upload(context.TODO(), []api.BatchFileUpload{
				{FileName: "a.txt", Content: "note a"},
				{FileName: "b.txt", Content: "note b"},
			})
			Expect(err).To(BeNil())
			Expect(reply.Uploaded).To(HaveLen(2))
			Expect(reply.Uploaded[0].Status).To(Equal(model.DocumentStatusUploaded))

			count := 0
			err = gormdb.Raw("SELECT COUNT(*) from documents;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(2))
		})

		It("rejects an empty upload", func() {
			_, err := srv.Upload(context.TODO(), nil)
			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from documents;")
		})
	})

	Context("process async", func() {
		It("enqueues one job and moves the documents to processing", func() {
			upload, err := srv.Upload(context.TODO(), []api.BatchFileUpload{
				{FileName: "a.txt", Content: "Session date: 2024-03-12. Jane Doe."},
			})
			Expect(err).To(BeNil())
			docID := upload.Uploaded[0].DocumentId

			reply, err := srv.ProcessAsync(context.TODO(), api.SmartProcessRequest{DocumentIds: []uuid.UUID{docID}})
			Expect(err).To(BeNil())
			Expect(reply.Status).To(Equal(api.JobStatusQueued))

			job, err := s.Job().Get(context.TODO(), reply.JobId)
			Expect(err).To(BeNil())
			Expect(job.Type).To(Equal(service.JobTypeSmartProcess))

			doc, err := s.Document().Get(context.TODO(), docID)
			Expect(err).To(BeNil())
			Expect(doc.Status).To(Equal(model.DocumentStatusProcessing))
		})

		It("returns not found when a document id is unknown", func() {
			_, err := srv.ProcessAsync(context.TODO(), api.SmartProcessRequest{DocumentIds: []uuid.UUID{uuid.New()}})
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from jobs;")
			gormdb.Exec("DELETE from documents;")
		})
	})

	Context("process job", func() {
		It("resolves every document and reports per-document outcomes", func() {
			_, err := s.Client().Create(context.TODO(), model.Client{ID: uuid.New(), Name: "Jane Doe"})
			Expect(err).To(BeNil())

			upload, err := srv.Upload(context.TODO(), []api.BatchFileUpload{
				{FileName: "a.txt", Content: "Session date: 2024-03-12. Jane Doe reported progress."},
				{FileName: "b.txt", Content: "Session date: 2024-03-13. Nobody identifiable."},
			})
			Expect(err).To(BeNil())

			ids := []uuid.UUID{upload.Uploaded[0].DocumentId, upload.Uploaded[1].DocumentId}
			enqueue, err := srv.ProcessAsync(context.TODO(), api.SmartProcessRequest{DocumentIds: ids})
			Expect(err).To(BeNil())

			job, err := s.Job().Get(context.TODO(), enqueue.JobId)
			Expect(err).To(BeNil())

			result, err := srv.ProcessJob(context.TODO(), job)
			Expect(err).To(BeNil())

			var outcomes []map[string]any
			Expect(json.Unmarshal(result, &outcomes)).To(BeNil())
			Expect(outcomes).To(HaveLen(2))

			byDoc := make(map[string]map[string]any, len(outcomes))
			for _, outcome := range outcomes {
				byDoc[outcome["documentId"].(string)] = outcome
			}
			matched := byDoc[ids[0].String()]
			Expect(matched["clientName"]).To(Equal("Jane Doe"))
			Expect(matched["sessionDate"]).To(Equal("2024-03-12"))
			Expect(byDoc[ids[1].String()]["clientId"]).To(BeNil())

			for _, id := range ids {
				doc, err := s.Document().Get(context.TODO(), id)
				Expect(err).To(BeNil())
				Expect(doc.Status).To(Equal(model.DocumentStatusResolved))
			}
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from jobs;")
			gormdb.Exec("DELETE from documents;")
			gormdb.Exec("DELETE from clients;")
		})
	})
})
