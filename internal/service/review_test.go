package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/config"
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

var _ = Describe("review service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		srv    *service.ReviewService
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		srv = service.NewReviewService(s)
	})

	AfterAll(func() {
		s.Close()
	})

	newFileJob := func(status string) *model.FileJob {
		batch, err := s.Batch().Create(context.TODO(), model.Batch{
			ID:         uuid.New(),
			Name:       "intake",
			TotalFiles: 1,
			Status:     api.BatchStatusProcessing,
			UploadedAt: time.Now(),
		})
		Expect(err).To(BeNil())

		job, err := s.FileJob().Create(context.TODO(), model.FileJob{
			ID:            uuid.New(),
			BatchID:       batch.ID,
			FileName:      "note.txt",
			Content:       "Discussed the week. No name mentioned.",
			Status:        status,
			DateTolerance: 1,
		})
		Expect(err).To(BeNil())
		return job
	}

	newClientWithSession := func(name string, sessionDate time.Time) *model.Client {
		client, err := s.Client().Create(context.TODO(), model.Client{ID: uuid.New(), Name: name})
		Expect(err).To(BeNil())
		_, err = s.Client().CreateSession(context.TODO(), model.Session{
			ID:          uuid.New(),
			ClientID:    client.ID,
			SessionDate: sessionDate,
			SessionType: "individual",
		})
		Expect(err).To(BeNil())
		return client
	}

	Context("queue", func() {
		It("lists only files waiting for review", func() {
			newFileJob(api.FileJobStatusNeedsReview)
			newFileJob(api.FileJobStatusCompleted)

			items, err := srv.ListReviewItems(context.TODO())
			Expect(err).To(BeNil())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Status).To(Equal(api.FileJobStatusNeedsReview))
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from file_jobs;")
			gormdb.Exec("DELETE from batches;")
		})
	})

	Context("assign", func() {
		It("assigns a file to a client and creates the progress note", func() {
			job := newFileJob(api.FileJobStatusNeedsReview)
			sessionDate := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
			client := newClientWithSession("Jane Doe", sessionDate)

			reply, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    client.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			Expect(err).To(BeNil())
			Expect(reply.FileJob.Status).To(Equal(api.FileJobStatusAssigned))

			note, err := s.ProgressNote().GetByFileJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(note.ID).To(Equal(reply.ProgressNoteId))
			Expect(note.ClientID).To(Equal(client.ID))
			Expect(note.SessionID).ToNot(BeNil())
		})

		It("assigning twice keeps a single note per file", func() {
			job := newFileJob(api.FileJobStatusNeedsReview)
			sessionDate := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
			first := newClientWithSession("Jane Doe", sessionDate)
			second := newClientWithSession("John Smith", sessionDate)

			_, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    first.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			Expect(err).To(BeNil())

			reply, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    second.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			Expect(err).To(BeNil())
			Expect(reply.FileJob.Status).To(Equal(api.FileJobStatusAssigned))

			count := 0
			err = gormdb.Raw("SELECT COUNT(*) from progress_notes;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))

			note, err := s.ProgressNote().GetByFileJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(note.ClientID).To(Equal(second.ID))
		})

		It("completes the batch once its last file is assigned", func() {
			job := newFileJob(api.FileJobStatusNeedsReview)
			sessionDate := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
			client := newClientWithSession("Jane Doe", sessionDate)

			_, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    client.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			Expect(err).To(BeNil())

			batch, err := s.Batch().Get(context.TODO(), job.BatchID)
			Expect(err).To(BeNil())
			Expect(batch.Status).To(Equal(api.BatchStatusCompleted))
			Expect(batch.ProcessedFiles).To(Equal(1))
			Expect(batch.SuccessfulFiles).To(Equal(1))
			Expect(batch.FailedFiles).To(Equal(0))
			Expect(batch.ProcessedAt).ToNot(BeNil())
		})

		It("corrects an auto-assigned file", func() {
			job := newFileJob(api.FileJobStatusCompleted)
			sessionDate := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
			client := newClientWithSession("Jane Doe", sessionDate)

			reply, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    client.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			Expect(err).To(BeNil())
			Expect(reply.FileJob.Status).To(Equal(api.FileJobStatusAssigned))
		})

		It("refuses to assign a file still processing", func() {
			job := newFileJob(api.FileJobStatusProcessing)
			client := newClientWithSession("Jane Doe", time.Now())

			_, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    client.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			var conflict *service.ErrConflict
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("returns not found for an unknown file job", func() {
			client := newClientWithSession("Jane Doe", time.Now())

			_, err := srv.Assign(context.TODO(), uuid.New(), api.AssignRequest{
				ClientId:    client.ID,
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("returns not found for an unknown client", func() {
			job := newFileJob(api.FileJobStatusNeedsReview)

			_, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    uuid.New(),
				SessionDate: "2024-03-12",
				SessionType: "individual",
			})
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("rejects a malformed session date", func() {
			job := newFileJob(api.FileJobStatusNeedsReview)
			client := newClientWithSession("Jane Doe", time.Now())

			_, err := srv.Assign(context.TODO(), job.ID, api.AssignRequest{
				ClientId:    client.ID,
				SessionDate: "12/03/2024",
				SessionType: "individual",
			})
			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from progress_notes;")
			gormdb.Exec("DELETE from file_jobs;")
			gormdb.Exec("DELETE from batches;")
			gormdb.Exec("DELETE from sessions;")
			gormdb.Exec("DELETE from clients;")
		})
	})
})
