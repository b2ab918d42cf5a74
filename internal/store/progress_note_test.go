package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/config"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

var _ = Describe("progress note store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	newClient := func(name string) *model.Client {
		client, err := s.Client().Create(context.TODO(), model.Client{ID: uuid.New(), Name: name})
		Expect(err).To(BeNil())
		return client
	}

	newAssignedFileJob := func() *model.FileJob {
		batch, err := s.Batch().Create(context.TODO(), model.Batch{
			ID:         uuid.New(),
			Name:       "intake",
			TotalFiles: 1,
			Status:     api.BatchStatusUploading,
			UploadedAt: time.Now(),
		})
		Expect(err).To(BeNil())

		job, err := s.FileJob().Create(context.TODO(), model.FileJob{
			ID:       uuid.New(),
			BatchID:  batch.ID,
			FileName: "note.txt",
			Status:   api.FileJobStatusAssigned,
		})
		Expect(err).To(BeNil())
		return job
	}

	Context("upsert", func() {
		It("creates one note per file job and updates it in place", func() {
			client := newClient("Jane Doe")
			other := newClient("John Smith")
			job := newAssignedFileJob()
			sessionDate := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

			first, err := s.ProgressNote().UpsertForFileJob(context.TODO(), model.ProgressNote{
				ID:          uuid.New(),
				FileJobID:   &job.ID,
				ClientID:    client.ID,
				SessionDate: sessionDate,
				SessionType: "individual",
				Content:     "initial content",
			})
			Expect(err).To(BeNil())

			// a correction reassigns the same file to another client
			second, err := s.ProgressNote().UpsertForFileJob(context.TODO(), model.ProgressNote{
				ID:          uuid.New(),
				FileJobID:   &job.ID,
				ClientID:    other.ID,
				SessionDate: sessionDate,
				SessionType: "individual",
				Content:     "corrected content",
			})
			Expect(err).To(BeNil())
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.ClientID).To(Equal(other.ID))
			Expect(second.Content).To(Equal("corrected content"))

			count := 0
			err = gormdb.Raw("SELECT COUNT(*) from progress_notes;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rejects an upsert without a file job reference", func() {
			client := newClient("Jane Doe")

			_, err := s.ProgressNote().UpsertForFileJob(context.TODO(), model.ProgressNote{
				ID:          uuid.New(),
				ClientID:    client.ID,
				SessionDate: time.Now(),
			})
			Expect(err).ToNot(BeNil())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from progress_notes;")
			gormdb.Exec("DELETE from file_jobs;")
			gormdb.Exec("DELETE from batches;")
			gormdb.Exec("DELETE from clients;")
		})
	})

	Context("bulk paste notes", func() {
		It("allows many notes without a file job for the same client", func() {
			client := newClient("Jane Doe")

			for day := 1; day <= 3; day++ {
				_, err := s.ProgressNote().Create(context.TODO(), model.ProgressNote{
					ID:          uuid.New(),
					ClientID:    client.ID,
					SessionDate: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
					Content:     "pasted note",
				})
				Expect(err).To(BeNil())
			}

			notes, err := s.ProgressNote().ListByClient(context.TODO(), client.ID)
			Expect(err).To(BeNil())
			Expect(notes).To(HaveLen(3))
			// ordered by session date
			Expect(notes[0].SessionDate.Before(notes[2].SessionDate)).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from progress_notes;")
			gormdb.Exec("DELETE from clients;")
		})
	})
})
