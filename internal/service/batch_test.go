package service_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/config"
	"github.com/clinicio/docflow/internal/progress"
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/internal/store"
)

var _ = Describe("batch service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		srv    *service.BatchService
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		srv = service.NewBatchService(s, 3, 7)
	})

	AfterAll(func() {
		s.Close()
	})

	Context("create", func() {
		It("creates the batch and one file job per upload", func() {
			batch, err := srv.CreateBatch(context.TODO(), api.BatchCreateRequest{
				BatchName: "march intake",
				Files: []api.BatchFileUpload{
					{FileName: "a.txt", Content: "Session date: 2024-03-12. Jane Doe."},
					{FileName: "b.txt", Content: "Session date: 2024-03-13. John Smith."},
				},
			})
			Expect(err).To(BeNil())
			Expect(batch.TotalFiles).To(Equal(2))
			Expect(batch.Status).To(Equal(api.BatchStatusUploading))
			Expect(batch.Eta).To(Equal(progress.EtaCalculating))

			files, err := srv.ListBatchFiles(context.TODO(), batch.Id, "")
			Expect(err).To(BeNil())
			Expect(files).To(HaveLen(2))
			Expect(files[0].Status).To(Equal(api.FileJobStatusUploaded))
		})

		It("clamps the date tolerance to the configured maximum", func() {
			tolerance := 30
			batch, err := srv.CreateBatch(context.TODO(), api.BatchCreateRequest{
				BatchName:         "march intake",
				Files:             []api.BatchFileUpload{{FileName: "a.txt", Content: "note"}},
				DateToleranceDays: &tolerance,
			})
			Expect(err).To(BeNil())

			stored := 0
			err = gormdb.Raw("SELECT date_tolerance FROM file_jobs WHERE batch_id = ?", batch.Id).Scan(&stored).Error
			Expect(err).To(BeNil())
			Expect(stored).To(Equal(7))
		})

		It("filters batch files by status", func() {
			batch, err := srv.CreateBatch(context.TODO(), api.BatchCreateRequest{
				BatchName: "march intake",
				Files:     []api.BatchFileUpload{{FileName: "a.txt", Content: "note"}},
			})
			Expect(err).To(BeNil())

			files, err := srv.ListBatchFiles(context.TODO(), batch.Id, api.FileJobStatusCompleted)
			Expect(err).To(BeNil())
			Expect(files).To(HaveLen(0))
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from file_jobs;")
			gormdb.Exec("DELETE from batches;")
		})
	})

	Context("get", func() {
		It("returns not found for an unknown batch", func() {
			_, err := srv.GetBatch(context.TODO(), uuid.New())
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("returns not found when listing files of an unknown batch", func() {
			_, err := srv.ListBatchFiles(context.TODO(), uuid.New(), "")
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})
})
