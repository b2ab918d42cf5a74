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
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

var _ = Describe("job service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		srv    *service.JobService
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		srv = service.NewJobService(s)
	})

	AfterAll(func() {
		s.Close()
	})

	newDeadJob := func() *model.Job {
		job, err := s.Job().Create(context.TODO(), model.Job{
			ID:         uuid.New(),
			Type:       service.JobTypeSmartProcess,
			Status:     api.JobStatusQueued,
			MaxRetries: 1,
		})
		Expect(err).To(BeNil())

		claimed, err := s.Job().Claim(context.TODO())
		Expect(err).To(BeNil())
		Expect(claimed).ToNot(BeNil())

		dead, err := s.Job().MarkDead(context.TODO(), job.ID, "downstream unavailable")
		Expect(err).To(BeNil())
		return dead
	}

	Context("retry", func() {
		It("resets a dead job back to the queue", func() {
			dead := newDeadJob()

			reset, err := srv.RetryJob(context.TODO(), dead.ID)
			Expect(err).To(BeNil())
			Expect(reset.Status).To(Equal(api.JobStatusQueued))
			Expect(reset.Retries).To(Equal(0))
			Expect(reset.IsDead).To(BeFalse())
		})

		It("refuses to retry a job that did not fail", func() {
			job, err := s.Job().Create(context.TODO(), model.Job{
				ID:     uuid.New(),
				Type:   service.JobTypeSmartProcess,
				Status: api.JobStatusQueued,
			})
			Expect(err).To(BeNil())

			_, err = srv.RetryJob(context.TODO(), job.ID)
			var conflict *service.ErrConflict
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("returns not found for an unknown job", func() {
			_, err := srv.RetryJob(context.TODO(), uuid.New())
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from jobs;")
		})
	})

	Context("list", func() {
		It("filters jobs by status", func() {
			newDeadJob()
			_, err := s.Job().Create(context.TODO(), model.Job{
				ID:     uuid.New(),
				Type:   service.JobTypeSmartProcess,
				Status: api.JobStatusQueued,
			})
			Expect(err).To(BeNil())

			jobs, err := srv.ListJobs(context.TODO(), "", api.JobStatusFailed, 0)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].IsDead).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from jobs;")
		})
	})
})
