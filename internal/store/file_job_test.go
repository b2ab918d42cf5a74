package store_test

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
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/internal/store/model"
)

var _ = Describe("file job store", Ordered, func() {
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

	newFileJob := func(fileName string, createdAt time.Time) *model.FileJob {
		batch, err := s.Batch().Create(context.TODO(), model.Batch{
			ID:         uuid.New(),
			Name:       "intake",
			TotalFiles: 1,
			Status:     api.BatchStatusUploading,
			UploadedAt: time.Now(),
		})
		Expect(err).To(BeNil())

		job, err := s.FileJob().Create(context.TODO(), model.FileJob{
			ID:         uuid.New(),
			BatchID:    batch.ID,
			FileName:   fileName,
			Status:     api.FileJobStatusUploaded,
			MaxRetries: 3,
			CreatedAt:  createdAt,
		})
		Expect(err).To(BeNil())
		return job
	}

	Context("claim", func() {
		It("claims the oldest uploaded job and moves it to processing", func() {
			older := newFileJob("first.txt", time.Now().Add(-time.Minute))
			newFileJob("second.txt", time.Now())

			claimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed).ToNot(BeNil())
			Expect(claimed.ID).To(Equal(older.ID))
			Expect(claimed.Status).To(Equal(api.FileJobStatusProcessing))
		})

		It("never hands the same job to two claimers", func() {
			job := newFileJob("only.txt", time.Now())

			first, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(first).ToNot(BeNil())
			Expect(first.ID).To(Equal(job.ID))

			second, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(second).To(BeNil())
		})

		It("returns nil when nothing is pending", func() {
			claimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed).To(BeNil())
		})

		It("re-claims a requeued job only after its attempt time passes", func() {
			job := newFileJob("retry.txt", time.Now())

			claimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed).ToNot(BeNil())

			// schedule the retry in the future, must stay invisible
			err = s.FileJob().Requeue(context.TODO(), job.ID, 1, time.Now().Add(time.Hour), "transient")
			Expect(err).To(BeNil())

			invisible, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(invisible).To(BeNil())

			// backdate the attempt time
			err = s.FileJob().Requeue(context.TODO(), job.ID, 1, time.Now().Add(-time.Second), "transient")
			Expect(err).To(BeNil())

			reclaimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(reclaimed).ToNot(BeNil())
			Expect(reclaimed.ID).To(Equal(job.ID))
			Expect(reclaimed.Retries).To(Equal(1))
			// the new claim holds its own lease
			Expect(reclaimed.NextAttemptAt).ToNot(BeNil())
			Expect(reclaimed.NextAttemptAt.After(time.Now())).To(BeTrue())
		})

		It("reclaims a job whose claim lease expired", func() {
			job := newFileJob("stalled.txt", time.Now())

			claimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed).ToNot(BeNil())
			Expect(claimed.NextAttemptAt).ToNot(BeNil())

			// the lease is held, nobody else gets the job
			held, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(held).To(BeNil())

			// expire the lease, as if the claiming worker died mid-file
			err = gormdb.Exec("UPDATE file_jobs SET next_attempt_at = ? WHERE id = ?",
				time.Now().Add(-time.Second), job.ID).Error
			Expect(err).To(BeNil())

			reclaimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(reclaimed).ToNot(BeNil())
			Expect(reclaimed.ID).To(Equal(job.ID))
			Expect(reclaimed.Status).To(Equal(api.FileJobStatusProcessing))
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from file_jobs;")
			gormdb.Exec("DELETE from batches;")
		})
	})

	Context("status", func() {
		It("rejects a jump from uploaded straight to completed", func() {
			job := newFileJob("note.txt", time.Now())

			_, err := s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusCompleted, store.FileJobPatch{})
			var invalid *store.ErrInvalidTransition
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("rejects requeue once the job left processing", func() {
			job := newFileJob("note.txt", time.Now())

			claimed, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			Expect(claimed).ToNot(BeNil())

			_, err = s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusCompleted, store.FileJobPatch{})
			Expect(err).To(BeNil())

			err = s.FileJob().Requeue(context.TODO(), job.ID, 1, time.Now(), "late failure")
			Expect(errors.Is(err, store.ErrStaleWrite)).To(BeTrue())
		})

		It("accumulates processing notes across updates", func() {
			job := newFileJob("note.txt", time.Now())

			_, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())

			first := "matched Jane Doe at 95"
			_, err = s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusCompleted, store.FileJobPatch{AppendNote: &first})
			Expect(err).To(BeNil())

			second := "assigned to Jane Doe by reviewer"
			updated, err := s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusAssigned, store.FileJobPatch{AppendNote: &second})
			Expect(err).To(BeNil())
			Expect(updated.NoteList()).To(Equal([]string{first, second}))
		})

		It("lets a reviewer reassign an already assigned file", func() {
			job := newFileJob("note.txt", time.Now())

			_, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())

			_, err = s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusNeedsReview, store.FileJobPatch{})
			Expect(err).To(BeNil())

			_, err = s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusAssigned, store.FileJobPatch{})
			Expect(err).To(BeNil())

			updated, err := s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusAssigned, store.FileJobPatch{})
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(api.FileJobStatusAssigned))
		})

		It("counts the review queue depth", func() {
			job := newFileJob("note.txt", time.Now())

			_, err := s.FileJob().Claim(context.TODO())
			Expect(err).To(BeNil())
			_, err = s.FileJob().UpdateStatus(context.TODO(), job.ID, api.FileJobStatusNeedsReview, store.FileJobPatch{})
			Expect(err).To(BeNil())

			depth, err := s.FileJob().CountNeedsReview(context.TODO())
			Expect(err).To(BeNil())
			Expect(depth).To(Equal(1))
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from file_jobs;")
			gormdb.Exec("DELETE from batches;")
		})
	})
})
