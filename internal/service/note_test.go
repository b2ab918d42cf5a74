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

const pastedNotes = `3/12/2024

Client reported improved sleep this week. Continued CBT exercises.

3/19/2024

Client discussed work stress. Practiced grounding techniques.

Undated note without any anchor to a session.`

var _ = Describe("note service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		srv    *service.NoteService
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())

		srv = service.NewNoteService(s, 7)
	})

	AfterAll(func() {
		s.Close()
	})

	newClientWithSessions := func(dates ...time.Time) *model.Client {
		client, err := s.Client().Create(context.TODO(), model.Client{ID: uuid.New(), Name: "Jane Doe"})
		Expect(err).To(BeNil())
		for _, date := range dates {
			_, err := s.Client().CreateSession(context.TODO(), model.Session{
				ID:          uuid.New(),
				ClientID:    client.ID,
				SessionDate: date,
				SessionType: "individual",
			})
			Expect(err).To(BeNil())
		}
		return client
	}

	countNotes := func() int {
		count := 0
		err := gormdb.Raw("SELECT COUNT(*) from progress_notes;").Scan(&count).Error
		Expect(err).To(BeNil())
		return count
	}

	Context("bulk paste", func() {
		It("previews without writing when dryRun is set", func() {
			client := newClientWithSessions(
				time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC),
			)

			dryRun := true
			reply, err := srv.BulkPaste(context.TODO(), api.BulkPasteRequest{
				ClientId: client.ID,
				RawText:  pastedNotes,
				DryRun:   &dryRun,
			})
			Expect(err).To(BeNil())
			Expect(reply.DryRun).To(BeTrue())
			Expect(reply.Total).To(Equal(3))
			Expect(reply.MatchedSessions).To(Equal(2))
			Expect(reply.MissingSessions).To(Equal(1))

			Expect(countNotes()).To(Equal(0))
		})

		It("commits the matched segments as progress notes", func() {
			client := newClientWithSessions(
				time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC),
			)

			reply, err := srv.BulkPaste(context.TODO(), api.BulkPasteRequest{
				ClientId: client.ID,
				RawText:  pastedNotes,
			})
			Expect(err).To(BeNil())
			Expect(reply.DryRun).To(BeFalse())
			Expect(reply.MatchedSessions).To(Equal(2))

			Expect(countNotes()).To(Equal(2))

			notes, err := s.ProgressNote().ListByClient(context.TODO(), client.ID)
			Expect(err).To(BeNil())
			Expect(notes).To(HaveLen(2))
			Expect(notes[0].SessionID).ToNot(BeNil())
			Expect(notes[0].Content).To(ContainSubstring("improved sleep"))
		})

		It("marks dated segments without a session within tolerance", func() {
			client := newClientWithSessions(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

			reply, err := srv.BulkPaste(context.TODO(), api.BulkPasteRequest{
				ClientId: client.ID,
				RawText:  "3/12/2024\n\nNote far away from any appointment.",
			})
			Expect(err).To(BeNil())
			Expect(reply.MatchedSessions).To(Equal(0))
			Expect(reply.MissingSessions).To(Equal(1))
			Expect(reply.Results[0].Status).To(Equal(service.SegmentStatusNoSession))
			Expect(reply.Results[0].ExtractedDate).ToNot(BeNil())

			Expect(countNotes()).To(Equal(0))
		})

		It("widens the session match with the date tolerance", func() {
			client := newClientWithSessions(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC))

			tolerance := 3
			reply, err := srv.BulkPaste(context.TODO(), api.BulkPasteRequest{
				ClientId:          client.ID,
				RawText:           "3/12/2024\n\nNote two days before the appointment.",
				DateToleranceDays: &tolerance,
			})
			Expect(err).To(BeNil())
			Expect(reply.MatchedSessions).To(Equal(1))
			Expect(reply.Results[0].Status).To(Equal(service.SegmentStatusMatched))
		})

		It("rejects text with no notes", func() {
			client := newClientWithSessions()

			_, err := srv.BulkPaste(context.TODO(), api.BulkPasteRequest{
				ClientId: client.ID,
				RawText:  "  \n\n   ",
			})
			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("returns not found for an unknown client", func() {
			_, err := srv.BulkPaste(context.TODO(), api.BulkPasteRequest{
				ClientId: uuid.New(),
				RawText:  "3/12/2024\n\nNote.",
			})
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DELETE from progress_notes;")
			gormdb.Exec("DELETE from sessions;")
			gormdb.Exec("DELETE from clients;")
		})
	})
})
