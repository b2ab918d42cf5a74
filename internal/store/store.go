package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/clinicio/docflow/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Batch() Batch
	FileJob() FileJob
	Job() Job
	Client() Client
	Document() Document
	ProgressNote() ProgressNote
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db           *gorm.DB
	batch        Batch
	fileJob      FileJob
	job          Job
	client       Client
	document     Document
	progressNote ProgressNote
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:           db,
		batch:        NewBatchStore(db),
		fileJob:      NewFileJobStore(db),
		job:          NewJobStore(db),
		client:       NewClientStore(db),
		document:     NewDocumentStore(db),
		progressNote: NewProgressNoteStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Batch() Batch {
	return s.batch
}

func (s *DataStore) FileJob() FileJob {
	return s.fileJob
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Client() Client {
	return s.client
}

func (s *DataStore) Document() Document {
	return s.document
}

func (s *DataStore) ProgressNote() ProgressNote {
	return s.progressNote
}

// InitialMigration creates the schema through gorm. Production deployments
// run the goose migrations instead; this path backs sqlite and dev setups.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Batch{},
		&model.FileJob{},
		&model.Job{},
		&model.Client{},
		&model.Session{},
		&model.Document{},
		&model.ProgressNote{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
