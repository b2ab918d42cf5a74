package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicio/docflow/internal/store/model"
)

type Document interface {
	Create(ctx context.Context, doc model.Document) (*model.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) (model.DocumentList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type DocumentStore struct {
	db *gorm.DB
}

// Make sure we conform to Document interface
var _ Document = (*DocumentStore)(nil)

func NewDocumentStore(db *gorm.DB) Document {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Create(ctx context.Context, doc model.Document) (*model.Document, error) {
	if result := s.getDB(ctx).Create(&doc); result.Error != nil {
		return nil, fmt.Errorf("creating document: %w", result.Error)
	}
	return &doc, nil
}

func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc := model.Document{ID: id}
	result := s.getDB(ctx).First(&doc)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &doc, nil
}

func (s *DocumentStore) ListByIDs(ctx context.Context, ids []uuid.UUID) (model.DocumentList, error) {
	var docs model.DocumentList
	result := s.getDB(ctx).Where("id IN ?", ids).Find(&docs)
	if result.Error != nil {
		return nil, result.Error
	}
	return docs, nil
}

func (s *DocumentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := s.getDB(ctx).Model(&model.Document{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *DocumentStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
