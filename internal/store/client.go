package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicio/docflow/internal/store/model"
)

type Client interface {
	Create(ctx context.Context, client model.Client) (*model.Client, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context) (model.ClientList, error)
	CreateSession(ctx context.Context, session model.Session) (*model.Session, error)
	ListSessions(ctx context.Context, filter *SessionQueryFilter) (model.SessionList, error)
}

type ClientStore struct {
	db *gorm.DB
}

// Make sure we conform to Client interface
var _ Client = (*ClientStore)(nil)

func NewClientStore(db *gorm.DB) Client {
	return &ClientStore{db: db}
}

func (s *ClientStore) Create(ctx context.Context, client model.Client) (*model.Client, error) {
	if result := s.getDB(ctx).Create(&client); result.Error != nil {
		return nil, fmt.Errorf("creating client: %w", result.Error)
	}
	return &client, nil
}

func (s *ClientStore) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	client := model.Client{ID: id}
	result := s.getDB(ctx).Preload("Sessions").First(&client)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &client, nil
}

func (s *ClientStore) List(ctx context.Context) (model.ClientList, error) {
	var clients model.ClientList
	result := s.getDB(ctx).Model(&clients).Preload("Sessions").Order("name").Find(&clients)
	if result.Error != nil {
		return nil, result.Error
	}
	return clients, nil
}

func (s *ClientStore) CreateSession(ctx context.Context, session model.Session) (*model.Session, error) {
	if result := s.getDB(ctx).Create(&session); result.Error != nil {
		return nil, fmt.Errorf("creating session: %w", result.Error)
	}
	return &session, nil
}

func (s *ClientStore) ListSessions(ctx context.Context, filter *SessionQueryFilter) (model.SessionList, error) {
	var sessions model.SessionList
	tx := s.getDB(ctx).Model(&sessions).Order("session_date")
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if result := tx.Find(&sessions); result.Error != nil {
		return nil, result.Error
	}
	return sessions, nil
}

func (s *ClientStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
