package service

import (
	"context"

	api "github.com/clinicio/docflow/api/v1alpha1"
	"github.com/clinicio/docflow/internal/store"
)

// ClientService serves the read-only roster backing the review UI.
type ClientService struct {
	store store.Store
}

func NewClientService(s store.Store) *ClientService {
	return &ClientService{store: s}
}

func (s *ClientService) ListClients(ctx context.Context) (api.ClientList, error) {
	clients, err := s.store.Client().List(ctx)
	if err != nil {
		return nil, err
	}
	return clients.ToApiResource(), nil
}
