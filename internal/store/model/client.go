package model

import (
	"time"

	"github.com/google/uuid"

	api "github.com/clinicio/docflow/api/v1alpha1"
)

// Client is one entry of the known-client roster the resolver matches
// against. The roster is read-only during a resolution call.
type Client struct {
	ID        uuid.UUID `gorm:"primaryKey;"`
	Name      string    `gorm:"not null"`
	Sessions  []Session `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}

type ClientList []Client

// Session is a scheduled or past appointment for a client. Used for the
// resolver's date tie-break and for bulk-paste date matching.
type Session struct {
	ID          uuid.UUID `gorm:"primaryKey;"`
	ClientID    uuid.UUID `gorm:"index;not null"`
	SessionDate time.Time `gorm:"index;not null"`
	SessionType string
	CreatedAt   time.Time
}

type SessionList []Session

func (c *Client) ToApiResource() api.Client {
	return api.Client{Id: c.ID, Name: c.Name}
}

func (cl ClientList) ToApiResource() api.ClientList {
	clients := make(api.ClientList, 0, len(cl))
	for _, c := range cl {
		clients = append(clients, c.ToApiResource())
	}
	return clients
}
