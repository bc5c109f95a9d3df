package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Party is the public identity of a statement counterparty. It carries no
// credential material, so it is safe to embed in balance history responses.
type Party struct {
	ID    uuid.UUID
	Name  string
	Email string
}

func (u *User) Party() Party {
	return Party{ID: u.ID, Name: u.Name, Email: u.Email}
}
