package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the local identity record the session layer resolves tokens to.
type User struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	DisplayName     string    `db:"display_name" json:"display_name"`
	ExternalSubject string    `db:"external_subject" json:"external_subject"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
