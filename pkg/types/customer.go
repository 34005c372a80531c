package types

import "github.com/google/uuid"

// Customer is the directory entry attached to a cart or snapshotted onto a
// quote. The engine never mutates customers; the directory is external.
type Customer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}
