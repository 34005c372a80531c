package models

import (
	"time"

	"github.com/google/uuid"
)

// HeldTransaction is the cached copy of a suspended cart. The in-memory hold
// registry is authoritative; these rows only let holds survive a restart.
// Payload carries the JSON-encoded cart snapshot.
type HeldTransaction struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Note      string    `gorm:"column:note"`
	HeldAt    time.Time `gorm:"column:held_at;not null"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
