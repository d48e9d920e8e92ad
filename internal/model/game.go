package model

import (
	"time"

	"github.com/google/uuid"
)

type Game struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	BundleURL   string
	CoverURL    string
	CreatedAt   time.Time
}
