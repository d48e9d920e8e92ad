package model

import (
	"time"

	"github.com/google/uuid"
)

type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
)

type Donation struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      int64
	Note        string
	Status      DonationStatus
	TxHash      *string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
