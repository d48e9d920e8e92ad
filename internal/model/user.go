package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	WalletAddress    *string
	PendingBalance   int64
	TotalClaimed     int64
	IsAdmin          bool
	ParentID         *uuid.UUID
	RegistrationDate time.Time
}

// IsChild reports whether claims by this account are gated on parental
// approval.
func (u *User) IsChild() bool {
	return u.ParentID != nil
}

type LeaderboardEntry struct {
	Username     string
	TotalClaimed int64
	Pending      int64
}
