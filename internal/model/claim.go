package model

import (
	"time"

	"github.com/google/uuid"
)

type ClaimType string

const (
	ClaimFirstWallet    ClaimType = "first_wallet"
	ClaimGameCompletion ClaimType = "game_completion"
	ClaimGameUpload     ClaimType = "game_upload"
	ClaimArbitrary      ClaimType = "arbitrary"
	ClaimDirect         ClaimType = "direct"
)

type ClaimStatus string

const (
	ClaimStatusPending         ClaimStatus = "pending"
	ClaimStatusPendingApproval ClaimStatus = "pending_approval"
	ClaimStatusSigned          ClaimStatus = "signed"
	ClaimStatusCompleted       ClaimStatus = "completed"
	ClaimStatusFailed          ClaimStatus = "failed"
)

type Claim struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	WalletAddress string
	Type          ClaimType
	Amount        int64
	Status        ClaimStatus
	GameID        *uuid.UUID
	TxHash        *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IntentStatus tracks the settlement state of a single on-chain attempt.
// A claim that reaches the chain always has exactly one intent row written
// before the transfer is sent, so crash recovery can tell what was in flight.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentSubmitted IntentStatus = "submitted"
	IntentConfirmed IntentStatus = "confirmed"
	IntentFailed    IntentStatus = "failed"
)

type ClaimIntent struct {
	ID        uuid.UUID
	ClaimID   uuid.UUID
	UserID    uuid.UUID
	ToAddress string
	Amount    int64
	TxHash    *string
	Status    IntentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClaimVoucher is the signed off-chain authorization returned by the sign
// endpoint. The client redeems it against the claim contract itself and pays
// its own gas.
type ClaimVoucher struct {
	Signature       string
	Nonce           string
	AmountWei       string
	ContractAddress string
	ChainID         int64
}

type ClaimEvent struct {
	ClaimID uuid.UUID `json:"claim_id"`
	Status  string    `json:"status"`
	TxHash  string    `json:"tx_hash,omitempty"`
	Amount  int64     `json:"amount"`
}
