// Package ledger implements the fund store, the commitment state machine and
// the append-only transaction log. Every state transition commits together
// with its audit row or not at all.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundStatus string

const (
	FundOpen   FundStatus = "open"
	FundClosed FundStatus = "closed"
)

type CommitmentStatus string

const (
	StatusReserved  CommitmentStatus = "reserved"
	StatusConfirmed CommitmentStatus = "confirmed"
	StatusCancelled CommitmentStatus = "cancelled"
)

type TransactionType string

const (
	TxReserve TransactionType = "reserve"
	TxConfirm TransactionType = "confirm"
	TxRefund  TransactionType = "refund"
)

type Fund struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Currency      string          `json:"currency"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	MinCommitment decimal.Decimal `json:"min_commitment"`
	Status        FundStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Commitment struct {
	ID        string           `json:"id"`
	FundID    string           `json:"fund_id"`
	UserID    string           `json:"user_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Status    CommitmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// Transaction is one immutable ledger entry. Rows are only ever inserted.
type Transaction struct {
	ID           string          `json:"id"`
	CommitmentID *string         `json:"commitment_id,omitempty"`
	UserID       *string         `json:"user_id,omitempty"`
	FundID       *string         `json:"fund_id,omitempty"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Meta         map[string]any  `json:"meta"`
	CreatedAt    time.Time       `json:"created_at"`
}

// FundSpec is the administrative input for creating a fund.
type FundSpec struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Currency      string          `json:"currency"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	MinCommitment decimal.Decimal `json:"min_commitment"`
	Status        FundStatus      `json:"status"`
}
