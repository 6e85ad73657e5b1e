package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer records a settled on-chain payment between two members. Rows are
// never updated.
type Transfer struct {
	ID              string          `json:"id" db:"id"`
	SenderID        string          `json:"senderID" db:"sender_id"`
	ReceiverID      string          `json:"receiverID" db:"receiver_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	TransactionHash string          `json:"transactionHash" db:"transaction_hash"`
	Note            string          `json:"note" db:"note"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}
