package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StatementType string

const (
	StatementTypeDeposit  StatementType = "deposit"
	StatementTypeWithdraw StatementType = "withdraw"
	StatementTypeTransfer StatementType = "transfer"
)

func (t StatementType) IsValid() bool {
	switch t {
	case StatementTypeDeposit, StatementTypeWithdraw, StatementTypeTransfer:
		return true
	}
	return false
}

// Statement is one immutable ledger record. The ledger is append-only:
// statements are never updated or deleted once written.
//
// A transfer is a single statement on the receiver side: UserID is the
// receiver, SenderID the account being debited. SenderID is set if and
// only if Type is transfer.
type Statement struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	SenderID    *uuid.UUID
	Type        StatementType
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// BalanceEntry is a statement enriched with the resolved counterparty for
// transfer rows: the sender on owner-side entries, the receiver on
// sender-side entries. Nil for deposits and withdrawals.
type BalanceEntry struct {
	Statement
	Counterparty *Party
}

// Balance is derived, never stored. Statements holds the owner-side history
// and Sent the transfers where the account is the debited sender; both are
// populated only when history is requested.
type Balance struct {
	Amount     decimal.Decimal
	Statements []BalanceEntry
	Sent       []BalanceEntry
}
