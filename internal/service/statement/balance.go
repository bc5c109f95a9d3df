package statement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucashdiniz/finapi/internal/domain"
)

// computeBalance derives an account's balance from its statement history.
//
// Owner-side deposits and transfers credit the account, withdrawals debit it.
// Every sender-side statement debits the account unconditionally: a transfer
// is stored once, on the receiver side, and only transfer rows carry a
// sender_id, so the sender-side query is exactly the set of outgoing debits.
func computeBalance(owned, sent []domain.Statement) decimal.Decimal {
	balance := decimal.Zero
	for _, st := range owned {
		switch st.Type {
		case domain.StatementTypeDeposit, domain.StatementTypeTransfer:
			balance = balance.Add(st.Amount)
		case domain.StatementTypeWithdraw:
			balance = balance.Sub(st.Amount)
		}
	}
	for _, st := range sent {
		balance = balance.Sub(st.Amount)
	}
	return balance
}

type counterpartySide int

const (
	// owner-side transfer rows: the counterparty is the sender.
	counterpartySender counterpartySide = iota
	// sender-side rows: the counterparty is the receiver.
	counterpartyReceiver
)

// resolveEntries attaches the counterparty identity to transfer rows. Only
// public identity fields are exposed, never the credential hash.
func (s *Service) resolveEntries(ctx context.Context, statements []domain.Statement, side counterpartySide) ([]domain.BalanceEntry, error) {
	entries := make([]domain.BalanceEntry, 0, len(statements))
	parties := make(map[uuid.UUID]*domain.Party)

	for _, st := range statements {
		entry := domain.BalanceEntry{Statement: st}

		var counterpartyID *uuid.UUID
		switch side {
		case counterpartySender:
			counterpartyID = st.SenderID
		case counterpartyReceiver:
			id := st.UserID
			counterpartyID = &id
		}

		if counterpartyID != nil {
			party, ok := parties[*counterpartyID]
			if !ok {
				user, err := s.users.GetByID(ctx, *counterpartyID)
				if err != nil {
					return nil, err
				}
				p := user.Party()
				party = &p
				parties[*counterpartyID] = party
			}
			entry.Counterparty = party
		}

		entries = append(entries, entry)
	}
	return entries, nil
}
