package statement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucashdiniz/finapi/internal/domain"
	"github.com/lucashdiniz/finapi/internal/logging"
)

type userDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type statementStore interface {
	Append(ctx context.Context, st *domain.Statement) error
	GetOperation(ctx context.Context, id, userID uuid.UUID) (*domain.Statement, error)
	ListForAccount(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error)
	ListAsSender(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error)
	WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error
}

// Service records deposits, withdrawals and transfers against accounts and
// derives balances from the recorded history. Balances are never stored; a
// debit is accepted only while holding the debited account's lock, so the
// balance check and the append commit atomically.
type Service struct {
	users      userDirectory
	statements statementStore
}

func NewService(users userDirectory, statements statementStore) *Service {
	return &Service{users: users, statements: statements}
}

type DepositRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

type WithdrawRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

type TransferRequest struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Amount      decimal.Decimal
	Description string
}

func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*domain.Statement, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}

	if err := s.resolveUser(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	st := &domain.Statement{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Type:        domain.StatementTypeDeposit,
		Amount:      req.Amount,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.statements.Append(ctx, st); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit recorded",
		"statement_id", st.ID,
		"user_id", st.UserID,
		"amount", st.Amount,
	)
	return st, nil
}

func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Statement, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}

	if err := s.resolveUser(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	st := &domain.Statement{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Type:        domain.StatementTypeWithdraw,
		Amount:      req.Amount,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.appendDebit(ctx, req.UserID, st); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	logging.FromContext(ctx).Info("withdraw recorded",
		"statement_id", st.ID,
		"user_id", st.UserID,
		"amount", st.Amount,
	)
	return st, nil
}

// Transfer records a single statement on the recipient side; the sender's
// balance is debited through the sender-side query when balances are derived.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*domain.Statement, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}
	if err := s.resolveUser(ctx, req.RecipientID); err != nil {
		return nil, fmt.Errorf("Transfer: recipient: %w", err)
	}
	if err := s.resolveUser(ctx, req.SenderID); err != nil {
		return nil, fmt.Errorf("Transfer: sender: %w", err)
	}
	if req.SenderID == req.RecipientID {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}

	senderID := req.SenderID
	st := &domain.Statement{
		ID:          uuid.New(),
		UserID:      req.RecipientID,
		SenderID:    &senderID,
		Type:        domain.StatementTypeTransfer,
		Amount:      req.Amount,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.appendDebit(ctx, req.SenderID, st); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	logging.FromContext(ctx).Info("transfer recorded",
		"statement_id", st.ID,
		"sender_id", req.SenderID,
		"recipient_id", req.RecipientID,
		"amount", st.Amount,
	)
	return st, nil
}

// appendDebit enforces sufficient funds on the debited account and appends
// the statement, all inside the account's critical section.
func (s *Service) appendDebit(ctx context.Context, debited uuid.UUID, st *domain.Statement) error {
	return s.statements.WithAccountLock(ctx, debited, func(ctx context.Context) error {
		balance, err := s.balanceOf(ctx, debited)
		if err != nil {
			return err
		}
		if st.Amount.GreaterThan(balance) {
			return domain.ErrInsufficientFunds
		}
		return s.statements.Append(ctx, st)
	})
}

// Balance derives the account's balance; with withStatements it also returns
// the owner-side and sender-side history with resolved counterparties.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID, withStatements bool) (*domain.Balance, error) {
	if err := s.resolveUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}

	owned, err := s.statements.ListForAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	sent, err := s.statements.ListAsSender(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}

	balance := &domain.Balance{Amount: computeBalance(owned, sent)}
	if !withStatements {
		return balance, nil
	}

	balance.Statements, err = s.resolveEntries(ctx, owned, counterpartySender)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	balance.Sent, err = s.resolveEntries(ctx, sent, counterpartyReceiver)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	return balance, nil
}

// Operation returns a statement by id, restricted to its owning account.
func (s *Service) Operation(ctx context.Context, statementID, userID uuid.UUID) (*domain.Statement, error) {
	if err := s.resolveUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("Operation: %w", err)
	}

	st, err := s.statements.GetOperation(ctx, statementID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Operation: %w", domain.ErrStatementNotFound)
		}
		return nil, fmt.Errorf("Operation: %w", err)
	}
	return st, nil
}

func (s *Service) resolveUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *Service) balanceOf(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	owned, err := s.statements.ListForAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	sent, err := s.statements.ListAsSender(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return computeBalance(owned, sent), nil
}
