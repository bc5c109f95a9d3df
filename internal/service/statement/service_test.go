package statement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucashdiniz/finapi/internal/domain"
	"github.com/lucashdiniz/finapi/internal/repository"
	"github.com/lucashdiniz/finapi/internal/service/statement"
)

func newTestService(t *testing.T) (*statement.Service, *repository.MemoryUserRepository, *repository.MemoryStatementRepository) {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	statements := repository.NewMemoryStatementRepository()
	return statement.NewService(users, statements), users, statements
}

func seedUser(t *testing.T, users *repository.MemoryUserRepository, name, email string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$fakehashfortests",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balanceOf(t *testing.T, svc *statement.Service, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := svc.Balance(context.Background(), userID, false)
	require.NoError(t, err)
	return b.Amount
}

func TestDeposit(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	st, err := svc.Deposit(ctx, statement.DepositRequest{
		UserID:      user.ID,
		Amount:      amount("100"),
		Description: "paycheck",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, st.ID)
	assert.Equal(t, domain.StatementTypeDeposit, st.Type)
	assert.Nil(t, st.SenderID)
	assert.False(t, st.CreatedAt.IsZero())

	assert.True(t, balanceOf(t, svc, user.ID).Equal(amount("100")))
}

func TestDeposit_UserNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Deposit(context.Background(), statement.DepositRequest{
		UserID:      uuid.New(),
		Amount:      amount("100"),
		Description: "paycheck",
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")

	for _, amt := range []string{"0", "-10"} {
		_, err := svc.Deposit(context.Background(), statement.DepositRequest{
			UserID:      user.ID,
			Amount:      amount(amt),
			Description: "bad",
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

func TestWithdraw(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: user.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)

	st, err := svc.Withdraw(ctx, statement.WithdrawRequest{UserID: user.ID, Amount: amount("60"), Description: "rent"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatementTypeWithdraw, st.Type)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(amount("40")))

	// Second withdrawal of 60 exceeds the remaining 40.
	_, err = svc.Withdraw(ctx, statement.WithdrawRequest{UserID: user.ID, Amount: amount("60"), Description: "rent again"})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(amount("40")))
}

func TestWithdraw_ExactBalanceSucceeds(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: user.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, statement.WithdrawRequest{UserID: user.ID, Amount: amount("100"), Description: "all of it"})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, svc, user.ID).IsZero())
}

func TestWithdraw_RejectedLeavesNoRecord(t *testing.T) {
	svc, users, statements := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, statement.WithdrawRequest{UserID: user.ID, Amount: amount("10"), Description: "nope"})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	history, err := statements.ListForAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTransfer(t *testing.T) {
	svc, users, statements := newTestService(t)
	sender := seedUser(t, users, "Alice", "alice@test.com")
	recipient := seedUser(t, users, "Bob", "bob@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: sender.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)

	st, err := svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      amount("10"),
		Description: "lunch",
	})
	require.NoError(t, err)

	// Exactly one statement, recorded on the receiver side.
	assert.Equal(t, domain.StatementTypeTransfer, st.Type)
	assert.Equal(t, recipient.ID, st.UserID)
	require.NotNil(t, st.SenderID)
	assert.Equal(t, sender.ID, *st.SenderID)

	recipientHistory, err := statements.ListForAccount(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Len(t, recipientHistory, 1)

	senderHistory, err := statements.ListAsSender(ctx, sender.ID)
	require.NoError(t, err)
	assert.Len(t, senderHistory, 1)

	assert.True(t, balanceOf(t, svc, sender.ID).Equal(amount("90")))
	assert.True(t, balanceOf(t, svc, recipient.ID).Equal(amount("10")))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	svc, users, _ := newTestService(t)
	sender := seedUser(t, users, "Alice", "alice@test.com")
	recipient := seedUser(t, users, "Bob", "bob@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: sender.ID, Amount: amount("5"), Description: "spare change"})
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      amount("10"),
		Description: "too much",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, balanceOf(t, svc, sender.ID).Equal(amount("5")))
	assert.True(t, balanceOf(t, svc, recipient.ID).IsZero())
}

func TestTransfer_SelfTransfer(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: user.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)

	// Rejected regardless of balance.
	_, err = svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    user.ID,
		RecipientID: user.ID,
		Amount:      amount("10"),
		Description: "to myself",
	})
	require.ErrorIs(t, err, domain.ErrSelfTransfer)
}

func TestTransfer_UnknownActors(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	_, err := svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    user.ID,
		RecipientID: uuid.New(),
		Amount:      amount("10"),
		Description: "to nobody",
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    uuid.New(),
		RecipientID: user.ID,
		Amount:      amount("10"),
		Description: "from nobody",
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestBalance_Idempotent(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "Alice", "alice@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: user.ID, Amount: amount("33.33"), Description: "odd amount"})
	require.NoError(t, err)

	first := balanceOf(t, svc, user.ID)
	second := balanceOf(t, svc, user.ID)
	assert.True(t, first.Equal(second))
}

func TestBalance_UserNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Balance(context.Background(), uuid.New(), false)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestBalance_WithStatements(t *testing.T) {
	svc, users, _ := newTestService(t)
	sender := seedUser(t, users, "Alice", "alice@test.com")
	recipient := seedUser(t, users, "Bob", "bob@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: sender.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      amount("10"),
		Description: "lunch",
	})
	require.NoError(t, err)

	// Receiver sees the transfer with the sender's identity resolved.
	recipientBalance, err := svc.Balance(ctx, recipient.ID, true)
	require.NoError(t, err)
	require.Len(t, recipientBalance.Statements, 1)
	require.NotNil(t, recipientBalance.Statements[0].Counterparty)
	assert.Equal(t, sender.ID, recipientBalance.Statements[0].Counterparty.ID)
	assert.Equal(t, "Alice", recipientBalance.Statements[0].Counterparty.Name)
	assert.Empty(t, recipientBalance.Sent)

	// Sender sees the deposit without a counterparty and the outgoing
	// transfer with the receiver resolved.
	senderBalance, err := svc.Balance(ctx, sender.ID, true)
	require.NoError(t, err)
	require.Len(t, senderBalance.Statements, 1)
	assert.Nil(t, senderBalance.Statements[0].Counterparty)
	require.Len(t, senderBalance.Sent, 1)
	require.NotNil(t, senderBalance.Sent[0].Counterparty)
	assert.Equal(t, recipient.ID, senderBalance.Sent[0].Counterparty.ID)

	// History omitted unless requested.
	bare, err := svc.Balance(ctx, sender.ID, false)
	require.NoError(t, err)
	assert.Empty(t, bare.Statements)
	assert.Empty(t, bare.Sent)
}

func TestOperation(t *testing.T) {
	svc, users, _ := newTestService(t)
	owner := seedUser(t, users, "Alice", "alice@test.com")
	other := seedUser(t, users, "Bob", "bob@test.com")
	ctx := context.Background()

	st, err := svc.Deposit(ctx, statement.DepositRequest{UserID: owner.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)

	got, err := svc.Operation(ctx, st.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.True(t, got.Amount.Equal(amount("100")))

	// Same id from a different account is not retrievable.
	_, err = svc.Operation(ctx, st.ID, other.ID)
	require.ErrorIs(t, err, domain.ErrStatementNotFound)

	_, err = svc.Operation(ctx, uuid.New(), owner.ID)
	require.ErrorIs(t, err, domain.ErrStatementNotFound)

	_, err = svc.Operation(ctx, st.ID, uuid.New())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestOperation_SenderSideNotVisible(t *testing.T) {
	svc, users, _ := newTestService(t)
	sender := seedUser(t, users, "Alice", "alice@test.com")
	recipient := seedUser(t, users, "Bob", "bob@test.com")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, statement.DepositRequest{UserID: sender.ID, Amount: amount("100"), Description: "paycheck"})
	require.NoError(t, err)
	st, err := svc.Transfer(ctx, statement.TransferRequest{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      amount("10"),
		Description: "lunch",
	})
	require.NoError(t, err)

	// The transfer row belongs to the receiver; the sender cannot look it up.
	_, err = svc.Operation(ctx, st.ID, sender.ID)
	require.ErrorIs(t, err, domain.ErrStatementNotFound)

	got, err := svc.Operation(ctx, st.ID, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
}
