package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucashdiniz/finapi/internal/auth"
	"github.com/lucashdiniz/finapi/internal/domain"
	"github.com/lucashdiniz/finapi/internal/logging"
	"github.com/lucashdiniz/finapi/internal/service/statement"
)

type statementService interface {
	Deposit(ctx context.Context, req statement.DepositRequest) (*domain.Statement, error)
	Withdraw(ctx context.Context, req statement.WithdrawRequest) (*domain.Statement, error)
	Transfer(ctx context.Context, req statement.TransferRequest) (*domain.Statement, error)
	Balance(ctx context.Context, userID uuid.UUID, withStatements bool) (*domain.Balance, error)
	Operation(ctx context.Context, statementID, userID uuid.UUID) (*domain.Statement, error)
}

type StatementHandler struct {
	statements statementService
}

func NewStatementHandler(statements statementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

type createStatementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (r createStatementRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}
	return errs
}

type statementDTO struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	SenderID    *uuid.UUID      `json:"sender_id,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toStatementDTO(st *domain.Statement) statementDTO {
	return statementDTO{
		ID:          st.ID,
		UserID:      st.UserID,
		SenderID:    st.SenderID,
		Type:        string(st.Type),
		Amount:      st.Amount,
		Description: st.Description,
		CreatedAt:   st.CreatedAt,
	}
}

type partyDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type balanceEntryDTO struct {
	statementDTO
	Counterparty *partyDTO `json:"counterparty,omitempty"`
}

type balanceDTO struct {
	Balance    decimal.Decimal   `json:"balance"`
	Statements []balanceEntryDTO `json:"statements,omitempty"`
	Sent       []balanceEntryDTO `json:"statements_sent,omitempty"`
}

func toBalanceEntryDTOs(entries []domain.BalanceEntry) []balanceEntryDTO {
	out := make([]balanceEntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := balanceEntryDTO{statementDTO: toStatementDTO(&e.Statement)}
		if e.Counterparty != nil {
			dto.Counterparty = &partyDTO{
				ID:    e.Counterparty.ID,
				Name:  e.Counterparty.Name,
				Email: e.Counterparty.Email,
			}
		}
		out = append(out, dto)
	}
	return out
}

// Deposit credits the authenticated user's account.
func (h *StatementHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.decodeStatementRequest(w, r)
	if !ok {
		return
	}

	st, err := h.statements.Deposit(r.Context(), statement.DepositRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("deposit failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toStatementDTO(st))
}

// Withdraw debits the authenticated user's account.
func (h *StatementHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.decodeStatementRequest(w, r)
	if !ok {
		return
	}

	st, err := h.statements.Withdraw(r.Context(), statement.WithdrawRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("withdraw failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toStatementDTO(st))
}

// Transfer moves value from the authenticated user to the recipient named in
// the path. The operation kind is fixed by the route, never inferred.
func (h *StatementHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	senderID, req, ok := h.decodeStatementRequest(w, r)
	if !ok {
		return
	}

	recipientID, err := uuid.Parse(r.PathValue("recipient_id"))
	if err != nil {
		RespondAppError(w, ErrUserNotFound, nil)
		return
	}

	st, err := h.statements.Transfer(r.Context(), statement.TransferRequest{
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toStatementDTO(st))
}

// Balance returns the derived balance; ?with_statements=true includes the
// full history with resolved counterparties.
func (h *StatementHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	withStatements := r.URL.Query().Get("with_statements") == "true"

	balance, err := h.statements.Balance(r.Context(), userID, withStatements)
	if err != nil {
		logging.FromContext(r.Context()).Error("balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := balanceDTO{Balance: balance.Amount}
	if withStatements {
		dto.Statements = toBalanceEntryDTOs(balance.Statements)
		dto.Sent = toBalanceEntryDTOs(balance.Sent)
	}

	RespondSuccess(w, http.StatusOK, dto)
}

// Operation returns one statement by id, owner-scoped.
func (h *StatementHandler) Operation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	statementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrStatementNotFound, nil)
		return
	}

	st, err := h.statements.Operation(r.Context(), statementID, userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("statement lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toStatementDTO(st))
}

func (h *StatementHandler) decodeStatementRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, createStatementRequest, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return uuid.Nil, createStatementRequest{}, false
	}

	var req createStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return uuid.Nil, createStatementRequest{}, false
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return uuid.Nil, createStatementRequest{}, false
	}

	return userID, req, true
}
