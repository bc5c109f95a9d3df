package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/lucashdiniz/finapi/internal/auth"
	"github.com/lucashdiniz/finapi/internal/domain"
	"github.com/lucashdiniz/finapi/internal/logging"
)

type userService interface {
	CreateUser(ctx context.Context, name, email, password string) (*domain.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

type userDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r createUserRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(r.Password) < 6 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 6 characters"})
	}
	return errs
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create user", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toUserDTO(user))
}

// Profile returns the authenticated user's own identity.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get profile", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}
