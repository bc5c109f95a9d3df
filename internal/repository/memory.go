package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucashdiniz/finapi/internal/domain"
)

// In-memory implementations of the user and statement stores. They satisfy
// the same service interfaces as the PostgreSQL repositories and exist so the
// services can be exercised without a database.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("Create: %w", domain.ErrEmailTaken)
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
}

// MemoryStatementRepository is an append-only statement store guarded by a
// mutex. WithAccountLock serializes debits with a per-account mutex, mirroring
// the row lock the PostgreSQL store takes.
type MemoryStatementRepository struct {
	mu         sync.RWMutex
	statements []domain.Statement

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewMemoryStatementRepository() *MemoryStatementRepository {
	return &MemoryStatementRepository{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (r *MemoryStatementRepository) Append(_ context.Context, st *domain.Statement) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, *st)
	return nil
}

func (r *MemoryStatementRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, st := range r.statements {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
}

func (r *MemoryStatementRepository) GetOperation(_ context.Context, id, userID uuid.UUID) (*domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, st := range r.statements {
		if st.ID == id && st.UserID == userID {
			return &st, nil
		}
	}
	return nil, fmt.Errorf("GetOperation: %w", domain.ErrNotFound)
}

func (r *MemoryStatementRepository) ListForAccount(_ context.Context, userID uuid.UUID) ([]domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Statement
	for _, st := range r.statements {
		if st.UserID == userID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *MemoryStatementRepository) ListAsSender(_ context.Context, userID uuid.UUID) ([]domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Statement
	for _, st := range r.statements {
		if st.SenderID != nil && *st.SenderID == userID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *MemoryStatementRepository) WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	lock := r.accountLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (r *MemoryStatementRepository) accountLock(userID uuid.UUID) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}
