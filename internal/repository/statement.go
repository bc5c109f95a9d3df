package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucashdiniz/finapi/internal/domain"
)

const statementColumns = `id, user_id, sender_id, type, amount, description, created_at`

// StatementRepository is the append-only statement store on PostgreSQL.
// Statements are never updated or deleted.
type StatementRepository struct {
	db *sql.DB
}

func NewStatementRepository(db *sql.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

// q returns the transaction carried by ctx when running inside
// WithAccountLock, otherwise the pool.
func (r *StatementRepository) q(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Append persists a new statement, assigning its ID and CreatedAt when unset.
func (r *StatementRepository) Append(ctx context.Context, st *domain.Statement) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}

	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO statements (id, user_id, sender_id, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		st.ID, st.UserID, st.SenderID, st.Type, st.Amount, st.Description, st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (r *StatementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	row := r.q(ctx).QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM statements WHERE id = $1`, id,
	)
	st, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return st, nil
}

// GetOperation looks a statement up by id scoped to its owning account.
// Sender-side transfer rows are not visible through this lookup.
func (r *StatementRepository) GetOperation(ctx context.Context, id, userID uuid.UUID) (*domain.Statement, error) {
	row := r.q(ctx).QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM statements WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	st, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetOperation: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetOperation: %w", err)
	}
	return st, nil
}

func (r *StatementRepository) ListForAccount(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error) {
	return r.list(ctx, "ListForAccount",
		`SELECT `+statementColumns+` FROM statements WHERE user_id = $1 ORDER BY created_at, id`,
		userID)
}

func (r *StatementRepository) ListAsSender(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error) {
	return r.list(ctx, "ListAsSender",
		`SELECT `+statementColumns+` FROM statements WHERE sender_id = $1 ORDER BY created_at, id`,
		userID)
}

// WithAccountLock runs fn while holding an exclusive lock on the account's
// user row, inside a single transaction. Statement reads and appends issued
// through the ctx passed to fn join that transaction, so a balance check and
// the subsequent append commit as one atomic unit. Concurrent debits against
// the same account serialize on the row lock.
func (r *StatementRepository) WithAccountLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithAccountLock: begin tx: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("WithAccountLock: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("WithAccountLock: lock account: %w", err)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WithAccountLock: commit: %w", err)
	}
	return nil
}

func (r *StatementRepository) list(ctx context.Context, op, query string, userID uuid.UUID) ([]domain.Statement, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var statements []domain.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		statements = append(statements, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return statements, nil
}

func scanStatement(s scanner) (*domain.Statement, error) {
	var st domain.Statement
	err := s.Scan(
		&st.ID, &st.UserID, &st.SenderID, &st.Type,
		&st.Amount, &st.Description, &st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
