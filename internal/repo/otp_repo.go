package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beemart/server/internal/model"
)

// OtpRepo defines the passcode side of the credential store
type OtpRepo interface {
	Upsert(ctx context.Context, accountID uuid.UUID, codeHash string, createdAt time.Time) error
	Find(ctx context.Context, accountID uuid.UUID, codeHash string) (model.OneTimePasscode, error)
	Delete(ctx context.Context, accountID uuid.UUID, codeHash string) error
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(database *sql.DB) OtpRepo {
	return &otpRepo{db: database}
}

// Upsert stores the code for the account, replacing any previous one.
// A single statement keeps the replacement atomic per account (last writer wins).
func (r *otpRepo) Upsert(ctx context.Context, accountID uuid.UUID, codeHash string, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO one_time_passcodes (account_id, code_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, created_at = EXCLUDED.created_at
	`, accountID, codeHash, createdAt)
	if err != nil {
		return fmt.Errorf("upsert passcode: %w", err)
	}
	return nil
}

// Find returns the passcode matching both account and hash.
func (r *otpRepo) Find(ctx context.Context, accountID uuid.UUID, codeHash string) (model.OneTimePasscode, error) {
	var p model.OneTimePasscode
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id, code_hash, created_at
		FROM one_time_passcodes
		WHERE account_id = $1 AND code_hash = $2
	`, accountID, codeHash).Scan(&p.AccountID, &p.CodeHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OneTimePasscode{}, ErrNotFound
		}
		return model.OneTimePasscode{}, fmt.Errorf("query passcode: %w", err)
	}
	return p, nil
}

// Delete removes the passcode if it still matches hash. A concurrent
// replacement changes the hash, so a stale delete affects no row.
func (r *otpRepo) Delete(ctx context.Context, accountID uuid.UUID, codeHash string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM one_time_passcodes WHERE account_id = $1 AND code_hash = $2
	`, accountID, codeHash)
	if err != nil {
		return fmt.Errorf("delete passcode: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
