package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/beemart/server/internal/db"
	"github.com/beemart/server/internal/model"
)

// AccountRepo defines the account side of the credential store
type AccountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	Create(ctx context.Context, account model.NewAccount) (model.Account, error)
	// Activate consumes the matching passcode, assigns defaultRole when the
	// account has none and flips is_active/is_verified, all in one transaction.
	// It returns ErrNotFound when the passcode is gone.
	Activate(ctx context.Context, accountID uuid.UUID, codeHash, defaultRole string) (model.Account, error)
	// ActivateFederated activates an account whose email a federation
	// provider has verified: pending passcodes are dropped, the password set
	// by the unverified registrant is cleared and provider is recorded.
	ActivateFederated(ctx context.Context, accountID uuid.UUID, provider, defaultRole string) (model.Account, error)
	Promote(ctx context.Context, accountID uuid.UUID) (model.Account, error)
}

type accountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a new AccountRepo instance
func NewAccountRepo(database *sql.DB) AccountRepo {
	return &accountRepo{db: database}
}

const selectAccount = `
	SELECT a.id, a.email, a.password_hash, a.full_name, a.phone, a.dob, a.gender,
	       a.is_seller, r.id, r.name, a.is_superuser, a.is_active, a.is_verified,
	       a.auth_provider, a.avatar_url, a.created_at, a.updated_at
	FROM accounts a
	LEFT JOIN roles r ON r.id = a.role_id
`

func scanAccount(row *sql.Row) (model.Account, error) {
	var (
		account  model.Account
		roleID   sql.NullInt64
		roleName sql.NullString
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FullName,
		&account.Phone,
		&account.DateOfBirth,
		&account.Gender,
		&account.IsSeller,
		&roleID,
		&roleName,
		&account.IsSuperuser,
		&account.IsActive,
		&account.IsVerified,
		&account.AuthProvider,
		&account.AvatarURL,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	if roleID.Valid {
		account.Role = &model.Role{ID: roleID.Int64, Name: roleName.String}
	}
	return account, nil
}

func getAccountByID(ctx context.Context, q db.DBTX, id uuid.UUID) (model.Account, error) {
	return scanAccount(q.QueryRowContext(ctx, selectAccount+` WHERE a.id = $1`, id))
}

// GetByID retrieves an account by ID
func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	return getAccountByID(ctx, r.db, id)
}

// GetByEmail retrieves an account by its (lower-case) email
func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE a.email = $1`, email))
}

// Create inserts an account. Federated and superuser accounts are created
// active, so is_verified mirrors is_active.
func (r *accountRepo) Create(ctx context.Context, account model.NewAccount) (model.Account, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (email, password_hash, full_name, is_superuser, is_active, is_verified, auth_provider, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		RETURNING id
	`, account.Email, account.PasswordHash, account.FullName, account.IsSuperuser, account.IsActive,
		account.AuthProvider, account.AvatarURL).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return model.Account{}, ErrDuplicate
		}
		return model.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Activate implements AccountRepo.Activate. The passcode DELETE is the
// serialization point: of two concurrent verifications only one sees a row.
func (r *accountRepo) Activate(ctx context.Context, accountID uuid.UUID, codeHash, defaultRole string) (model.Account, error) {
	var account model.Account
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM one_time_passcodes WHERE account_id = $1 AND code_hash = $2
		`, accountID, codeHash)
		if err != nil {
			return fmt.Errorf("consume passcode: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		roleID, err := upsertRole(ctx, tx, defaultRole)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE accounts
			SET is_active = TRUE, is_verified = TRUE, role_id = COALESCE(role_id, $2), updated_at = now()
			WHERE id = $1
		`, accountID, roleID)
		if err != nil {
			return fmt.Errorf("activate account: %w", err)
		}

		account, err = getAccountByID(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// ActivateFederated implements AccountRepo.ActivateFederated in one transaction.
func (r *accountRepo) ActivateFederated(ctx context.Context, accountID uuid.UUID, provider, defaultRole string) (model.Account, error) {
	var account model.Account
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM one_time_passcodes WHERE account_id = $1
		`, accountID); err != nil {
			return fmt.Errorf("drop passcode: %w", err)
		}

		roleID, err := upsertRole(ctx, tx, defaultRole)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET is_active = TRUE, is_verified = TRUE, password_hash = NULL,
			    role_id = COALESCE(role_id, $2), auth_provider = $3, updated_at = now()
			WHERE id = $1 AND is_verified = FALSE
		`, accountID, roleID, provider)
		if err != nil {
			return fmt.Errorf("activate account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		account, err = getAccountByID(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// upsertRole returns the id of the named role, creating it if needed.
// DO UPDATE rather than DO NOTHING so RETURNING yields the existing id.
func upsertRole(ctx context.Context, tx db.DBTX, name string) (int64, error) {
	var roleID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&roleID)
	if err != nil {
		return 0, fmt.Errorf("upsert role: %w", err)
	}
	return roleID, nil
}

// Promote marks an account as an active, verified superuser
func (r *accountRepo) Promote(ctx context.Context, accountID uuid.UUID) (model.Account, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET is_superuser = TRUE, is_active = TRUE, is_verified = TRUE, updated_at = now()
		WHERE id = $1
	`, accountID)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to promote account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Account{}, ErrNotFound
	}
	return r.GetByID(ctx, accountID)
}
