package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/beemart/server/internal/repo"
)

const (
	otpLength = 6
	otpExpiry = 5 * time.Minute
	otpMin    = 100000
	otpMax    = 999999
	devOTP    = "123456"
)

// OtpProvider issues and checks one-time passcodes
type OtpProvider interface {
	// Issue stores a fresh code for the account, replacing any previous one,
	// and returns the plaintext code for delivery.
	Issue(ctx context.Context, accountID uuid.UUID) (string, error)
	// Check returns the stored hash of a matching, unexpired code.
	// An expired match is deleted and reported as ErrExpiredCode.
	Check(ctx context.Context, accountID uuid.UUID, code string) (string, error)
}

// OtpIssuer implements OtpProvider with PostgreSQL-backed passcodes
type OtpIssuer struct {
	otpRepo repo.OtpRepo
	salt    string
	devMode bool
	now     func() time.Time
}

// NewOtpIssuer creates a new OTP provider. In dev mode every code is 123456.
func NewOtpIssuer(otpRepo repo.OtpRepo, salt string, devMode bool) *OtpIssuer {
	return &OtpIssuer{
		otpRepo: otpRepo,
		salt:    salt,
		devMode: devMode,
		now:     time.Now,
	}
}

// Issue implements OtpProvider. Only the hash is stored.
func (p *OtpIssuer) Issue(ctx context.Context, accountID uuid.UUID) (string, error) {
	code := devOTP
	if !p.devMode {
		var err error
		if code, err = generateOTPCode(); err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
	}

	hashHex := hashOTPHex(accountID.String(), code, p.salt)
	if err := p.otpRepo.Upsert(ctx, accountID, hashHex, p.now().UTC()); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Check implements OtpProvider.
func (p *OtpIssuer) Check(ctx context.Context, accountID uuid.UUID, code string) (string, error) {
	hashHex := hashOTPHex(accountID.String(), code, p.salt)

	passcode, err := p.otpRepo.Find(ctx, accountID, hashHex)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("find otp: %w", err)
	}

	if p.now().After(passcode.ExpiresAt(otpExpiry)) {
		if err := p.otpRepo.Delete(ctx, accountID, hashHex); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("delete expired otp: %w", err)
		}
		return "", ErrExpiredCode
	}
	return hashHex, nil
}

// generateOTPCode returns a uniformly random code in [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()+otpMin), nil
}

// hashOTPHex returns SHA-256(account:code:salt) as hex for DB storage
func hashOTPHex(accountID, code, salt string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", accountID, code, salt)))
	return hex.EncodeToString(hash[:])
}
