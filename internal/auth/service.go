package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/beemart/server/internal/metrics"
	"github.com/beemart/server/internal/model"
	"github.com/beemart/server/internal/repo"
	"github.com/beemart/server/internal/validation"
)

const defaultRoleName = "user"

// Limiter throttles OTP issuance per key
type Limiter interface {
	Allow(key string) bool
}

type RegisterInput struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type VerifyEmailInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResendOTPInput struct {
	Email string `json:"email" validate:"required,email"`
}

// AuthService orchestrates registration, verification and login
type AuthService struct {
	accounts    repo.AccountRepo
	otpProvider OtpProvider
	jwtService  *JWTService
	notifier    Notifier
	limiter     Limiter
	metrics     *metrics.Metrics
	validate    *validator.Validate
}

// NewAuthService creates a new auth service. limiter and m may be nil.
func NewAuthService(
	accounts repo.AccountRepo,
	otpProvider OtpProvider,
	jwtService *JWTService,
	notifier Notifier,
	limiter Limiter,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		accounts:    accounts,
		otpProvider: otpProvider,
		jwtService:  jwtService,
		notifier:    notifier,
		limiter:     limiter,
		metrics:     m,
		validate:    validation.New(),
	}
}

// Register creates an inactive account and sends it a passcode. Registering
// an email that is still unverified reuses the account and only re-issues
// the code; the stored password is left untouched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.check(in); err != nil {
		return model.Account{}, err
	}
	log := zerolog.Ctx(ctx).With().Str("email", maskEmail(in.Email)).Logger()

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if account.IsVerified {
			s.metrics.AuthEvent("register", "duplicate")
			return model.Account{}, fieldError("email", ErrEmailTaken)
		}
		log.Info().Msg("re-registration of unverified account, reissuing otp")
	case errors.Is(err, repo.ErrNotFound):
		hash, err := HashPassword(in.Password)
		if err != nil {
			if isPasswordTooLong(err) {
				return model.Account{}, &ValidationError{Fields: map[string]string{"password": "must be at most 72 bytes"}}
			}
			return model.Account{}, fmt.Errorf("hash password: %w", err)
		}
		account, err = s.accounts.Create(ctx, model.NewAccount{
			Email:        in.Email,
			PasswordHash: &hash,
			FullName:     in.FullName,
		})
		if err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return model.Account{}, fieldError("email", ErrEmailTaken)
			}
			return model.Account{}, fmt.Errorf("create account: %w", err)
		}
		log.Info().Str("user_id", account.ID.String()).Msg("account registered")
	default:
		return model.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if err := s.issueAndSend(ctx, account); err != nil {
		return model.Account{}, err
	}
	s.metrics.AuthEvent("register", "success")
	return account, nil
}

// ResendOTP replaces the passcode of an unverified account and sends the new one.
func (s *AuthService) ResendOTP(ctx context.Context, in ResendOTPInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.IsVerified {
		return fieldError("email", ErrAlreadyVerified)
	}
	if err := s.issueAndSend(ctx, account); err != nil {
		return err
	}
	s.metrics.AuthEvent("resend_otp", "success")
	return nil
}

// VerifyEmail consumes the passcode, activates the account and issues tokens.
func (s *AuthService) VerifyEmail(ctx context.Context, in VerifyEmailInput) (model.Account, TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if err := s.check(in); err != nil {
		return model.Account{}, TokenPair{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, TokenPair{}, ErrAccountNotFound
		}
		return model.Account{}, TokenPair{}, fmt.Errorf("lookup account: %w", err)
	}

	codeHash, err := s.otpProvider.Check(ctx, account.ID, in.OTP)
	if err != nil {
		s.metrics.AuthEvent("verify_email", outcome(err))
		return model.Account{}, TokenPair{}, err
	}

	account, err = s.accounts.Activate(ctx, account.ID, codeHash, defaultRoleName)
	if err != nil {
		// lost the race against a concurrent verify or re-issue
		if errors.Is(err, repo.ErrNotFound) {
			s.metrics.AuthEvent("verify_email", outcome(ErrInvalidCode))
			return model.Account{}, TokenPair{}, ErrInvalidCode
		}
		return model.Account{}, TokenPair{}, fmt.Errorf("activate account: %w", err)
	}

	pair, err := s.jwtService.IssuePair(account)
	if err != nil {
		return model.Account{}, TokenPair{}, err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", account.ID.String()).Msg("account verified")
	s.metrics.AuthEvent("verify_email", "success")
	return account, pair, nil
}

// Login checks password credentials. Unknown email and wrong password
// return the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (model.Account, TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return model.Account{}, TokenPair{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			CheckPassword(nil, in.Password)
			s.metrics.AuthEvent("login", outcome(ErrInvalidCredentials))
			return model.Account{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.Account{}, TokenPair{}, fmt.Errorf("lookup account: %w", err)
	}

	if !CheckPassword(account.PasswordHash, in.Password) {
		s.metrics.AuthEvent("login", outcome(ErrInvalidCredentials))
		return model.Account{}, TokenPair{}, ErrInvalidCredentials
	}
	if !account.IsActive {
		s.metrics.AuthEvent("login", outcome(ErrAccountInactive))
		return model.Account{}, TokenPair{}, ErrAccountInactive
	}

	pair, err := s.jwtService.IssuePair(account)
	if err != nil {
		return model.Account{}, TokenPair{}, err
	}
	s.metrics.AuthEvent("login", "success")
	return account, pair, nil
}

// CreateSuperuser creates an active superuser, or promotes the account
// already registered under email.
func (s *AuthService) CreateSuperuser(ctx context.Context, in RegisterInput) (model.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.check(in); err != nil {
		return model.Account{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if err == nil {
		return s.accounts.Promote(ctx, account.ID)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.Create(ctx, model.NewAccount{
		Email:        in.Email,
		PasswordHash: &hash,
		FullName:     in.FullName,
		IsSuperuser:  true,
		IsActive:     true,
	})
}

// issueAndSend stores a fresh passcode and mails it. A failed send is logged
// and tolerated: the account and code are committed and resend recovers.
func (s *AuthService) issueAndSend(ctx context.Context, account model.Account) error {
	if s.limiter != nil && !s.limiter.Allow("email:"+account.Email) {
		s.metrics.AuthEvent("otp_issue", "rate_limited")
		return ErrRateLimited
	}

	code, err := s.otpProvider.Issue(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	s.metrics.OTPIssued()

	if err := s.notifier.SendOTP(ctx, account.Email, code); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("email", maskEmail(account.Email)).
			Msg("failed to send otp")
	}
	return nil
}

func (s *AuthService) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		if fields := validation.Fields(err); fields != nil {
			return &ValidationError{Fields: fields}
		}
		return fmt.Errorf("validate input: %w", err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrExpiredCode):
		return "expired_code"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountInactive):
		return "inactive"
	default:
		return "error"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// maskEmail keeps the first two characters of the local part: ja****@x.com
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "****"
	}
	local := email[:at]
	keep := 2
	if len(local) <= keep {
		keep = 1
	}
	if len(local) == 0 {
		keep = 0
	}
	return local[:keep] + "****" + email[at:]
}
