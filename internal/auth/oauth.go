package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/beemart/server/internal/metrics"
	"github.com/beemart/server/internal/model"
	"github.com/beemart/server/internal/repo"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// ExternalProfile is the identity returned by a federation provider
type ExternalProfile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// Provider exchanges an authorization code for the federated identity
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (ExternalProfile, error)
}

// GoogleConfig configures the Google provider. Endpoint and UserInfoURL
// default to Google's.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
}

// GoogleProvider implements Provider for Google sign-in
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	timeout     time.Duration
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.UserInfoURL,
		timeout:     cfg.Timeout,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for a provider token and fetches the profile,
// both bounded by the provider timeout.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return ExternalProfile{}, fmt.Errorf("exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return ExternalProfile{}, errors.New("provider returned no access token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return ExternalProfile{}, err
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return ExternalProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ExternalProfile{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}

	var profile ExternalProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return ExternalProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return profile, nil
}

// FederationService signs accounts in through an external provider
type FederationService struct {
	provider   Provider
	accounts   repo.AccountRepo
	jwtService *JWTService
	metrics    *metrics.Metrics
}

func NewFederationService(provider Provider, accounts repo.AccountRepo, jwtService *JWTService, m *metrics.Metrics) *FederationService {
	return &FederationService{
		provider:   provider,
		accounts:   accounts,
		jwtService: jwtService,
		metrics:    m,
	}
}

// LoginURL returns the provider consent URL carrying state.
func (s *FederationService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// Callback finds or creates the local account for the federated identity
// and issues tokens. Provider failures all surface as ErrExternalAuth; the
// cause is only logged.
func (s *FederationService) Callback(ctx context.Context, code string) (model.Account, TokenPair, error) {
	if strings.TrimSpace(code) == "" {
		return model.Account{}, TokenPair{}, ErrMissingCode
	}
	log := zerolog.Ctx(ctx)

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("provider", s.provider.Name()).Msg("oauth exchange failed")
		s.metrics.AuthEvent("oauth", "external_error")
		return model.Account{}, TokenPair{}, ErrExternalAuth
	}
	email := normalizeEmail(profile.Email)
	if email == "" || !profile.EmailVerified {
		log.Warn().Str("provider", s.provider.Name()).Msg("oauth profile has no verified email")
		s.metrics.AuthEvent("oauth", "external_error")
		return model.Account{}, TokenPair{}, ErrExternalAuth
	}

	account, err := s.findOrCreate(ctx, email, profile)
	if err != nil {
		return model.Account{}, TokenPair{}, err
	}

	pair, err := s.jwtService.IssuePair(account)
	if err != nil {
		return model.Account{}, TokenPair{}, err
	}
	s.metrics.AuthEvent("oauth", "success")
	return account, pair, nil
}

func (s *FederationService) findOrCreate(ctx context.Context, email string, profile ExternalProfile) (model.Account, error) {
	provider := s.provider.Name()

	account, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		if account.IsVerified {
			return account, nil
		}
		return s.activateExisting(ctx, account, provider)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	newAccount := model.NewAccount{
		Email:        email,
		FullName:     strings.TrimSpace(profile.GivenName + " " + profile.FamilyName),
		IsActive:     true,
		AuthProvider: &provider,
	}
	if profile.Picture != "" {
		newAccount.AvatarURL = &profile.Picture
	}

	account, err = s.accounts.Create(ctx, newAccount)
	if errors.Is(err, repo.ErrDuplicate) {
		// created concurrently by another callback
		return s.accounts.GetByEmail(ctx, email)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("user_id", account.ID.String()).
		Str("provider", provider).
		Msg("federated account created")
	return account, nil
}

// activateExisting takes over an unverified registration: the provider has
// verified the email, so the account is activated and its password dropped.
func (s *FederationService) activateExisting(ctx context.Context, account model.Account, provider string) (model.Account, error) {
	activated, err := s.accounts.ActivateFederated(ctx, account.ID, provider, defaultRoleName)
	if errors.Is(err, repo.ErrNotFound) {
		// verified concurrently through the passcode flow
		return s.accounts.GetByID(ctx, account.ID)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("activate account: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("user_id", activated.ID.String()).
		Str("provider", provider).
		Msg("unverified account activated by federated sign-in")
	return activated, nil
}
