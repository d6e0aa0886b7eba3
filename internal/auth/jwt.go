package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/beemart/server/internal/model"
)

const (
	defaultAccessTokenTTL  = 60 * time.Minute
	defaultRefreshTokenTTL = 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTClaims represents the JWT token claims. Refresh tokens carry only the
// identity; access tokens also embed the profile snapshot used by clients.
type JWTClaims struct {
	UserID          uuid.UUID `json:"user_id"`
	TokenType       string    `json:"token_type"`
	Email           string    `json:"email,omitempty"`
	FullName        string    `json:"full_name,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	DateOfBirth     string    `json:"dob,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	IsSeller        bool      `json:"is_seller,omitempty"`
	Role            string    `json:"role,omitempty"`
	IsAdmin         bool      `json:"is_admin,omitempty"`
	ProfileVerified bool      `json:"profile_verified,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair bundles a short-lived access token and a longer-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service. Non-positive TTLs fall back to 60 minutes / 24 hours.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access/refresh pair for the account.
func (s *JWTService) IssuePair(account model.Account) (TokenPair, error) {
	access := accessClaims(account)
	accessToken, err := s.sign(access, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := &JWTClaims{UserID: account.ID, TokenType: tokenTypeRefresh}
	refreshToken, err := s.sign(refresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessTTL:    s.accessTTL,
		RefreshTTL:   s.refreshTTL,
	}, nil
}

func accessClaims(account model.Account) *JWTClaims {
	claims := &JWTClaims{
		UserID:          account.ID,
		TokenType:       tokenTypeAccess,
		Email:           account.Email,
		FullName:        account.FullName,
		IsSeller:        account.IsSeller,
		Role:            account.RoleName(),
		IsAdmin:         account.IsAdmin(),
		ProfileVerified: account.IsVerified,
	}
	if account.Phone != nil {
		claims.Phone = *account.Phone
	}
	if account.DateOfBirth != nil {
		claims.DateOfBirth = account.DateOfBirth.Format(time.DateOnly)
	}
	if account.Gender != nil {
		claims.Gender = *account.Gender
	}
	return claims
}

func (s *JWTService) sign(claims *JWTClaims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken verifies signature and expiry and parses the claims
func (s *JWTService) VerifyToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// VerifyAccessToken is VerifyToken restricted to access tokens.
func (s *JWTService) VerifyAccessToken(tokenString string) (*JWTClaims, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("not an access token")
	}
	return claims, nil
}
