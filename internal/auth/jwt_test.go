package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beemart/server/internal/model"
)

func testAccount() model.Account {
	phone := "+15550100"
	dob := time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)
	return model.Account{
		ID:          uuid.New(),
		Email:       "jane@x.com",
		FullName:    "Jane",
		Phone:       &phone,
		DateOfBirth: &dob,
		Role:        &model.Role{ID: 1, Name: "user"},
		IsActive:    true,
		IsVerified:  true,
	}
}

func TestJWTService_IssuePair(t *testing.T) {
	svc := NewJWTService("secret", 0, 0)
	account := testAccount()

	pair, err := svc.IssuePair(account)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 60*time.Minute, pair.AccessTTL)
	assert.Equal(t, 24*time.Hour, pair.RefreshTTL)

	claims, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.UserID)
	assert.Equal(t, "jane@x.com", claims.Email)
	assert.Equal(t, "Jane", claims.FullName)
	assert.Equal(t, "+15550100", claims.Phone)
	assert.Equal(t, "1990-04-02", claims.DateOfBirth)
	assert.Equal(t, "user", claims.Role)
	assert.False(t, claims.IsAdmin)
	assert.True(t, claims.ProfileVerified)
	assert.Equal(t, account.ID.String(), claims.Subject)

	refresh, err := svc.VerifyToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokenTypeRefresh, refresh.TokenType)
	assert.Empty(t, refresh.Email, "refresh tokens carry identity only")
	assert.True(t, refresh.ExpiresAt.After(claims.ExpiresAt.Time))
}

func TestJWTService_RefreshIsNotAnAccessToken(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour)
	pair, err := svc.IssuePair(testAccount())
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour)
	issued := time.Now().Add(-2 * time.Minute)
	svc.now = func() time.Time { return issued }
	pair, err := svc.IssuePair(testAccount())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	pair, err := NewJWTService("secret", 0, 0).IssuePair(testAccount())
	require.NoError(t, err)

	_, err = NewJWTService("other", 0, 0).VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	claims := &JWTClaims{
		UserID:    uuid.New(),
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("secret", 0, 0).VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_AdminClaim(t *testing.T) {
	svc := NewJWTService("secret", 0, 0)
	account := testAccount()
	account.Role = &model.Role{Name: "Admin"}

	pair, err := svc.IssuePair(account)
	require.NoError(t, err)
	claims, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "Admin", claims.Role)
}
