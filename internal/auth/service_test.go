package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store/memory"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(&Config{
		JWTSecret:   []byte("0123456789abcdef0123456789abcdef"),
		TokenExpiry: 8 * time.Hour,
	}, memory.NewMemoryStore(), logger.Default())
}

func signupParams() SignupParams {
	return SignupParams{
		Name:      "Asha Rao",
		Email:     "Asha@Example.com",
		Password:  "correct horse",
		BloodType: models.BloodTypeOPos,
		Phone:     "+91 98765 43210",
		Address:   "12 MG Road",
	}
}

func TestSignupNormalizesEmail(t *testing.T) {
	svc := newTestService(t)

	donor, err := svc.Signup(context.Background(), signupParams())
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", donor.Email)
	assert.Equal(t, models.RoleDonor, donor.Role)
	assert.True(t, donor.Eligible)
	assert.NotEqual(t, "correct horse", donor.PasswordHash)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Signup(context.Background(), signupParams())
	require.NoError(t, err)

	// same address with different casing still collides
	params := signupParams()
	params.Email = "ASHA@EXAMPLE.COM"
	_, err = svc.Signup(context.Background(), params)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSignupShortPassword(t *testing.T) {
	svc := newTestService(t)

	params := signupParams()
	params.Password = "short"
	_, err := svc.Signup(context.Background(), params)

	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLoginRoundTrip(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Signup(context.Background(), signupParams())
	require.NoError(t, err)

	donor, token, err := svc.Login(context.Background(), "asha@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, donor.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, models.RoleDonor, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Signup(context.Background(), signupParams())
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "asha@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = ExtractBearerToken("bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc.def.ghi"} {
		_, err := ExtractBearerToken(header)
		assert.Error(t, err, "header %q should be rejected", header)
	}
}
