package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vendorrisk/internal/models"
	"vendorrisk/internal/repositories"
	"vendorrisk/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, notFound("user")).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 7 }).
		Return(nil).Once()

	result, err := authService.Register(ctx, "  New@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, uint(7), result.User.ID)
	assert.Equal(t, "new@example.com", result.User.Email)
	assert.NotEqual(t, "password123", result.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("password123")))
	cost, err := bcrypt.Cost([]byte(result.User.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, services.BcryptCost, cost)

	claims := &services.Claims{}
	_, err = jwt.ParseWithClaims(result.Token, claims, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterRejectsDuplicateEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	// " A@B.com " and "a@b.com" are the same account
	mockRepo.On("GetByEmail", mock.Anything, "a@b.com").Return(&models.User{ID: 1, Email: "a@b.com"}, nil).Once()
	_, err := authService.Register(ctx, " A@B.com ", "password123")
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	// a concurrent insert surfaces as a unique violation
	mockRepo.On("GetByEmail", mock.Anything, "race@b.com").Return(nil, notFound("user")).Once()
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("insert: %w", repositories.ErrDuplicate)).Once()
	_, err = authService.Register(ctx, "race@b.com", "password123")
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidatesInput(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	_, err := authService.Register(ctx, "not-an-email", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidEmail)

	_, err = authService.Register(ctx, "a@b.com", "12345")
	assert.ErrorIs(t, err, services.ErrPasswordTooShort)

	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, zap.NewNop())
	ctx := context.Background()
	user := &models.User{ID: 3, Email: "test@example.com", PasswordHash: hashed(t, "password123")}

	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
	result, err := authService.Login(ctx, " TEST@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user, result.User)
	assert.NotEmpty(t, result.Token)

	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
	_, wrongPassword := authService.Login(ctx, "test@example.com", "wrongpassword")

	mockRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, notFound("user")).Once()
	_, unknownEmail := authService.Login(ctx, "nobody@example.com", "password123")

	assert.ErrorIs(t, wrongPassword, services.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, services.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	mockRepo.AssertExpectations(t)
}

func TestAuthService_VerifyTokenExpiry(t *testing.T) {
	mockRepo := new(MockUserRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	authService := services.NewAuthService(mockRepo, testJWTSecret, 24*time.Hour, zap.NewNop()).
		WithClock(func() time.Time { return now })
	ctx := context.Background()
	user := &models.User{ID: 3, Email: "test@example.com", PasswordHash: hashed(t, "password123")}

	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
	mockRepo.On("GetByID", mock.Anything, uint(3)).Return(user, nil).Once()

	result, err := authService.Login(ctx, "test@example.com", "password123")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	got, err := authService.VerifyToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	now = now.Add(24 * time.Hour)
	_, err = authService.VerifyToken(ctx, result.Token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_VerifyTokenRejects(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	sign := func(method jwt.SigningMethod, key any, claims services.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := services.Claims{
		UserID:           9,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}

	cases := map[string]string{
		"garbage":      "invalid.token.string",
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong alg":    sign(jwt.SigningMethodHS512, []byte(testJWTSecret), valid),
		"no expiry":    sign(jwt.SigningMethodHS256, []byte(testJWTSecret), services.Claims{UserID: 9}),
		"no user id": sign(jwt.SigningMethodHS256, []byte(testJWTSecret), services.Claims{
			RegisteredClaims: valid.RegisteredClaims,
		}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authService.VerifyToken(ctx, token)
			assert.ErrorIs(t, err, services.ErrInvalidToken)
		})
	}
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)

	// a deleted user invalidates an otherwise good token
	mockRepo.On("GetByID", mock.Anything, uint(9)).Return(nil, notFound("user")).Once()
	_, err := authService.VerifyToken(ctx, sign(jwt.SigningMethodHS256, []byte(testJWTSecret), valid))
	assert.ErrorIs(t, err, services.ErrInvalidToken)
	mockRepo.AssertExpectations(t)
}
