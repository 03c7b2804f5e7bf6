package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/owlbill/owlbill/internal/clock"
	"github.com/owlbill/owlbill/internal/config"
	"github.com/owlbill/owlbill/internal/user/domain"
	"github.com/owlbill/owlbill/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		Config: config.Config{
			AppName:       "owlbill",
			AuthJWTSecret: "test-secret",
			AuthTokenTTL:  24,
		},
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	})
	return svc, fakeClock
}

func register(t *testing.T, svc domain.Service) domain.User {
	t.Helper()
	created, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username:    "freelancer",
		Email:       "me@studio.test",
		Password:    "correct-horse",
		CompanyName: "Studio",
	})
	require.NoError(t, err)
	return created
}

func TestRegister(t *testing.T) {
	svc, _ := newService(t)

	created := register(t, svc)
	assert.Equal(t, "freelancer", created.Username)
	assert.Equal(t, "me@studio.test", created.Email)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "correct-horse", created.PasswordHash)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "freelancer",
		Email:    "other@studio.test",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{
		Username: "someone-else",
		Email:    "ME@studio.test",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{Email: "a@b.test", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{Username: "u", Email: "not-an-email", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{Username: "u", Email: "a@b.test", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	created := register(t, svc)

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "freelancer",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, created.ID, result.User.ID)

	authed, err := svc.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc)

	_, err := svc.Login(context.Background(), domain.LoginRequest{Username: "freelancer", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginRequest{Username: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc, fakeClock := newService(t)
	register(t, svc)

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Username: "freelancer",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	fakeClock.Advance(25 * time.Hour)

	_, err = svc.Authenticate(context.Background(), result.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Authenticate(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
