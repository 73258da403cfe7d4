package service

import (
	"context"
	"testing"

	"ctarcade/Game-Arcade/internal/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memUserRepo is an in-memory UserRepository for service tests.
type memUserRepo struct {
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*models.User)}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.ID = int64(len(r.users) + 1)
	user.PasswordHash = string(hash)
	if user.Rating == 0 {
		user.Rating = 1200
	}
	r.users[user.Username] = user
	return nil
}

func (r *memUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.users[username], nil
}

func (r *memUserRepo) UpdateRating(_ context.Context, username string, rating int) error {
	if u, ok := r.users[username]; ok {
		u.Rating = rating
	}
	return nil
}

func TestLoginTokenRoundTrip(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), "test-secret")
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "hunter22"}))

	err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "other-pass"})
	assert.Error(t, err, "duplicate registration accepted")

	resp, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, 1200, resp.Rating)

	identity, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, 1200, identity.Rating)
	assert.False(t, identity.Guest)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "wrong"})
	assert.Error(t, err)
}

func TestGuestLoginYieldsGuestIdentity(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), "test-secret")

	resp, err := svc.GuestLogin(context.Background())
	require.NoError(t, err)

	identity, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.True(t, identity.Guest)
	assert.NotEmpty(t, identity.ID)
	assert.Contains(t, identity.Username, "guest-")
}

func TestValidateTokenRejectsForgeries(t *testing.T) {
	svc := NewUserService(newMemUserRepo(), "test-secret")
	other := NewUserService(newMemUserRepo(), "different-secret")

	resp, err := other.GuestLogin(context.Background())
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token signed with another secret accepted")

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
