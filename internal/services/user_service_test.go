package services

import (
	"context"
	"testing"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/auth"
	"valve-backend/internal/config"
	"valve-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	nextID     int
	users      map[int]*models.User
	lastLogins []int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: make(map[int]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, u *models.User) error {
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) List(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserStore) Update(ctx context.Context, u *models.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, userID int) error {
	f.lastLogins = append(f.lastLogins, userID)
	return nil
}

var admin = models.Caller{ID: 1, Name: "Ong Mei", Company: "KSE", Role: models.RoleAdmin}

func newUserTestService(t *testing.T) (*UserService, *fakeUserStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "valve-backend"

	store := newFakeUserStore()
	return NewUserService(store, auth.NewJWTManager(cfg)), store
}

func seedUser(t *testing.T, store *fakeUserStore, username, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	u := &models.User{
		Username:     username,
		Name:         "Tan Wei",
		Email:        username + "@kse.sg",
		PasswordHash: hash,
		Role:         models.RoleOperator,
		Company:      "KSE",
		IsActive:     true,
	}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, store := newUserTestService(t)
	user := seedUser(t, store, "tanwei", "correct-pass")

	resp, err := svc.Login(context.Background(), &models.LoginRequest{Username: "tanwei", Password: "correct-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Contains(t, store.lastLogins, user.ID)

	_, err = svc.Login(context.Background(), &models.LoginRequest{Username: "tanwei", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown usernames read the same as bad passwords
	_, err = svc.Login(context.Background(), &models.LoginRequest{Username: "nobody", Password: "correct-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	svc, store := newUserTestService(t)
	user := seedUser(t, store, "tanwei", "correct-pass")
	user.IsActive = false

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "tanwei", Password: "correct-pass"})
	var fErr *apperrors.ForbiddenError
	assert.ErrorAs(t, err, &fErr)
}

func TestGetUserSelfOrAdmin(t *testing.T) {
	svc, store := newUserTestService(t)
	user := seedUser(t, store, "tanwei", "correct-pass")
	other := seedUser(t, store, "limhui", "correct-pass")

	self := models.Caller{ID: user.ID, Role: models.RoleOperator}

	got, err := svc.GetUser(context.Background(), self, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.GetUser(context.Background(), self, other.ID)
	var fErr *apperrors.ForbiddenError
	assert.ErrorAs(t, err, &fErr)

	_, err = svc.GetUser(context.Background(), admin, other.ID)
	assert.NoError(t, err)
}

func TestUpdateUserSelfOrAdmin(t *testing.T) {
	svc, store := newUserTestService(t)
	user := seedUser(t, store, "tanwei", "correct-pass")
	other := seedUser(t, store, "limhui", "correct-pass")

	self := models.Caller{ID: user.ID, Role: models.RoleOperator}

	updated, err := svc.UpdateUser(context.Background(), self, user.ID, &models.UpdateUserRequest{Name: "Tan Wei Jie"})
	require.NoError(t, err)
	assert.Equal(t, "Tan Wei Jie", updated.Name)

	_, err = svc.UpdateUser(context.Background(), self, other.ID, &models.UpdateUserRequest{Name: "X"})
	var fErr *apperrors.ForbiddenError
	assert.ErrorAs(t, err, &fErr)

	// Only admins may flip the active flag
	inactive := false
	_, err = svc.UpdateUser(context.Background(), self, user.ID, &models.UpdateUserRequest{IsActive: &inactive})
	assert.ErrorAs(t, err, &fErr)

	_, err = svc.UpdateUser(context.Background(), admin, other.ID, &models.UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, store.users[other.ID].IsActive)
}
