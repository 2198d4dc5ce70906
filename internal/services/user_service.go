package services

import (
	"context"
	"errors"
	"log"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/auth"
	"valve-backend/internal/cache"
	"valve-backend/internal/models"
	"valve-backend/internal/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrInvalidCredentials is deliberately the same for unknown usernames and
// wrong passwords
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore covers the account persistence the service needs
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int) error
	UpdateLastLogin(ctx context.Context, userID int) error
}

var _ UserStore = (*repositories.UserRepository)(nil)

type UserService struct {
	UserRepo   UserStore
	JWTManager *auth.JWTManager
}

func NewUserService(userRepo UserStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{UserRepo: userRepo, JWTManager: jwtManager}
}

// Login verifies credentials and issues a token. Recently verified
// credentials skip the bcrypt check via the Redis cache. Accounts with 2FA
// enabled get a short-lived temp token instead and must complete the TOTP
// step.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.UserRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperrors.Store("get user", err)
	}

	if cachedID, ok := cache.GetCachedAuth(ctx, req.Username, req.Password); !ok || cachedID != int64(user.ID) {
		if !auth.VerifyPassword(user.PasswordHash, req.Password) {
			return nil, ErrInvalidCredentials
		}
		cache.CacheAuth(ctx, req.Username, req.Password, int64(user.ID))
	}

	if !user.IsActive {
		return nil, apperrors.Forbidden("Account suspended. Please contact administrator.")
	}

	if user.TOTPEnabled {
		tempToken, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, err
		}
		return &models.AuthResponse{TempToken: tempToken, Requires2FA: true}, nil
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[Auth] update last login for user %d: %v", user.ID, err)
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

// Me returns the caller's own user record
func (s *UserService) Me(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.UserRepo.Get(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, apperrors.Store("get user", err)
	}
	return user, nil
}

// CreateUser registers a new account. Admin only, enforced at the router.
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if req.Username == "" {
		return nil, apperrors.Validation("username", "username is required")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.Validation("password", "password must be at least 8 characters")
	}
	if req.Name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if req.Email == "" {
		return nil, apperrors.Validation("email", "email is required")
	}
	if req.Company == "" {
		return nil, apperrors.Validation("company", "company is required")
	}
	switch req.Role {
	case "", models.RoleOperator, models.RoleSupervisor, models.RoleAdmin:
	default:
		return nil, apperrors.Validation("role", "role must be operator, supervisor or admin")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Company:      req.Company,
		IsActive:     true,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.Conflict("username or email already exists")
		}
		return nil, apperrors.Store("create user", err)
	}
	return user, nil
}

// GetUser fetches an account. Non-admins can only fetch their own.
func (s *UserService) GetUser(ctx context.Context, caller models.Caller, id int) (*models.User, error) {
	if caller.ID != id && caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("you can only view your own account")
	}
	return s.Me(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.UserRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Store("list users", err)
	}
	return users, nil
}

// UpdateUser amends a user's profile. A blank password keeps the current
// one. Non-admins can only amend their own record, and only an admin may
// toggle the active flag.
func (s *UserService) UpdateUser(ctx context.Context, caller models.Caller, id int, req *models.UpdateUserRequest) (*models.User, error) {
	if caller.ID != id && caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("you can only update your own account")
	}
	if req.IsActive != nil && caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only an administrator can change account status")
	}
	user, err := s.UserRepo.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, apperrors.Store("get user", err)
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Company != "" {
		user.Company = req.Company
	}
	if req.IsActive != nil {
		if caller.ID == id && !*req.IsActive {
			return nil, apperrors.Validation("is_active", "you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
	}

	user.PasswordHash = ""
	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, apperrors.Validation("password", "password must be at least 8 characters")
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, apperrors.Store("update user", err)
	}
	return s.Me(ctx, id)
}

// DeleteUser removes an account. Self-deletion is blocked.
func (s *UserService) DeleteUser(ctx context.Context, caller models.Caller, id int) error {
	if caller.ID == id {
		return apperrors.Validation("id", "you cannot delete your own account")
	}
	if _, err := s.UserRepo.Get(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("user")
		}
		return apperrors.Store("get user", err)
	}
	if err := s.UserRepo.Delete(ctx, id); err != nil {
		return apperrors.Store("delete user", err)
	}
	return nil
}
