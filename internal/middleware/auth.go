package middleware

import (
	"context"
	"net/http"
	"strings"

	"valve-backend/internal/auth"
	"valve-backend/internal/models"
	"valve-backend/internal/repositories"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const UserNameKey contextKey = "user_name"
const RoleKey contextKey = "role"
const CompanyKey contextKey = "company"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	userRepo   *repositories.UserRepository
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, userRepo *repositories.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		userRepo:   userRepo,
	}
}

// Authenticate validates the bearer token and loads the current user record
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := m.resolveCaller(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
	})
}

// RequireRole ensures the authenticated user has one of the allowed roles.
// A caller already resolved by Authenticate earlier in the chain is reused,
// so stacking the two does not validate the token or hit the users table
// twice.
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				if caller, ok = m.resolveCaller(w, r); !ok {
					return
				}
			}

			allowed := false
			for _, role := range allowedRoles {
				if caller.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}

func (m *AuthMiddleware) resolveCaller(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return models.Caller{}, false
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
		return models.Caller{}, false
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return models.Caller{}, false
	}

	// Check database for current user status so role changes and
	// deactivation take effect immediately, not on token expiry
	user, err := m.userRepo.Get(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return models.Caller{}, false
	}

	if !user.IsActive {
		http.Error(w, "Account suspended. Please contact administrator.", http.StatusForbidden)
		return models.Caller{}, false
	}

	return models.Caller{
		ID:      user.ID,
		Name:    user.Name,
		Role:    user.Role,
		Company: user.Company,
	}, true
}

func withCaller(ctx context.Context, caller models.Caller) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, caller.ID)
	ctx = context.WithValue(ctx, UserNameKey, caller.Name)
	ctx = context.WithValue(ctx, RoleKey, caller.Role)
	ctx = context.WithValue(ctx, CompanyKey, caller.Company)
	return ctx
}

// CallerFromContext extracts the authenticated user from the request context
func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	if !ok {
		return models.Caller{}, false
	}
	name, _ := ctx.Value(UserNameKey).(string)
	role, _ := ctx.Value(RoleKey).(string)
	company, _ := ctx.Value(CompanyKey).(string)
	return models.Caller{ID: id, Name: name, Role: role, Company: company}, true
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
