package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"log"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/auth"
	"valve-backend/internal/models"
	"valve-backend/internal/repositories"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "ValveTestSuite"

type TOTPService struct {
	UserRepo   *repositories.UserRepository
	JWTManager *auth.JWTManager
}

func NewTOTPService(userRepo *repositories.UserRepository, jwtManager *auth.JWTManager) *TOTPService {
	return &TOTPService{UserRepo: userRepo, JWTManager: jwtManager}
}

// GenerateSetup creates a new TOTP secret and QR code for enrollment. The
// secret is stored but 2FA stays off until the first code verifies.
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.UserRepo.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, apperrors.Store("store totp secret", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret: key.Secret(),
		QRCode: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Enable turns on 2FA after the user proves they can produce a valid code
func (s *TOTPService) Enable(ctx context.Context, userID int, code string) error {
	user, err := s.UserRepo.Get(ctx, userID)
	if err != nil {
		return apperrors.Store("get user", err)
	}
	if user.TOTPSecret == "" {
		return apperrors.Validation("code", "2FA setup has not been started")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperrors.Validation("code", "invalid verification code")
	}
	if err := s.UserRepo.EnableTOTP(ctx, userID); err != nil {
		return apperrors.Store("enable totp", err)
	}
	return nil
}

// Disable turns off 2FA and discards the secret
func (s *TOTPService) Disable(ctx context.Context, userID int, code string) error {
	user, err := s.UserRepo.Get(ctx, userID)
	if err != nil {
		return apperrors.Store("get user", err)
	}
	if !user.TOTPEnabled {
		return apperrors.Validation("code", "2FA is not enabled")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperrors.Validation("code", "invalid verification code")
	}
	if err := s.UserRepo.DisableTOTP(ctx, userID); err != nil {
		return apperrors.Store("disable totp", err)
	}
	return nil
}

// VerifyLogin completes the second login step: the temp token from step one
// plus a valid TOTP code yields the real session token.
func (s *TOTPService) VerifyLogin(ctx context.Context, req *models.TOTPVerifyRequest) (*models.AuthResponse, error) {
	claims, err := s.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, errors.New("invalid or expired temporary token")
	}

	user, err := s.UserRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Store("get user", err)
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account suspended. Please contact administrator.")
	}
	if !user.TOTPEnabled || !totp.Validate(req.Code, user.TOTPSecret) {
		return nil, apperrors.Validation("code", "invalid verification code")
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
