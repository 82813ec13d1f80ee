package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sipitali-server/internal/apperr"
	"sipitali-server/internal/config"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/models"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/utils"
)

const (
	msgInvalidCredentials  = "Invalid credentials"
	msgInvalidRefreshToken = "Invalid or expired refresh token"
	msgUserExists          = "User already exists"
	msgUserNotFound        = "User not found"
	msgInvalidRole         = "Invalid role"
)

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Name        string      `json:"name" validate:"required"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,min=6"`
	Role        models.Role `json:"role"`
	Phone       string      `json:"phone"`
	DateOfBirth string      `json:"dateOfBirth"`
	Address     string      `json:"address"`
}

// LoginInput carries email and password credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	User         models.UserPublic `json:"user"`
}

// AuthService issues and revokes credentials.
type AuthService struct {
	users         repository.UserStore
	refreshTokens repository.RefreshTokenStore
	cfg           *config.Config
	metrics       *metrics.Metrics
	log           *logrus.Entry
	now           func() time.Time
}

func NewAuthService(stores repository.Stores, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *AuthService {
	return &AuthService{
		users:         stores.Users,
		refreshTokens: stores.RefreshTokens,
		cfg:           cfg,
		metrics:       m,
		log:           log.WithComponent("auth"),
		now:           time.Now,
	}
}

func parseBirthDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseInLocation(models.DateLayout, value, time.UTC); err == nil {
		return &d, nil
	}
	if d, err := time.Parse(time.RFC3339, value); err == nil {
		return &d, nil
	}
	return nil, apperr.Validation("Invalid date of birth, expected YYYY-MM-DD")
}

// Register creates a user and returns a credential. Self-registration may pick
// patient, doctor or pa; the role defaults to patient.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		s.metrics.RecordAuthAttempt("register", "invalid")
		return nil, err
	}

	if in.Role == "" {
		in.Role = models.RolePatient
	}
	if !in.Role.Valid() || in.Role == models.RoleSuperAdmin {
		s.metrics.RecordAuthAttempt("register", "invalid")
		return nil, apperr.Validation(msgInvalidRole)
	}

	dob, err := parseBirthDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		s.metrics.RecordAuthAttempt("register", "duplicate")
		return nil, apperr.Validation(msgUserExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:        in.Name,
		Email:       in.Email,
		Role:        in.Role,
		Phone:       strings.TrimSpace(in.Phone),
		DateOfBirth: dob,
		Address:     strings.TrimSpace(in.Address),
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Validation(msgUserExists)
		}
		return nil, err
	}

	s.metrics.RecordAuthAttempt("register", "success")
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return s.issue(ctx, user)
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Validation("Please provide email and password")
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.RecordAuthAttempt("login", "failure")
		return nil, apperr.Authentication(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(in.Password) {
		s.metrics.RecordAuthAttempt("login", "failure")
		s.log.WithField("user_id", user.ID).Warn("Failed login attempt")
		return nil, apperr.Authentication(msgInvalidCredentials)
	}

	s.metrics.RecordAuthAttempt("login", "success")
	return s.issue(ctx, user)
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, id string) (*models.UserSanitized, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	sanitized := user.Sanitize()
	return &sanitized, nil
}

// Refresh exchanges a live refresh token for a new credential and revokes the old token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := utils.ValidateToken(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, msgInvalidRefreshToken, err)
	}

	now := s.now()
	stored, err := s.refreshTokens.FindActive(ctx, refreshToken, claims.UserID, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Authentication(msgInvalidRefreshToken)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Authentication(msgInvalidRefreshToken)
	}
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokens.Revoke(ctx, stored.ID, now); err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Unknown or already revoked tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.refreshTokens.FindUnrevoked(ctx, refreshToken)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.refreshTokens.Revoke(ctx, stored.ID, s.now())
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	pair, err := utils.GenerateTokens(user, s.cfg)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokens.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Public(),
	}, nil
}
