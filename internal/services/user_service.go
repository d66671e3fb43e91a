package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"
	"vhs_converter/internal/redis"
	"vhs_converter/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// SessionStore keeps login sessions; implemented by the Redis client.
type SessionStore interface {
	SetSession(ctx context.Context, sessionID string, data *redis.SessionData, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*redis.SessionData, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type UserService interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	CreateSession(ctx context.Context, user *models.User) (string, error)
	GetSessionUser(ctx context.Context, sessionID string) (*models.User, error)
	DestroySession(ctx context.Context, sessionID string) error
	EnsureAdmin(ctx context.Context, email, password string) (*models.User, error)
}

type userService struct {
	userRepo   repository.UserRepository
	sessions   SessionStore
	sessionTTL time.Duration
	now        func() time.Time
}

func NewUserService(userRepo repository.UserRepository, sessions SessionStore, sessionTTL time.Duration) UserService {
	return &userService{
		userRepo:   userRepo,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Register always creates a customer. Admins come only from EnsureAdmin.
func (s *userService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.create(ctx, email, name, password, models.RoleCustomer)
}

func (s *userService) create(ctx context.Context, email, name, password string, role models.UserRole) (*models.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         string(role),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) CreateSession(ctx context.Context, user *models.User) (string, error) {
	sessionID := uuid.NewString()
	now := s.now()
	data := &redis.SessionData{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.SetSession(ctx, sessionID, data, s.sessionTTL); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

// GetSessionUser resolves a session to its user. The role always comes from
// the database so revocations apply without waiting for the session to expire.
func (s *userService) GetSessionUser(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, ErrInvalidCredentials
	}
	data, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.CredentialsResetAt != nil && data.CreatedAt.Before(*user.CredentialsResetAt) {
		_ = s.sessions.DeleteSession(ctx, sessionID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) DestroySession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}

// EnsureAdmin creates the seed admin. An existing non-admin account with the
// same email is promoted only together with a reset to the seed password, and
// every session opened before the reset stops working.
func (s *userService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return s.create(ctx, email, "Studio Admin", password, models.RoleAdmin)
	}
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return user, nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	resetAt := s.now()
	if err := s.userRepo.PromoteToAdmin(ctx, user.ID, hash, resetAt); err != nil {
		return nil, fmt.Errorf("failed to promote %s: %w", email, err)
	}
	logger.Log.Warn("existing account promoted to admin, password reset to seed",
		zap.String("email", email))

	user.Role = string(models.RoleAdmin)
	user.PasswordHash = hash
	user.CredentialsResetAt = &resetAt
	return user, nil
}
