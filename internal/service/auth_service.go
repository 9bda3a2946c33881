package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadcrm/internal/domain"
	"leadcrm/internal/repository"
	"leadcrm/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "leadcrm:session:"

// AuthService 注册 / 登录 / 会话
type AuthService struct {
	users     repository.UsersRepository
	kv        store.KV
	passwords *PasswordHasher
	ttl       time.Duration
	logger    *zap.Logger
}

// NewAuthService 创建认证服务；ttl 为会话有效期
func NewAuthService(users repository.UsersRepository, kv store.KV, passwords *PasswordHasher, ttl time.Duration, logger *zap.Logger) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{users: users, kv: kv, passwords: passwords, ttl: ttl, logger: logger}
}

// SignupRequest 组织者注册
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// LoginResponse 登录结果
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Signup creates an organizer and its organization.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	v := domain.ValidateUserFields(req.Username, req.Email, req.FirstName, req.LastName)
	if msg := s.passwords.Check(req.Password); msg != "" {
		v.Add("password", msg)
	} else if req.Password != req.PasswordConfirm {
		v.Add("password_confirm", "The two password fields didn't match.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.CreateOrganizer(ctx, &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
	}, req.Username)
	if err != nil {
		if isConflict(err) {
			return nil, domain.NewValidationError("username", "A user with that username already exists.")
		}
		return nil, fmt.Errorf("failed to create organizer: %w", err)
	}
	s.logger.Info("Organizer signed up",
		zap.String("user_id", user.UserID),
		zap.String("organization_id", user.Role.OrganizationID()),
	)
	return user, nil
}

// Login 校验用户名密码并签发会话 token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Info("Login rejected", zap.String("username", user.Username))
		return nil, domain.ErrUnauthorized
	}

	token := uuid.NewString()
	if err := s.kv.Set(ctx, sessionKeyPrefix+token, user.UserID, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return &LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		UserID:    user.UserID,
		Username:  user.Username,
		Role:      string(user.Role.Kind()),
	}, nil
}

// Logout 删除会话
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Del(ctx, sessionKeyPrefix+token)
}

// Authenticate resolves a session token to an Actor. Unknown or expired tokens and
// deleted users are ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	userID, err := s.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.kv.Del(ctx, sessionKeyPrefix+token)
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	return ActorFromUser(user), nil
}
