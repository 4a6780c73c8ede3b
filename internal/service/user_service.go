package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/notification"
	"clothes-shop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8

	// Token expiration defaults
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
	ResetTokenExpiration   = 30 * time.Minute

	resetTokenPurpose = "password_reset"
)

var (
	ErrInvalidCredentials = domain.NewError(domain.KindUnauthenticated, "invalid username or password")
	ErrInvalidToken       = domain.NewError(domain.KindUnauthenticated, "invalid token")
	ErrTokenExpired       = domain.NewError(domain.KindUnauthenticated, "token has expired")
)

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
	Address  string
}

// ProfileInput carries the editable contact fields of an account
type ProfileInput struct {
	Email    string
	FullName string
	Phone    string
	Address  string
}

// UserService defines the interface for user business logic
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Claims represents the JWT claims
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	Superuser bool      `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts validated claims into the caller identity used by the
// workflows
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		UserID:    c.UserID,
		Role:      domain.Role(c.Role),
		Superuser: c.Superuser,
	}
}

type resetClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	Purpose string    `json:"purpose"`
	jwt.RegisteredClaims
}

// UserServiceConfig holds token settings. Zero durations fall back to the
// package defaults.
type UserServiceConfig struct {
	JWTSecret     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	ResetExpiry   time.Duration
	// ResetURL is the page that receives the reset token as ?token=...
	ResetURL string
}

type userService struct {
	store  repository.Store
	sender notification.Sender
	cfg    UserServiceConfig
	logger *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	store repository.Store,
	sender notification.Sender,
	cfg UserServiceConfig,
	logger *zap.Logger,
) UserService {
	if cfg.AccessExpiry == 0 {
		cfg.AccessExpiry = AccessTokenExpiration
	}
	if cfg.RefreshExpiry == 0 {
		cfg.RefreshExpiry = RefreshTokenExpiration
	}
	if cfg.ResetExpiry == 0 {
		cfg.ResetExpiry = ResetTokenExpiration
	}
	return &userService{
		store:  store,
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

// Register creates a customer account with a hashed password and an empty cart
func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if len(input.Password) < MinPasswordLength {
		return nil, domain.Errorf(domain.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashedPassword,
		FullName:     input.FullName,
		Phone:        input.Phone,
		Address:      input.Address,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		return repos.Carts.Ensure(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates a user by username and returns JWT tokens
func (s *userService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *domain.User, err error) {
	repos := s.store.Repos()

	user, err = repos.Users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, repos.RefreshTokens, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// Logout invalidates the refresh token
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.Repos().RefreshTokens.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken generates a new access token using a valid refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error) {
	repos := s.store.Repos()

	refreshToken, err := repos.RefreshTokens.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := repos.Users.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	newAccessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT access token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.store.Repos().Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile replaces the contact fields of a user. These are the
// defaults used for order recipients.
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}

		if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
			user.Email = email
		}
		user.FullName = input.FullName
		user.Phone = input.Phone
		user.Address = input.Address
		user.UpdatedAt = time.Now()

		return repos.Users.UpdateProfile(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// RequestPasswordReset mails a reset link to the account with this email.
// Unknown addresses are accepted silently.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.Repos().Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	token, err := s.generateResetToken(user)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	msg := notification.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %d minutes.\n\n%s?token=%s\n",
			user.DisplayName(), int(s.cfg.ResetExpiry.Minutes()), s.cfg.ResetURL, token),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.Info("Password reset email sent", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
// The token is signed with the current password hash, so it stops working
// once the password changes. All refresh tokens are revoked.
func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return domain.Errorf(domain.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}

	unverified := &resetClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
		return ErrInvalidToken
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.FindByID(ctx, unverified.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if err := s.verifyResetToken(token, user); err != nil {
			return err
		}

		if err := repos.Users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
			return err
		}

		revoked, err := repos.RefreshTokens.RevokeAllForUser(ctx, user.ID)
		if err != nil {
			return err
		}

		s.logger.Info("Password reset", zap.String("user_id", user.ID.String()), zap.Int64("revoked_tokens", revoked))
		return nil
	})
}

// hashPassword hashes a password using bcrypt
func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken generates a JWT access token with user ID and role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    user.ID,
		Role:      string(user.Role),
		Superuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *userService) generateRefreshToken(ctx context.Context, repo repository.RefreshTokenRepository, user *domain.User) (string, error) {
	tokenString := uuid.New().String()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(s.cfg.RefreshExpiry),
		CreatedAt: time.Now(),
		Revoked:   false,
	}

	if err := repo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *userService) resetKey(user *domain.User) []byte {
	return []byte(s.cfg.JWTSecret + user.PasswordHash)
}

func (s *userService) generateResetToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &resetClaims{
		UserID:  user.ID,
		Purpose: resetTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.resetKey(user))
}

func (s *userService) verifyResetToken(tokenString string, user *domain.User) error {
	token, err := jwt.ParseWithClaims(tokenString, &resetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.resetKey(user), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(*resetClaims)
	if !ok || !token.Valid || claims.Purpose != resetTokenPurpose || claims.UserID != user.ID {
		return ErrInvalidToken
	}
	return nil
}
