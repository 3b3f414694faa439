package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Muhsiinn/JonasV2/internal/auth"
	"github.com/Muhsiinn/JonasV2/internal/domain"
	"github.com/Muhsiinn/JonasV2/internal/repository"
	apperrors "github.com/Muhsiinn/JonasV2/pkg/errors"
	"github.com/Muhsiinn/JonasV2/pkg/middleware"
)

// EventPublisher publishes auth domain events. Failures never abort the
// operation that triggered them.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, user *domain.User) error
}

// AuthService implements the business logic for registration, login, token
// refresh, and request authorization.
type AuthService struct {
	userRepo   repository.UserRepository
	hasher     *auth.PasswordHasher
	jwtManager *auth.JWTManager
	events     EventPublisher
	logger     *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher *auth.PasswordHasher,
	jwtManager *auth.JWTManager,
	events EventPublisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		hasher:     hasher,
		jwtManager: jwtManager,
		events:     events,
		logger:     logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a new user account with a hashed password and returns the
// user together with a fresh token pair. Email uniqueness is checked before
// username so a request violating both reports the email conflict.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if _, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, nil, domain.ErrEmailAlreadyRegistered
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	if _, err := s.userRepo.GetByUsername(ctx, input.Username); err == nil {
		return nil, nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check username uniqueness: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hashedPassword,
		IsActive:     true,
	}

	// The unique constraints still guard against a concurrent insert between
	// the checks above and this statement; the repository translates those
	// violations to the same domain errors.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login authenticates a user by email and password and returns a fresh token
// pair. Unknown email, wrong password, and deactivated account all fail with
// the same error so responses carry no signal about which check failed.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsActive {
		return nil, nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	if err := s.events.PublishUserLoggedIn(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// authenticate verifies an email/password pair against the store. Unknown
// email and wrong password fail with the same error.
func (s *AuthService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// Refresh validates a refresh token and issues a new token pair. The old
// refresh token is not revoked; both remain valid until expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrWrongTokenType) {
			return nil, domain.ErrWrongTokenType
		}
		return nil, domain.ErrInvalidToken
	}

	if claims.UserID == 0 {
		return nil, domain.ErrMissingSubject
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	if !user.IsActive {
		return nil, domain.ErrUserNotFound
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.Int64("user_id", user.ID),
	)

	return tokens, nil
}

// Authorize resolves an access token to an authenticated identity for the
// auth middleware. Refresh tokens are rejected here; only access tokens grant
// access to protected endpoints.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (*middleware.Identity, error) {
	claims, err := s.jwtManager.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrWrongTokenType) {
			return nil, domain.ErrWrongTokenType
		}
		return nil, domain.ErrInvalidToken
	}

	if claims.UserID == 0 {
		return nil, domain.ErrMissingSubject
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user for authorization: %w", err)
	}

	if !user.IsActive {
		return nil, domain.ErrUserNotFound
	}

	return &middleware.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	}, nil
}

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// Logout records a logout for an authenticated user. Tokens are stateless
// and not revoked; outstanding tokens stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID int64) {
	s.logger.InfoContext(ctx, "user logged out",
		slog.Int64("user_id", userID),
	)
}

// generateTokenPair creates an access/refresh token pair for the user.
func (s *AuthService) generateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    domain.TokenTypeBearer,
	}, nil
}
