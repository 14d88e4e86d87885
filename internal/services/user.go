package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AddAddress(ctx context.Context, userID uuid.UUID, req *models.CreateAddressRequest) (*models.Address, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]*models.Address, error)
}

type userService struct {
	repo        repository.UserRepository
	addressRepo repository.AddressRepository
	rateLimit   repository.RateLimitRepository
	tokens      repository.TokenRepository
	security    config.Security
}

func NewUserService(repo repository.UserRepository, addressRepo repository.AddressRepository, rateLimit repository.RateLimitRepository, tokens repository.TokenRepository, security config.Security) UserService {
	return &userService{
		repo:        repo,
		addressRepo: addressRepo,
		rateLimit:   rateLimit,
		tokens:      tokens,
		security:    security,
	}
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !stdErrors.Is(err, repository.ErrNotFound) {
		return nil, errors.DatabaseError("Failed to check existing user").WithError(err)
	}

	if existing != nil {
		return nil, errors.DuplicateEntryError("Email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.InternalError("Failed to secure password").WithError(err)
	}

	user := &models.User{
		ID:       uuid.New(),
		Name:     utils.SanitizeText(req.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     models.RoleCustomer,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, errors.DatabaseError("Failed to create user").WithError(err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	logger := middleware.LoggerFromContext(ctx)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	allowed, remaining, retryAfter, err := s.rateLimit.CheckLoginRateLimit(ctx, email)
	if err != nil {
		return nil, errors.ThirdPartyError("Rate limit check failed").WithError(err)
	}

	if !allowed {
		return &models.LoginResponse{
			Success:    false,
			Message:    "Too many login attempts. Please try again later.",
			RetryAfter: retryAfter,
		}, nil
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !stdErrors.Is(err, repository.ErrNotFound) {
		return nil, errors.DatabaseError("Failed to load user").WithError(err)
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return &models.LoginResponse{
			Success:        false,
			Message:        "Invalid email or password",
			RemainingTries: remaining,
		}, nil
	}

	if err := s.rateLimit.ResetLoginRateLimit(ctx, email); err != nil {
		logger.Warn("Failed to reset login attempts", slog.String("error", err.Error()))
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates the refresh token: the presented token is consumed and a
// new pair is issued.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	if refreshToken == "" {
		return nil, errors.SessionExpiredError()
	}

	userID, err := s.tokens.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.SessionExpiredError()
		}

		return nil, errors.ThirdPartyError("Failed to read session").WithError(err)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.SessionExpiredError()
		}

		return nil, errors.DatabaseError("Failed to load user").WithError(err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return errors.ThirdPartyError("Failed to end session").WithError(err)
	}

	return nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("User not found")
		}

		return nil, errors.DatabaseError("Failed to load user").WithError(err)
	}

	return user, nil
}

func (s *userService) AddAddress(ctx context.Context, userID uuid.UUID, req *models.CreateAddressRequest) (*models.Address, error) {
	address := &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       utils.SanitizeText(req.Name),
		Line1:      utils.SanitizeText(req.Line1),
		Line2:      utils.SanitizeText(req.Line2),
		City:       utils.SanitizeText(req.City),
		State:      utils.SanitizeText(req.State),
		PostalCode: utils.SanitizeText(req.PostalCode),
		Country:    strings.ToUpper(req.Country),
		Phone:      req.Phone,
	}

	if err := s.addressRepo.CreateAddress(ctx, address); err != nil {
		return nil, errors.DatabaseError("Failed to save address").WithError(err)
	}

	return address, nil
}

func (s *userService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]*models.Address, error) {
	addresses, err := s.addressRepo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list addresses").WithError(err)
	}

	return addresses, nil
}

func (s *userService) issueTokens(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	now := time.Now()

	claims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.security.AccessTokenTTL)),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.security.JWTKey))
	if err != nil {
		return nil, errors.InternalError("Failed to generate authentication token").WithError(err)
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, errors.InternalError("Failed to generate refresh token").WithError(err)
	}

	if err := s.tokens.StoreRefreshToken(ctx, refreshToken, user.ID, s.security.RefreshTokenTTL); err != nil {
		return nil, errors.ThirdPartyError("Failed to store session").WithError(err)
	}

	return &models.LoginResponse{
		Success:       true,
		AccessToken:   accessToken,
		ExpiresIn:     int(s.security.AccessTokenTTL.Seconds()),
		User:          user,
		RefreshToken:  refreshToken,
		RefreshExpiry: now.Add(s.security.RefreshTokenTTL),
	}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
