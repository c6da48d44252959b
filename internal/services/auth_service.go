package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgram/backend/internal/models"
	"github.com/snapgram/backend/internal/repositories"
)

// TokenPair bundles a short-lived access token with its refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles registration, login and refresh-token rotation.
// Refresh tokens are stored hashed on the user document; rotation is a
// conditional pull of the old hash followed by a push of the new one,
// so a replayed token fails the pull and is rejected.
type AuthService struct {
	users           repositories.UserRepository
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	log             zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users repositories.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:           users,
		jwtSecret:       []byte(jwtSecret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		log:             log,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, models.ErrUsernameTaken
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		Name:         req.Name,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*TokenPair, *models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, nil, models.ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh rotates a refresh token: the old token's hash is pulled from
// the user document (atomic, conditional on its presence) and a new
// pair is issued. An unknown or already-rotated token is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	removed, err := s.users.RemoveRefreshToken(ctx, userID, hashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token. Unknown tokens are a
// no-op.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID, refreshToken string) error {
	_, err := s.users.RemoveRefreshToken(ctx, userID, hashToken(refreshToken))
	return err
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(tokenString string) (*models.JwtCustomClaims, error) {
	return s.parseToken(tokenString)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.signToken(user, s.accessTokenTTL, "")
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, s.refreshTokenTTL, uuid.NewString())
	if err != nil {
		return nil, err
	}

	if err := s.users.PushRefreshToken(ctx, user.ID, models.RefreshToken{
		TokenHash: hashToken(refresh),
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) signToken(user *models.User, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) parseToken(tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}
	return claims, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
