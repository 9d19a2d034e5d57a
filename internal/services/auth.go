package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/repos"
	"github.com/headstart-dev/headstart-backend/internal/requestdata"
	"github.com/headstart-dev/headstart-backend/internal/types"
	"github.com/headstart-dev/headstart-backend/internal/utils"
)

// AuthConfig carries token signing parameters from app config.
type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is returned to clients on register/login/refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*types.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	// IssueTokens mints a token pair for an already-authenticated user
	// (OAuth callback path).
	IssueTokens(ctx context.Context, user *types.User) (*TokenPair, error)
	// SetContextFromToken verifies the bearer token and stashes request
	// identity in the context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log       *logger.Logger
	cfg       AuthConfig
	userRepo  repos.UserRepo
	tokenRepo repos.UserTokenRepo
}

func NewAuthService(baseLog *logger.Logger, cfg AuthConfig, userRepo repos.UserRepo, tokenRepo repos.UserTokenRepo) (AuthService, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("missing JWT secret")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	svcLog := baseLog.With("service", "AuthService")
	return &authService{log: svcLog, cfg: cfg, userRepo: userRepo, tokenRepo: tokenRepo}, nil
}

func (s *authService) Register(ctx context.Context, email, password, fullName string) (*types.User, *TokenPair, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidEmail(email) {
		return nil, nil, fmt.Errorf("invalid email address")
	}

	exists, err := s.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, nil, fmt.Errorf("email already registered")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Role:         types.RoleLearner,
		IsActive:     true,
	}
	created, err := s.userRepo.Create(ctx, nil, []*types.User{user})
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	user = created[0]

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, pair, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error) {
	email = utils.NormalizeEmail(email)
	users, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(users) == 0 {
		return nil, nil, fmt.Errorf("invalid email or password")
	}
	user := users[0]
	if !user.IsActive {
		return nil, nil, fmt.Errorf("account is disabled")
	}
	if user.PasswordHash == "" || !utils.VerifyPassword(password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("invalid email or password")
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token required")
	}

	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if tokenType, _ := claims["type"].(string); tokenType != "refresh" {
		return nil, fmt.Errorf("not a refresh token")
	}

	stored, err := s.tokenRepo.GetByRefreshTokens(ctx, nil, []string{refreshToken})
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("refresh token revoked")
	}
	record := stored[0]
	if time.Now().After(record.ExpiresAt) {
		_ = s.tokenRepo.DeleteByRefreshTokens(ctx, nil, []string{refreshToken})
		return nil, fmt.Errorf("refresh token expired")
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{record.UserID})
	if err != nil || len(users) == 0 {
		return nil, fmt.Errorf("user not found for refresh token")
	}
	user := users[0]
	if !user.IsActive {
		return nil, fmt.Errorf("account is disabled")
	}

	// Rotation: the old refresh token is dead once a new pair is issued.
	if err := s.tokenRepo.DeleteByRefreshTokens(ctx, nil, []string{refreshToken}); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return s.IssueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("refresh token required")
	}
	return s.tokenRepo.DeleteByRefreshTokens(ctx, nil, []string{refreshToken})
}

func (s *authService) IssueTokens(ctx context.Context, user *types.User) (*TokenPair, error) {
	now := time.Now()

	access, err := s.signToken(jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"type":  "access",
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.AccessTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.signToken(jwt.MapClaims{
		"sub":  user.ID.String(),
		"type": "refresh",
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.RefreshTTL).Unix(),
		"jti":  uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	record := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.RefreshTTL),
	}
	if _, err := s.tokenRepo.Create(ctx, nil, []*types.UserToken{record}); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return ctx, fmt.Errorf("invalid token: %w", err)
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return ctx, fmt.Errorf("not an access token")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, fmt.Errorf("invalid subject claim")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Email:       email,
		Role:        role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (s *authService) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *authService) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}
