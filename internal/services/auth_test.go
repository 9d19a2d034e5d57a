package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/requestdata"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type fakeUserRepo struct {
	byEmail map[string]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*types.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	for _, u := range users {
		if _, ok := f.byEmail[u.Email]; ok {
			return nil, fmt.Errorf("duplicate email %s", u.Email)
		}
		f.byEmail[u.Email] = u
	}
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, u := range f.byEmail {
		for _, id := range userIDs {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error) {
	var out []*types.User
	for _, email := range userEmails {
		if u, ok := f.byEmail[email]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error) {
	_, ok := f.byEmail[userEmail]
	return ok, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, tx *gorm.DB, user *types.User) error {
	f.byEmail[user.Email] = user
	return nil
}

type fakeUserTokenRepo struct {
	byRefresh map[string]*types.UserToken
}

func newFakeUserTokenRepo() *fakeUserTokenRepo {
	return &fakeUserTokenRepo{byRefresh: map[string]*types.UserToken{}}
}

func (f *fakeUserTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
	for _, tok := range tokens {
		f.byRefresh[tok.RefreshToken] = tok
	}
	return tokens, nil
}

func (f *fakeUserTokenRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
	var out []*types.UserToken
	for _, tok := range f.byRefresh {
		for _, id := range userIDs {
			if tok.UserID == id {
				out = append(out, tok)
			}
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
	var out []*types.UserToken
	for _, tok := range f.byRefresh {
		for _, access := range accessTokens {
			if tok.AccessToken == access {
				out = append(out, tok)
			}
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
	var out []*types.UserToken
	for _, refresh := range refreshTokens {
		if tok, ok := f.byRefresh[refresh]; ok {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) DeleteByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) error {
	for _, refresh := range refreshTokens {
		delete(f.byRefresh, refresh)
	}
	return nil
}

func newTestAuthService(t *testing.T) (AuthService, *fakeUserRepo, *fakeUserTokenRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	users := newFakeUserRepo()
	tokens := newFakeUserTokenRepo()
	svc, err := NewAuthService(log, AuthConfig{JWTSecret: "test-secret"}, users, tokens)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, users, tokens
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if _, err := NewAuthService(log, AuthConfig{}, newFakeUserRepo(), newFakeUserTokenRepo()); err == nil {
		t.Fatalf("empty JWT secret must be rejected")
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "Learner@Example.com", "supersecret", "Test Learner")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "learner@example.com" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}
	if user.Role != types.RoleLearner {
		t.Fatalf("new users default to learner role, got %q", user.Role)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "bearer" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}

	if _, _, err := svc.Register(ctx, "learner@example.com", "supersecret", "Dup"); err == nil {
		t.Fatalf("duplicate registration must fail")
	}

	if _, _, err := svc.Login(ctx, "learner@example.com", "wrongpassword"); err == nil {
		t.Fatalf("wrong password must fail")
	}
	loggedIn, loginPair, err := svc.Login(ctx, "LEARNER@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("login returned wrong user")
	}
	if loginPair.AccessToken == "" {
		t.Fatalf("login must issue tokens")
	}
}

func TestRegisterRejectsWeakPasswordAndBadEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "a@example.com", "short", "A"); err == nil {
		t.Fatalf("short password must be rejected")
	}
	if _, _, err := svc.Register(ctx, "not-an-email", "supersecret", "A"); err == nil {
		t.Fatalf("invalid email must be rejected")
	}
}

func TestAccessTokenCarriesIdentity(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "claims@example.com", "supersecret", "Claims")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	withIdentity, err := svc.SetContextFromToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(withIdentity)
	if rd == nil {
		t.Fatalf("request data missing from context")
	}
	if rd.UserID != user.ID {
		t.Fatalf("subject mismatch: %s vs %s", rd.UserID, user.ID)
	}
	if rd.Email != user.Email {
		t.Fatalf("email claim mismatch: %q", rd.Email)
	}
	if rd.Role != types.RoleLearner {
		t.Fatalf("role claim mismatch: %q", rd.Role)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "types@example.com", "supersecret", "Types")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("refresh token must not authenticate requests")
	}
}

func TestTokensSignedWithOtherSecretAreRejected(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	other, err := NewAuthService(log, AuthConfig{JWTSecret: "other-secret"}, newFakeUserRepo(), newFakeUserTokenRepo())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	_, pair, err := other.Register(ctx, "other@example.com", "supersecret", "Other")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, pair.AccessToken); err == nil {
		t.Fatalf("token signed with a different secret must be rejected")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "rotate@example.com", "supersecret", "Rotate")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	newPair, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newPair.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh must rotate the refresh token")
	}
	if _, ok := tokens.byRefresh[pair.RefreshToken]; ok {
		t.Fatalf("old refresh token must be deleted on rotation")
	}

	// The rotated-out token is now revoked.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("reusing a rotated refresh token must fail")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "swap@example.com", "supersecret", "Swap")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.AccessToken); err == nil {
		t.Fatalf("access token must not be accepted by refresh")
	}
}

func TestRefreshRejectsExpiredStoredToken(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "expired@example.com", "supersecret", "Expired")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tokens.byRefresh[pair.RefreshToken].ExpiresAt = time.Now().Add(-time.Minute)

	if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("expired stored token must be rejected")
	}
	if _, ok := tokens.byRefresh[pair.RefreshToken]; ok {
		t.Fatalf("expired token must be purged")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "logout@example.com", "supersecret", "Logout")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := tokens.byRefresh[pair.RefreshToken]; ok {
		t.Fatalf("logout must delete the stored token")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("refresh after logout must fail")
	}
}
