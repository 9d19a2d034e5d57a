package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/repos"
	"github.com/headstart-dev/headstart-backend/internal/types"
	"github.com/headstart-dev/headstart-backend/internal/utils"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// OAuthProviderConfig holds one provider's client credentials.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// OAuthConfig maps provider name to credentials. Providers with empty
// client IDs are treated as not configured.
type OAuthConfig struct {
	Providers map[string]OAuthProviderConfig
}

// OAuthInit is handed back to the client, which must retain the verifier
// for the callback exchange.
type OAuthInit struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	CodeVerifier     string `json:"code_verifier"`
}

type OAuthService interface {
	InitFlow(provider, redirectURI string) (*OAuthInit, error)
	// CompleteFlow exchanges the code with PKCE verification, fetches the
	// provider profile, and finds or creates the matching user.
	CompleteFlow(ctx context.Context, provider, code, codeVerifier, redirectURI string) (*types.User, error)
	Providers() []string
}

type oauthService struct {
	log        *logger.Logger
	cfg        OAuthConfig
	userRepo   repos.UserRepo
	httpClient *http.Client
}

func NewOAuthService(baseLog *logger.Logger, cfg OAuthConfig, userRepo repos.UserRepo) OAuthService {
	svcLog := baseLog.With("service", "OAuthService")
	return &oauthService{
		log:        svcLog,
		cfg:        cfg,
		userRepo:   userRepo,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *oauthService) providerConfig(provider, redirectURI string) (*oauth2.Config, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	creds, ok := s.cfg.Providers[provider]
	if !ok || strings.TrimSpace(creds.ClientID) == "" {
		return nil, fmt.Errorf("oauth provider %q not configured", provider)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
	}
	switch provider {
	case ProviderGoogle:
		conf.Endpoint = google.Endpoint
		conf.Scopes = []string{"openid", "email", "profile"}
	case ProviderGitHub:
		conf.Endpoint = github.Endpoint
		conf.Scopes = []string{"read:user", "user:email"}
	default:
		return nil, fmt.Errorf("unsupported oauth provider %q", provider)
	}
	return conf, nil
}

func (s *oauthService) InitFlow(provider, redirectURI string) (*OAuthInit, error) {
	conf, err := s.providerConfig(provider, redirectURI)
	if err != nil {
		return nil, err
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	return &OAuthInit{
		AuthorizationURL: authURL,
		State:            state,
		CodeVerifier:     verifier,
	}, nil
}

func (s *oauthService) CompleteFlow(ctx context.Context, provider, code, codeVerifier, redirectURI string) (*types.User, error) {
	conf, err := s.providerConfig(provider, redirectURI)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("authorization code required")
	}

	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange: %w", err)
	}

	var email, fullName string
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGoogle:
		email, fullName, err = s.fetchGoogleProfile(ctx, conf, token)
	case ProviderGitHub:
		email, fullName, err = s.fetchGitHubProfile(ctx, conf, token)
	}
	if err != nil {
		return nil, err
	}

	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("oauth provider returned no email")
	}

	return s.findOrCreateUser(ctx, email, fullName)
}

func (s *oauthService) Providers() []string {
	var out []string
	for name, creds := range s.cfg.Providers {
		if strings.TrimSpace(creds.ClientID) != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *oauthService) findOrCreateUser(ctx context.Context, email, fullName string) (*types.User, error) {
	users, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(users) > 0 {
		user := users[0]
		if !user.IsActive {
			return nil, fmt.Errorf("account is disabled")
		}
		return user, nil
	}

	if strings.TrimSpace(fullName) == "" {
		fullName = strings.SplitN(email, "@", 2)[0]
	}
	user := &types.User{
		ID:            uuid.New(),
		Email:         email,
		FullName:      strings.TrimSpace(fullName),
		Role:          types.RoleLearner,
		IsActive:      true,
		EmailVerified: true,
	}
	created, err := s.userRepo.Create(ctx, nil, []*types.User{user})
	if err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}
	s.log.Info("OAuth user created", "user_id", user.ID, "email", user.Email)
	return created[0], nil
}

func (s *oauthService) fetchJSON(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, url string, out any) error {
	httpClient := conf.Client(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient), token)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("oauth profile fetch %s: http %d", url, resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

func (s *oauthService) fetchGoogleProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (string, string, error) {
	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := s.fetchJSON(ctx, conf, token, "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return "", "", fmt.Errorf("google userinfo: %w", err)
	}
	return info.Email, info.Name, nil
}

func (s *oauthService) fetchGitHubProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (string, string, error) {
	var user struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := s.fetchJSON(ctx, conf, token, "https://api.github.com/user", &user); err != nil {
		return "", "", fmt.Errorf("github user: %w", err)
	}

	email := strings.TrimSpace(user.Email)
	if email == "" {
		// Public email is often hidden; the emails endpoint lists the
		// verified primary address.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := s.fetchJSON(ctx, conf, token, "https://api.github.com/user/emails", &emails); err != nil {
			return "", "", fmt.Errorf("github user emails: %w", err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
		if email == "" {
			for _, e := range emails {
				if e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.Login
	}
	return email, name, nil
}
