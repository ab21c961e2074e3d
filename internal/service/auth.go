package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/sumire/sprintboard/internal/domain"
)

// UserStore defines the user data access interface consumed by the services.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.User, error)
	Upsert(ctx context.Context, user domain.User) (*domain.User, error)
	FindMembership(ctx context.Context, userID int64, orgID string) (*domain.Membership, error)
	UpsertMembership(ctx context.Context, m domain.Membership) error
}

// AuthConfig holds OAuth and session token configuration.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	JWTSecret          string
	FrontendURL        string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// OrgAdmins maps a lowercased email to organizations it administers.
	OrgAdmins map[string][]string
}

// AuthService resolves external identities into session principals.
type AuthService struct {
	users      UserStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	google     *oauth2.Config
	github     *oauth2.Config
	orgAdmins  map[string][]string

	googleUserInfoURL string
	githubAPIURL      string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, cfg AuthConfig) *AuthService {
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &AuthService{
		users:      users,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		orgAdmins:  cfg.OrgAdmins,
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     googleOAuth.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.FrontendURL + "/auth/google/callback",
		},
		github: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email"},
			RedirectURL:  cfg.FrontendURL + "/auth/github/callback",
		},
		googleUserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		githubAPIURL:      "https://api.github.com",
	}
}

// GoogleAuthURL returns the Google OAuth authorization URL.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.google.AuthCodeURL(state)
}

// GitHubAuthURL returns the GitHub OAuth authorization URL.
func (s *AuthService) GitHubAuthURL(state string) string {
	return s.github.AuthCodeURL(state)
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleCallback completes a Google login and returns a session without
// organization context.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*domain.User, *TokenPair, error) {
	return s.login(ctx, s.google, code, s.googleIdentity)
}

// GitHubCallback completes a GitHub login and returns a session without
// organization context.
func (s *AuthService) GitHubCallback(ctx context.Context, code string) (*domain.User, *TokenPair, error) {
	return s.login(ctx, s.github, code, s.githubIdentity)
}

// identity is the provider profile a login resolves to.
type identity struct {
	provider    domain.AuthProvider
	providerID  string
	email       string
	displayName string
	avatarURL   string
}

func (s *AuthService) login(
	ctx context.Context,
	cfg *oauth2.Config,
	code string,
	resolve func(context.Context, *http.Client) (identity, error),
) (*domain.User, *TokenPair, error) {
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("token exchange: %w", err)
	}

	id, err := resolve(ctx, cfg.Client(ctx, token))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch profile: %w", err)
	}

	user, err := s.users.Upsert(ctx, domain.User{
		Provider:    id.provider,
		ProviderID:  id.providerID,
		Email:       id.email,
		DisplayName: id.displayName,
		AvatarURL:   strPtr(id.avatarURL),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert %s user: %w", id.provider, err)
	}

	for _, orgID := range s.orgAdmins[strings.ToLower(user.Email)] {
		m := domain.Membership{UserID: user.ID, OrganizationID: orgID, Role: domain.RoleAdmin}
		if err := s.users.UpsertMembership(ctx, m); err != nil {
			return nil, nil, fmt.Errorf("grant %s admin: %w", orgID, err)
		}
		slog.Info("organization admin granted", "user_id", user.ID, "organization_id", orgID)
	}

	slog.Info("user signed in", "user_id", user.ID, "provider", id.provider)
	pair, err := s.IssueTokens(domain.Principal{UserID: user.ID})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ValidateToken validates a JWT access token and returns the caller's principal.
func (s *AuthService) ValidateToken(tokenString string) (domain.Principal, error) {
	return s.parse(tokenString, "access")
}

// RefreshAccessToken validates a refresh token and returns a new token pair
// carrying the same organization. The role is re-read from the membership so
// a demotion takes effect on the next refresh.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	p, err := s.parse(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	if p.OrganizationID == "" {
		return s.IssueTokens(domain.Principal{UserID: p.UserID})
	}
	return s.SelectOrganization(ctx, refreshToken, p.OrganizationID)
}

// SelectOrganization exchanges a refresh token for a session scoped to orgID.
func (s *AuthService) SelectOrganization(ctx context.Context, refreshToken, orgID string) (*TokenPair, error) {
	p, err := s.parse(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	if orgID == "" {
		return nil, &domain.ValidationError{Field: "organization_id", Message: "is required"}
	}

	m, err := s.users.FindMembership(ctx, p.UserID, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %d is not a member of %s: %w", p.UserID, orgID, domain.ErrForbidden)
		}
		return nil, err
	}

	slog.Info("organization selected", "user_id", p.UserID, "organization_id", orgID, "role", m.Role)
	return s.IssueTokens(domain.Principal{UserID: p.UserID, OrganizationID: orgID, Role: m.Role})
}

// SetMembership adds userID to orgID with role, or changes the role of an
// existing member. Only admins of orgID may do this.
func (s *AuthService) SetMembership(ctx context.Context, p domain.Principal, orgID string, userID int64, role domain.Role) (*domain.Membership, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}
	if !p.IsOrgAdmin(orgID) {
		return nil, fmt.Errorf("only admins of %s can manage members: %w", orgID, domain.ErrForbidden)
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, &domain.ValidationError{Field: "role", Message: "must be admin or member"}
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}

	if err := s.users.UpsertMembership(ctx, domain.Membership{UserID: userID, OrganizationID: orgID, Role: role}); err != nil {
		return nil, err
	}

	slog.Info("membership updated", "user_id", userID, "organization_id", orgID, "role", role, "by", p.UserID)
	return s.users.FindMembership(ctx, userID, orgID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// IssueTokens signs an access and refresh token pair for p.
func (s *AuthService) IssueTokens(p domain.Principal) (*TokenPair, error) {
	now := time.Now()

	accessStr, err := s.sign(p, "access", now, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshStr, err := s.sign(p, "refresh", now, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

func (s *AuthService) sign(p domain.Principal, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  p.UserID,
		"type": tokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if p.OrganizationID != "" {
		claims["org"] = p.OrganizationID
		claims["role"] = string(p.Role)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString, wantType string) (domain.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("parse %s token: %w", wantType, domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != wantType {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	p := domain.Principal{UserID: int64(userIDFloat)}
	if org, _ := claims["org"].(string); org != "" {
		role, _ := claims["role"].(string)
		p.OrganizationID = org
		p.Role = domain.Role(role)
	}
	return p, nil
}

func (s *AuthService) googleIdentity(ctx context.Context, client *http.Client) (identity, error) {
	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, s.googleUserInfoURL, &info); err != nil {
		return identity{}, err
	}
	return identity{
		provider:    domain.AuthProviderGoogle,
		providerID:  info.ID,
		email:       info.Email,
		displayName: info.Name,
		avatarURL:   info.Picture,
	}, nil
}

func (s *AuthService) githubIdentity(ctx context.Context, client *http.Client) (identity, error) {
	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, s.githubAPIURL+"/user", &info); err != nil {
		return identity{}, err
	}

	// The profile email is empty when the user keeps it private.
	email := info.Email
	if email == "" {
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := getJSON(ctx, client, s.githubAPIURL+"/user/emails", &emails); err != nil {
			return identity{}, err
		}
		for _, e := range emails {
			if e.Primary || email == "" {
				email = e.Email
			}
		}
		if email == "" {
			return identity{}, errors.New("no email found for github user")
		}
	}

	return identity{
		provider:    domain.AuthProviderGitHub,
		providerID:  strconv.FormatInt(info.ID, 10),
		email:       email,
		displayName: info.Login,
		avatarURL:   info.AvatarURL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
