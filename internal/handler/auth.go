package handler

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/sprintboard/internal/domain"
	"github.com/sumire/sprintboard/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// GoogleRedirect redirects the user to Google's OAuth consent page.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	state := generateState()
	setStateCookie(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GoogleAuthURL(state))
}

// GoogleCallback handles the OAuth callback from Google.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	code, err := callbackCode(c)
	if err != nil {
		return err
	}

	user, tokens, err := h.auth.GoogleCallback(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]any{"user": user, "tokens": tokens})
}

// GitHubRedirect redirects the user to GitHub's OAuth consent page.
func (h *AuthHandler) GitHubRedirect(c echo.Context) error {
	state := generateState()
	setStateCookie(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GitHubAuthURL(state))
}

// GitHubCallback handles the OAuth callback from GitHub.
func (h *AuthHandler) GitHubCallback(c echo.Context) error {
	code, err := callbackCode(c)
	if err != nil {
		return err
	}

	user, tokens, err := h.auth.GitHubCallback(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]any{"user": user, "tokens": tokens})
}

// Me returns the currently authenticated user and organization context.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.auth.GetUser(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]any{
		"user":            user,
		"organization_id": p.OrganizationID,
		"role":            p.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh generates a new token pair from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tokens, err := h.auth.RefreshAccessToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, tokens)
}

type sessionRequest struct {
	RefreshToken   string `json:"refresh_token" validate:"required"`
	OrganizationID string `json:"organization_id" validate:"required"`
}

// Session exchanges a refresh token for a session scoped to an organization.
func (h *AuthHandler) Session(c echo.Context) error {
	var req sessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tokens, err := h.auth.SelectOrganization(c.Request().Context(), req.RefreshToken, req.OrganizationID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, tokens)
}

type membershipRequest struct {
	Role domain.Role `json:"role" validate:"required,oneof=admin member"`
}

// SetMember adds a user to the caller's organization or changes their role.
func (h *AuthHandler) SetMember(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	userID, err := parseID(c, "user_id")
	if err != nil {
		return err
	}

	var req membershipRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	m, err := h.auth.SetMembership(c.Request().Context(), p, c.Param("org"), userID, req.Role)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, m)
}

func generateState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "fallback-state"
	}
	return base64.URLEncoding.EncodeToString(b)
}

func setStateCookie(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
}

func callbackCode(c echo.Context) (string, error) {
	cookie, err := c.Cookie("oauth_state")
	if err != nil {
		return "", fmt.Errorf("%w: missing oauth_state cookie", domain.ErrInvalidInput)
	}

	queryState := c.QueryParam("state")
	if queryState == "" || queryState != cookie.Value {
		return "", fmt.Errorf("%w: state mismatch", domain.ErrInvalidInput)
	}

	code := c.QueryParam("code")
	if code == "" {
		return "", fmt.Errorf("%w: missing code parameter", domain.ErrInvalidInput)
	}
	return code, nil
}
