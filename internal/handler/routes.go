package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/sprintboard/internal/service"
)

// Services bundles the services exposed over HTTP.
type Services struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Sprints  *service.SprintService
	Issues   *service.IssueService
}

// NewRouter builds the echo instance with middleware and all API routes.
func NewRouter(svc Services, allowedOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := NewAuthHandler(svc.Auth)
	projectHandler := NewProjectHandler(svc.Projects)
	sprintHandler := NewSprintHandler(svc.Sprints)
	issueHandler := NewIssueHandler(svc.Issues)
	boardHandler := NewBoardHandler(svc.Sprints, svc.Issues)

	api := e.Group("/api/v1")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.GET("/google", authHandler.GoogleRedirect)
	auth.GET("/google/callback", authHandler.GoogleCallback)
	auth.GET("/github", authHandler.GitHubRedirect)
	auth.GET("/github/callback", authHandler.GitHubCallback)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/session", authHandler.Session)

	// Protected routes
	protected := api.Group("", JWTAuth(svc.Auth))
	protected.GET("/auth/me", authHandler.Me)
	protected.PUT("/organizations/:org/members/:user_id", authHandler.SetMember)

	protected.POST("/projects", projectHandler.Create)
	protected.GET("/projects/:id", projectHandler.Get)
	protected.DELETE("/projects/:id", projectHandler.Delete)
	protected.POST("/projects/:id/sprints", sprintHandler.Create)
	protected.GET("/projects/:id/sprints", sprintHandler.List)
	protected.POST("/projects/:id/issues", issueHandler.Create)

	protected.GET("/sprints/:id", sprintHandler.Get)
	protected.POST("/sprints/:id/transition", sprintHandler.Transition)
	protected.GET("/sprints/:id/issues", issueHandler.ListForSprint)
	protected.GET("/sprints/:id/board", boardHandler.Get)
	protected.POST("/sprints/:id/board/moves", boardHandler.Move)

	protected.PUT("/issues/order", issueHandler.Reorder)
	protected.PATCH("/issues/:id", issueHandler.Update)
	protected.DELETE("/issues/:id", issueHandler.Delete)

	return e
}
