package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "wellness-sessions/internal/app"
	"wellness-sessions/internal/bootstrap"
	"wellness-sessions/internal/repository"
	"wellness-sessions/internal/transport/http/handler"
	"wellness-sessions/internal/transport/http/middleware"
)

// Services are the application services the API routes dispatch to.
type Services struct {
	Verifier *appsvc.IdentityVerifier
	Auth     *appsvc.AuthService
	Sessions *appsvc.SessionService
}

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	services, err := NewServices(app)
	if err != nil {
		return nil, err
	}

	router := NewEngine(app.Config.App.GinMode)
	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	RegisterRoutes(router, services)
	return router, nil
}

func NewServices(app *bootstrap.App) (Services, error) {
	userRepo := repository.NewUserRepository(app.DB)
	sessionRepo := repository.NewSessionRepository(app.DB)

	verifier, err := appsvc.NewIdentityVerifier(app.Config.Auth.JWTSecret, userRepo)
	if err != nil {
		return Services{}, fmt.Errorf("build identity verifier failed: %w", err)
	}

	// Disabled collaborators must reach the service as untyped nils.
	var published appsvc.PublishedCache
	if app.PublishedCache != nil {
		published = app.PublishedCache
	}
	var events appsvc.SessionEventPublisher
	if app.EventPublisher != nil {
		events = app.EventPublisher
	}

	return Services{
		Verifier: verifier,
		Auth: appsvc.NewAuthService(
			userRepo,
			app.Config.Auth.JWTSecret,
			time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
		),
		Sessions: appsvc.NewSessionService(sessionRepo, published, events),
	}, nil
}

func NewEngine(ginMode string) *gin.Engine {
	gin.SetMode(ginMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func RegisterRoutes(router *gin.Engine, s Services) {
	authHandler := handler.NewAuthHandler(s.Auth)
	sessionHandler := handler.NewSessionHandler(s.Sessions)
	requireAuth := middleware.AuthJWT(s.Verifier)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	sessions := v1.Group("/sessions")
	sessions.GET("", sessionHandler.ListPublished)
	sessions.GET("/:id/can-edit", requireAuth, sessionHandler.CanEdit)

	mine := sessions.Group("/mine", requireAuth)
	mine.GET("", sessionHandler.ListMine)
	mine.POST("/draft", sessionHandler.SaveDraft)
	mine.POST("/publish", sessionHandler.Publish)
	mine.GET("/:id", sessionHandler.Get)
	mine.PUT("/:id", sessionHandler.Update)
	mine.DELETE("/:id", sessionHandler.Delete)
}
