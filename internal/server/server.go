package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"finchat/internal/handler"
	"finchat/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer routes to.
type Deps struct {
	AuthService handler.AuthService
	ChatService handler.ChatService
	Tokens      middleware.TokenParser
}

type Server struct {
	router          *gin.Engine
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

func NewServer(deps Deps, shutdownTimeout time.Duration, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS())

	s := &Server{
		router:          router,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}

	s.setupRoutes(deps)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(deps Deps) {
	authHandler := handler.NewAuthHandler(deps.AuthService, s.logger)
	chatHandler := handler.NewChatHandler(deps.ChatService, s.logger)

	s.router.GET("/", handler.Welcome)
	s.router.GET("/health", handler.HealthCheck)

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Authenticated routes
	chatGroup := s.router.Group("/api/chat")
	chatGroup.Use(middleware.AuthMiddleware(deps.Tokens, s.logger))
	{
		chatGroup.GET("/can-access", chatHandler.CanAccess)
		chatGroup.POST("", chatHandler.Ask)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Run serves on port until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")
	return nil
}
