// Package httpapi exposes the identity engine over HTTP. It owns route
// layout, request decoding, role gating, and the mapping from engine
// errors to status codes; all identity decisions stay in the engine.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authcore "github.com/maximsenn/authcore"
)

// Server wires the engine into a gin router.
type Server struct {
	engine *authcore.Engine
	log    *zap.Logger
	router *gin.Engine
}

// NewServer builds the HTTP surface over engine. A nil logger disables
// request logging.
func NewServer(engine *authcore.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		engine: engine,
		log:    log,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/validate-token", s.handleValidateToken)
		auth.POST("/logout", s.requireAuth(), s.handleLogout)
		auth.DELETE("/cache/:kind/:subjectId",
			s.requireAuth(), s.requireRole(authcore.RoleAdmin, authcore.RoleCreator),
			s.handleEvictCache)
	}

	users := r.Group("/users", s.requireAuth())
	{
		users.GET("/profile/:id", s.handleGetProfile)
		users.GET("/by-token", s.handleOwnProfile)

		admin := users.Group("", s.requireRole(authcore.RoleAdmin, authcore.RoleCreator))
		{
			admin.GET("", s.handleListUsers)
			admin.POST("", s.handleCreateUser)
			admin.GET("/:id", s.handleGetUser)
			admin.PATCH("/:id", s.handleUpdateUser)
			admin.POST("/:id/deactivate", s.handleDeactivateUser)
			admin.DELETE("/:id", s.handleDeleteUser)
		}
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
