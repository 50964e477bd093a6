package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	authcore "github.com/maximsenn/authcore"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type validateRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req authcore.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, "invalid request body")
		return
	}

	profile, err := s.engine.Register(requestCtx(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, "invalid request body")
		return
	}

	pair, err := s.engine.Login(requestCtx(c), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, "invalid request body")
		return
	}

	pair, err := s.engine.Refresh(requestCtx(c), req.RefreshToken)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// handleValidateToken accepts the token in the body, falling back to the
// Authorization header. The verdict is always a 200; validity is in the
// payload.
func (s *Server) handleValidateToken(c *gin.Context) {
	var req validateRequest
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		req.Token, _ = bearerToken(c.GetHeader("Authorization"))
	}

	result := s.engine.Validate(requestCtx(c), req.Token)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLogout(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		abortUnauthorized(c)
		return
	}

	if err := s.engine.Logout(requestCtx(c), claims.SubjectID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

func (s *Server) handleEvictCache(c *gin.Context) {
	kind := c.Param("kind")
	subjectID := c.Param("subjectId")

	switch kind {
	case authcore.CacheKindSubject, authcore.CacheKindUser, authcore.CacheKindUserList:
	default:
		s.respondBadRequest(c, "unknown cache kind")
		return
	}

	if err := s.engine.EvictCache(requestCtx(c), kind, subjectID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evicted": true})
}

func requestCtx(c *gin.Context) context.Context {
	return authcore.WithClientIP(c.Request.Context(), c.ClientIP())
}
