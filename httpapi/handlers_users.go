package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authcore "github.com/maximsenn/authcore"
)

// handleGetProfile serves any authenticated caller their view of a
// profile; no role gate beyond a valid session.
func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.engine.GetUser(requestCtx(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// handleOwnProfile resolves the caller's own profile from the bearer
// token's subject.
func (s *Server) handleOwnProfile(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		abortUnauthorized(c)
		return
	}

	profile, err := s.engine.GetUser(requestCtx(c), claims.SubjectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleListUsers(c *gin.Context) {
	profiles, err := s.engine.ListUsers(requestCtx(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (s *Server) handleCreateUser(c *gin.Context) {
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

func (s *Server) handleGetUser(c *gin.Context) {
	profile, err := s.engine.GetUser(requestCtx(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req authcore.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, "invalid request body")
		return
	}

	profile, err := s.engine.UpdateUser(requestCtx(c), c.Param("id"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleDeactivateUser(c *gin.Context) {
	profile, err := s.engine.DeactivateUser(requestCtx(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	if err := s.engine.DeleteUser(requestCtx(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
