package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"

	authcore "github.com/maximsenn/authcore"
)

const claimsContextKey = "authcore.claims"

// requireAuth validates the bearer token and stores the session claims
// in the request context. No token, an invalid token, and an inactive
// subject are all the same 401.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		ctx := authcore.WithClientIP(c.Request.Context(), c.ClientIP())
		result := s.engine.Validate(ctx, token)
		if !result.Valid || result.Claims == nil {
			abortUnauthorized(c)
			return
		}

		c.Set(claimsContextKey, result.Claims)
		c.Next()
	}
}

// requireRole gates a route on the already-validated claims. Missing
// claims deny.
func (s *Server) requireRole(roles ...authcore.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authcore.Authorize(claimsFrom(c), roles...) {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *authcore.SessionClaims {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*authcore.SessionClaims)
	return claims
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	return token, token != ""
}
