package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authcore "github.com/maximsenn/authcore"
	"github.com/maximsenn/authcore/cache"
	"github.com/maximsenn/authcore/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "forbidden"})
}

// respondError maps engine errors onto status codes. Bodies carry only
// the sentinel's message; internal detail never leaks.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrInvalidRefreshToken):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, authcore.ErrInactiveAccount),
		errors.Is(err, authcore.ErrUnauthorized):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, authcore.ErrInvalidRole),
		errors.Is(err, authcore.ErrInvalidEmail),
		errors.Is(err, authcore.ErrWeakPassword):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, authcore.ErrUpstreamTimeout):
		status, message = http.StatusGatewayTimeout, authcore.ErrUpstreamTimeout.Error()
	case errors.Is(err, cache.ErrUnavailable):
		status, message = http.StatusServiceUnavailable, cache.ErrUnavailable.Error()
	default:
		s.log.Error("request failed", zap.Error(err))
	}

	c.AbortWithStatusJSON(status, errorBody{Error: message})
}

func (s *Server) respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: message})
}
