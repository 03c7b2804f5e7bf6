package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	userdomain "github.com/owlbill/owlbill/internal/user/domain"
)

const currentUserKey = "current_user"

// AuthRequired resolves the bearer token and stores the current user in the
// request context. Requests without a valid token are rejected.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		authed, err := s.userSvc.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			// A token for a deleted user is still just an auth failure.
			if errors.Is(err, userdomain.ErrNotFound) {
				err = ErrUnauthorized
			}
			AbortWithError(c, err)
			return
		}

		c.Set(currentUserKey, authed)
		c.Next()
	}
}

func currentUser(c *gin.Context) (userdomain.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return userdomain.User{}, false
	}
	authed, ok := value.(userdomain.User)
	return authed, ok
}
