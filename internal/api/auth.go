package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/store"
)

const apiClientKey = "api_client"

// requireAPIKey checks the bearer key against the stored API clients. Websocket
// clients cannot set headers from a browser, so the api_key query parameter is
// accepted as well.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.requireAuth {
			c.Next()
			return
		}
		key := bearerToken(c.Request)
		if key == "" {
			s.abortUnauthorized(c, errors.New("missing API key"))
			return
		}
		client, err := s.db.Authenticate(key)
		if err != nil {
			if errors.Is(err, store.ErrInvalidKey) {
				s.abortUnauthorized(c, err)
				return
			}
			logrus.WithError(err).Error("authenticate api client")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}
		c.Set(apiClientKey, client.Name)
		c.Next()
	}
}

func (s *Server) abortUnauthorized(c *gin.Context, err error) {
	c.Header("WWW-Authenticate", `Bearer realm="trademark-opposition"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": "auth"})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("api_key"))
}
