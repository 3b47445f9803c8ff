package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/util"
)

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// renderFailure maps the error kind to a status so callers can tell bad input
// from an unusable or unavailable reasoning service.
func (s *Server) renderFailure(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)
	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"request_id": util.RequestID(c.Request.Context()),
		"path":       c.FullPath(),
		"kind":       kind,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	body := gin.H{"error": err.Error()}
	if kind != "" {
		body["kind"] = kind
	}
	c.JSON(status, body)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	case apperr.KindService, apperr.KindInvalidOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON decodes the body into req. Malformed JSON is a 400; a well-formed body
// that fails field validation is a 422.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
	)
	if errors.As(err, &verrs) || errors.As(err, &typeErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": apperr.KindValidation})
	} else {
		s.renderError(c, http.StatusBadRequest, err)
	}
	return false
}
