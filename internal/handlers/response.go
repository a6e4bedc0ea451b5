package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps any service error onto the envelope; unclassified errors
// surface as 500 INTERNAL.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message: ae.Error(),
			Code:    ae.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
