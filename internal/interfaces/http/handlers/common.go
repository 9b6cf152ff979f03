// Package handlers implements the HTTP surface of the analysis pipeline.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError writes err as a JSON error response, mapping its pipeline
// error code to an HTTP status.
func respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status, ok := apperrors.ErrorCodeHTTPStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := errorBody{
		Code:    code.String(),
		Message: err.Error(),
	}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		body.Message = ae.Message
		body.Detail = ae.Detail
	}

	c.AbortWithStatusJSON(status, body)
}
