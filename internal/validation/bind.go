package validation

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

// ErrEmptyBody is returned by Bind when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Bind decodes the JSON body into a SubmitRequest. Shape errors on a single
// field come back as an *Error so they render like rule failures.
func Bind(c *gin.Context) (SubmitRequest, error) {
	var req SubmitRequest
	if c.Request.Body == nil {
		return req, ErrEmptyBody
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, ErrEmptyBody
		}
		var de *DecodeError
		if errors.As(err, &de) {
			return req, &Error{Fields: map[string]string{de.Field: de.Reason}}
		}
		return req, err
	}
	return req, nil
}
