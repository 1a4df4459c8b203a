package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campus-backend/internal/domain/validation"
	"github.com/yungbote/campus-backend/internal/platform/apierr"
)

type APIError struct {
	Message  string               `json:"message"`
	Code     string               `json:"code,omitempty"`
	Failures []validation.Failure `json:"failures,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes err with an explicit status and code.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError writes an error returned by a service or selector. Internal
// errors are not echoed to the client.
func RespondDomainError(c *gin.Context, err error) {
	ae := apierr.FromDomain(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	_ = c.Error(err)
	msg := ae.Error()
	if ae.Status >= http.StatusInternalServerError {
		msg = http.StatusText(ae.Status)
	}
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message:  msg,
			Code:     ae.Code,
			Failures: ae.Failures,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
