package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Error   ErrorKind   `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError translates err into the JSON envelope. Internal faults and
// corrupt stored data are logged in full and answered with a generic message.
func RespondError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}

	code := StatusFor(appErr.Kind)
	message := appErr.Message

	switch appErr.Kind {
	case KindInternal, KindInvalidState:
		ErrorLogger.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"path":       c.Request.URL.Path,
			"kind":       appErr.Kind,
		}).Error(err)
		if appErr.Kind == KindInternal {
			message = "internal server error"
		}
	case KindUnauthenticated:
		c.Header("WWW-Authenticate", "Bearer")
	}

	c.JSON(code, JSONResponse{
		Status:  false,
		Message: message,
		Error:   appErr.Kind,
	})
}

// AbortWithError responds and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	RespondError(c, err)
	c.Abort()
}

// RespondValidation wraps a binding failure as a validation error.
func RespondValidation(c *gin.Context, err error) {
	RespondError(c, &AppError{Kind: KindValidation, Message: err.Error()})
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"
