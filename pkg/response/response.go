package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Envelope is the common response contract: every success and error response
// shares this shape.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// JSON sends a success response with the given payload.
func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// OK responds with HTTP 200.
func OK(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data)
}

// Created responds with HTTP 201.
func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	message := appErr.Message
	if appErr.Code == appErrors.ErrInternal.Code {
		// Internal detail stays in the logs, never in the payload.
		message = appErrors.ErrInternal.Message
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Success: false, Message: message})
}

// ValidationError sends a 400 with per-field issues.
func ValidationError(c *gin.Context, message string, fields []FieldError) {
	if message == "" {
		message = appErrors.ErrValidation.Message
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: message, Errors: fields})
}
