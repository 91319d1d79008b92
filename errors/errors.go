package errors

import (
	"fmt"
	"net/http"
	"strings"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is the API error carried from services up to handlers.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

var (
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
)

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error: message: %s", e.Message)
}

// GetUniqueContraintError maps a postgres unique violation to a friendly 400.
func GetUniqueContraintError(err error) *Error {
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return New("record already exists", http.StatusBadRequest)
	}
	return ErrInternalServerError
}

// ErrorHandler responds to requests rejected by the rate limiter.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"message": "too many requests, try again in " + info.ResetTime.String(),
		"status":  http.StatusTooManyRequests,
	})
}
