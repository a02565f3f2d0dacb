// Package httperr defines the error taxonomy shared by every handler and the
// single place where errors become JSON responses. Internal causes are logged
// but never leak to the caller.
package httperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/northcart/ecommerce-api/logger"
)

// Error carries an HTTP status plus a caller-safe message. Err, when set, is
// the internal cause and is only ever logged.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Unauthenticated() *Error {
	return &Error{Status: http.StatusUnauthorized, Message: "authentication required"}
}

func InvalidToken() *Error {
	return &Error{Status: http.StatusUnauthorized, Message: "invalid or expired token"}
}

// Forbidden is deliberately opaque: it never reveals which check failed.
func Forbidden() *Error {
	return &Error{Status: http.StatusForbidden, Message: "forbidden"}
}

func NotFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Message: what + " not found"}
}

func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Message: msg}
}

func Upstream(msg string, err error) *Error {
	return &Error{Status: http.StatusBadGateway, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

// PoolExhausted reports that a database connection could not be acquired
// before the request deadline expired.
func PoolExhausted(err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: "connection pool exhausted", Err: err}
}

// Abort writes the JSON error envelope for err and stops the handler chain.
// Unknown error types are treated as internal.
func Abort(c *gin.Context, err error) {
	var he *Error
	if !errors.As(err, &he) {
		he = Internal(err)
	}
	// A deadline expiring while waiting on the connection pool is a capacity
	// condition, not a server bug.
	if he.Status == http.StatusInternalServerError && errors.Is(err, context.DeadlineExceeded) {
		he = PoolExhausted(err)
	}

	if he.Status >= http.StatusInternalServerError || he.Err != nil {
		log := logger.Get()
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", he.Status).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(he.Status, gin.H{"error": he.Message})
}
