package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		Abort(c, err)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func body(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	return resp.Error
}

func TestAbort_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated(), http.StatusUnauthorized},
		{"forbidden", Forbidden(), http.StatusForbidden},
		{"not found", NotFound("order"), http.StatusNotFound},
		{"conflict", Conflict("dup"), http.StatusConflict},
		{"upstream", Upstream("gateway down", errors.New("boom")), http.StatusBadGateway},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
		{"unknown error type", errors.New("raw"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := serve(t, tc.err); rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAbort_DeadlineBecomesPoolExhausted(t *testing.T) {
	rec := serve(t, Internal(context.DeadlineExceeded))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := body(t, rec); got != "connection pool exhausted" {
		t.Fatalf("message = %q", got)
	}

	// A bare deadline error, unwrapped by any handler, maps the same way.
	if rec := serve(t, context.DeadlineExceeded); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("bare deadline: %d, want 503", rec.Code)
	}
}

func TestAbort_InternalCauseNeverLeaks(t *testing.T) {
	rec := serve(t, Internal(errors.New("password=hunter2 dsn=postgres://")))
	if got := body(t, rec); got != "internal server error" {
		t.Fatalf("internal cause leaked to the caller: %q", got)
	}
}
