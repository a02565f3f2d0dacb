package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/northcart/ecommerce-api/auth"
	"github.com/northcart/ecommerce-api/models"
)

const jwtSecret = "middleware-test-secret"

type identity struct {
	UserID string
	Email  string
	Roles  []string
}

// newRouter mounts ValidateToken in front of a probe handler that echoes the
// identity it found on the context.
func newRouter(captured *identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", ValidateToken(jwtSecret), func(c *gin.Context) {
		captured.UserID = UserID(c)
		captured.Email = UserEmail(c)
		v, _ := c.Get(CtxRoles)
		captured.Roles, _ = v.([]string)
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sessionToken(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueSessionToken(jwtSecret, &models.User{
		ID:       "u-42",
		Username: "alice",
		Email:    "alice@example.com",
		Roles:    []string{models.RoleUser},
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestValidateToken_AttachesClaims(t *testing.T) {
	var got identity
	r := newRouter(&got)

	if rec := get(r, "Bearer "+sessionToken(t)); rec.Code != http.StatusOK {
		t.Fatalf("valid token: %d", rec.Code)
	}
	if got.UserID != "u-42" || got.Email != "alice@example.com" {
		t.Fatalf("claims = %+v", got)
	}
	if !reflect.DeepEqual(got.Roles, []string{models.RoleUser}) {
		t.Fatalf("roles = %v, want [user]", got.Roles)
	}
}

func TestValidateToken_AcceptsBareToken(t *testing.T) {
	var got identity
	r := newRouter(&got)

	// Some clients omit the Bearer prefix.
	if rec := get(r, sessionToken(t)); rec.Code != http.StatusOK {
		t.Fatalf("bare token: %d", rec.Code)
	}
}

func TestValidateToken_RejectsBadInput(t *testing.T) {
	var got identity
	r := newRouter(&got)

	cases := map[string]string{
		"missing header": "",
		"garbage":        "Bearer not.a.jwt",
		"empty bearer":   "Bearer ",
	}
	for name, header := range cases {
		if rec := get(r, header); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: %d, want 401", name, rec.Code)
		}
	}
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	var got identity
	r := newRouter(&got)

	forged, err := auth.IssueSessionToken("other-secret", &models.User{ID: "u-42", Roles: []string{models.RoleAdmin}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rec := get(r, "Bearer "+forged); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: %d, want 401", rec.Code)
	}
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	var got identity
	r := newRouter(&got)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-42",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := get(r, "Bearer "+signed); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: %d, want 401", rec.Code)
	}
}

func TestValidateToken_RejectsScopedToken(t *testing.T) {
	var got identity
	r := newRouter(&got)

	scoped, err := auth.IssueScopedToken(jwtSecret, "u-42", auth.PurposePasswordReset)
	if err != nil {
		t.Fatalf("issue scoped: %v", err)
	}
	if rec := get(r, "Bearer "+scoped); rec.Code != http.StatusUnauthorized {
		t.Fatalf("scoped token passed session check: %d", rec.Code)
	}
}

func TestValidateToken_NormalizesLegacyRoleClaim(t *testing.T) {
	var got identity
	r := newRouter(&got)

	// Older tokens carried roles as a single string.
	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-42",
		"roles":   "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := legacy.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := get(r, "Bearer "+signed); rec.Code != http.StatusOK {
		t.Fatalf("legacy token: %d", rec.Code)
	}
	if !reflect.DeepEqual(got.Roles, []string{"admin"}) {
		t.Fatalf("roles = %v, want [admin]", got.Roles)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name  string
		roles []string
		want  int
	}{
		{"member", []string{"user", "admin"}, http.StatusOK},
		{"non-member", []string{"user"}, http.StatusForbidden},
		{"empty set", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) {
				c.Set(CtxRoles, tc.roles)
			}, RequireRole(models.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tc.want {
				t.Fatalf("roles %v: %d, want %d", tc.roles, rec.Code, tc.want)
			}
		})
	}
}
