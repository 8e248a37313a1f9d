package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/pkg/httpcontext"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(role domain.Role) Claims {
	return Claims{
		UserID: "u-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "therapy-scheduler",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func serve(handler fasthttp.RequestHandler, token string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	if token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+token)
	}
	handler(&ctx)
	return &ctx
}

func chain() (fasthttp.RequestHandler, *string) {
	var seen string
	final := func(ctx *fasthttp.RequestCtx) {
		seen, _ = ctx.UserValue(string(httpcontext.KeyUserID)).(string)
		ctx.SetStatusCode(http.StatusNoContent)
	}
	auth := JWTAuth(secret, "therapy-scheduler", nil)
	return auth(RequireRole(domain.RoleAdmin)(final)), &seen
}

func TestJWTAuth_AdminAllowed(t *testing.T) {
	h, seen := chain()
	ctx := serve(h, sign(t, jwt.SigningMethodHS256, validClaims(domain.RoleAdmin)))
	assert.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "u-1", *seen)
	assert.Equal(t, "u-1", string(ctx.Request.Header.Peek("X-User-ID")))
}

func TestJWTAuth_Rejections(t *testing.T) {
	expired := validClaims(domain.RoleAdmin)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims(domain.RoleAdmin)
	wrongIssuer.Issuer = "someone-else"
	noRole := validClaims("")

	cases := map[string]struct {
		token  string
		status int
	}{
		"missing":   {"", http.StatusUnauthorized},
		"garbage":   {"not-a-jwt", http.StatusUnauthorized},
		"expired":   {sign(t, jwt.SigningMethodHS256, expired), http.StatusUnauthorized},
		"issuer":    {sign(t, jwt.SigningMethodHS256, wrongIssuer), http.StatusUnauthorized},
		"alg":       {sign(t, jwt.SigningMethodHS512, validClaims(domain.RoleAdmin)), http.StatusUnauthorized},
		"no role":   {sign(t, jwt.SigningMethodHS256, noRole), http.StatusUnauthorized},
		"parent":    {sign(t, jwt.SigningMethodHS256, validClaims(domain.RoleParent)), http.StatusForbidden},
		"therapist": {sign(t, jwt.SigningMethodHS256, validClaims(domain.RoleTherapist)), http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, seen := chain()
			ctx := serve(h, tc.token)
			assert.Equal(t, tc.status, ctx.Response.StatusCode())
			assert.Empty(t, *seen)
			assert.Contains(t, string(ctx.Response.Body()), `"status":"error"`)
		})
	}
}
