package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/scheduler/api/transport"
	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/pkg/httpcontext"
)

// Claims is the access token payload.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies an HS256 bearer token and stores the user id and role as
// request user values. An empty issuer skips the issuer check.
func JWTAuth(secret, issuer string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, domain.ErrUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				reject(ctx, domain.ErrUnauthorized)
				return
			}
			if issuer != "" && !claims.VerifyIssuer(issuer, true) {
				logger.Warn("jwt issuer mismatch", zap.String("issuer", claims.Issuer))
				reject(ctx, domain.ErrUnauthorized)
				return
			}
			if claims.UserID == "" || !claims.Role.Valid() {
				reject(ctx, domain.ErrUnauthorized)
				return
			}

			ctx.SetUserValue(string(httpcontext.KeyUserID), claims.UserID)
			ctx.SetUserValue(string(httpcontext.KeyUserRole), string(claims.Role))
			ctx.Request.Header.Set("X-User-ID", claims.UserID)

			next(ctx)
		}
	}
}

// RequireRole lets the request through only for the listed roles. It must run
// after JWTAuth.
func RequireRole(roles ...domain.Role) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			role, _ := ctx.UserValue(string(httpcontext.KeyUserRole)).(string)
			if _, ok := allowed[domain.Role(role)]; !ok {
				reject(ctx, domain.ErrForbidden)
				return
			}
			next(ctx)
		}
	}
}

func reject(ctx *fasthttp.RequestCtx, err *domain.Error) {
	status := http.StatusUnauthorized
	if err.Code == domain.ErrCodeForbidden {
		status = http.StatusForbidden
	}
	body, _ := json.Marshal(transport.NewError(string(err.Code), err.Message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return header
}
