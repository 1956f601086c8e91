package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/club19/salesos/internal/infrastructure/auth"
	"github.com/club19/salesos/internal/infrastructure/logger"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin keys set by RequireToken
const (
	JWTClaimsKey   = "jwt_claims"
	JWTSubjectKey  = "jwt_subject"
	JWTOperatorKey = "jwt_operator"
)

const bearerScheme = "bearer"

// RequireToken admits requests carrying a valid operator access token and
// stores the claims on the gin context. Requests whose path equals one of
// publicPaths, or sits under one ending in "/", pass through unauthenticated.
func RequireToken(svc *auth.JWTService, log *zap.Logger, publicPaths ...string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path, publicPaths) {
			c.Next()
			return
		}

		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *auth.Claims
			if claims, err = svc.ValidateAccessToken(token); err == nil {
				admit(c, claims)
				c.Next()
				return
			}
		}

		log.Warn("Rejected operator token",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", getRequestID(c)))
		code, msg := tokenFailure(err)
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.Fail(code, msg, getRequestID(c)))
	}
}

var errNoCredentials = errors.New("no authorization header")

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", auth.ErrInvalidToken
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

func isPublic(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func admit(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTSubjectKey, claims.Subject)
	c.Set(JWTOperatorKey, claims.Operator())

	ctx := c.Request.Context()
	ctx, _ = logger.WithOperator(ctx, logger.FromContext(ctx), claims.Subject)
	c.Request = c.Request.WithContext(ctx)
}

func tokenFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, errNoCredentials):
		return dto.ErrCodeUnauthorized, "Authentication required"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}

// Claims returns the validated token claims, or nil outside RequireToken
func Claims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(JWTClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// Operator is the display name recorded against manual ledger changes
func Operator(c *gin.Context) string {
	return c.GetString(JWTOperatorKey)
}
