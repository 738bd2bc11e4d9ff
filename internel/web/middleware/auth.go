package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campuslink/filerelay/internel/domain"
)

// KeyPrincipal is the gin context key holding the authenticated uploader.
const KeyPrincipal = "principal"

// AuthMiddlewareBuilder guards mutating endpoints with a bearer token when a
// signing secret is configured. An empty secret leaves every endpoint open,
// matching the original relay.
type AuthMiddlewareBuilder struct {
	secret []byte
}

func NewAuthMiddlewareBuilder(secret string) *AuthMiddlewareBuilder {
	return &AuthMiddlewareBuilder{
		secret: []byte(secret),
	}
}

func (b *AuthMiddlewareBuilder) CheckToken() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if len(b.secret) == 0 {
			ctx.Next()
			return
		}
		// Reads stay public; only uploads and listings need identity.
		p := ctx.Request.URL.Path
		if p == "/health" || strings.HasPrefix(p, domain.MountPrefix) {
			ctx.Next()
			return
		}

		tokenStr := extractToken(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "Missing bearer token."})
			return
		}

		var claims jwt.RegisteredClaims
		token, err := jwt.ParseWithClaims(tokenStr, &claims,
			func(*jwt.Token) (interface{}, error) {
				return b.secret, nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "Invalid or expired token."})
			return
		}

		ctx.Set(KeyPrincipal, claims.Subject)
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) string {
	authCode := ctx.GetHeader("Authorization")
	if authCode == "" {
		return ""
	}
	segs := strings.Split(authCode, " ")
	if len(segs) != 2 || !strings.EqualFold(segs[0], "Bearer") {
		return ""
	}
	return segs[1]
}
