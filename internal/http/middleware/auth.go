package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/services"
)

// TokenParser is the slice of the auth service the middleware needs.
type TokenParser interface {
	ParseAccessToken(token string) (*services.AccessClaims, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens TokenParser
}

func NewAuthMiddleware(log *logger.Logger, tokens TokenParser) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, tokens: tokens}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		ctx, err := am.contextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("Rejected access token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (am *AuthMiddleware) contextFromToken(ctx context.Context, token string) (context.Context, error) {
	claims, err := am.tokens.ParseAccessToken(token)
	if err != nil {
		return ctx, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, errors.New("token subject is not a user id")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID, TokenID: claims.TokenID}), nil
}

func extractBearer(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
