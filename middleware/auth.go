package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/raidtable/config"
)

const GMTokenIDKey = "gm_token_id"

// GMAuth validates the Bearer GM token against the :param encounter id.
func GMAuth(sec config.SecurityConfig, param string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := VerifyGMToken(tokenStr, sec.JWTSecret, ctx.Param(param))
		if errors.Is(err, ErrWrongScope) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another encounter"})
			return
		}
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx.Set(GMTokenIDKey, claims.ID)
		ctx.Next()
	}
}

// GetGMTokenID returns the id of the GM token that authorised the request.
func GetGMTokenID(c *gin.Context) string {
	if v, exists := c.Get(GMTokenIDKey); exists {
		return v.(string)
	}
	return ""
}
