package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/authz"
)

const principalContextKey = "principal"

// authMiddleware parses a bearer HS256 token's "sub" claim into the
// authz.Principal every handler below runs its repo/service calls as.
// Replaces the reference platform's Auth0/JWKS verification, which has no
// other consumer in this module — see internal/config.AuthConfig.
func authMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token sub is not a user id"})
			return
		}

		c.Set(principalContextKey, authz.Principal{UserID: userID})
		c.Next()
	}
}

func principalFrom(c *gin.Context) authz.Principal {
	v, _ := c.Get(principalContextKey)
	p, _ := v.(authz.Principal)
	return p
}
