package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/topfive-api/internal/middleware"
	"github.com/noah-isme/topfive-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext builds the caller identity passed to services. Anonymous
// requests yield an actor with an empty ID.
func actorFromContext(c *gin.Context) models.Actor {
	actor := models.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := claimsFromContext(c); claims != nil {
		actor.ID = claims.UserID
		actor.Role = claims.Role
	}
	return actor
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
