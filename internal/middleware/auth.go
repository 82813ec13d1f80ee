package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sipitali-server/internal/authz"
	"sipitali-server/internal/config"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/services"
	"sipitali-server/internal/utils"
)

const callerKey = "caller"

// AuthMiddleware creates a middleware for JWT authentication. The role is read
// from the user record so role changes apply to tokens already issued.
func AuthMiddleware(cfg *config.Config, users repository.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Not authorized, no token")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Not authorized, token failed")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "Not authorized, user not found")
			c.Abort()
			return
		}
		if err != nil {
			utils.RespondError(c, err)
			c.Abort()
			return
		}

		c.Set(callerKey, services.Caller{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// RequireOperation gates a route on the role policy for op. It must run after
// AuthMiddleware. Ownership rules are applied by the services.
func RequireOperation(op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			utils.InternalServerError(c, "Caller not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		if err := authz.Check(caller.Role, op); err != nil {
			utils.RespondError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerFromContext returns the authenticated caller set by AuthMiddleware.
func CallerFromContext(c *gin.Context) (services.Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return services.Caller{}, false
	}
	caller, ok := v.(services.Caller)
	return caller, ok
}
