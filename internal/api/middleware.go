package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain" // For domain.Role
	"alcyxob/fitness-coach/internal/service"
)

// Constants for context keys
const (
	ContextIdentityKey = "identity"
)

// AuthMiddleware creates a Gin middleware for JWT authentication. The token's
// email is resolved to the stored user on every request.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}
		if !authenticate(c, authService, authHeader) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware authenticates the caller when a token is present and
// lets anonymous requests through otherwise. A present but invalid token is rejected.
func OptionalAuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !authenticate(c, authService, authHeader) {
				return
			}
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, authService service.AuthService, authHeader string) bool {
	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
		return false
	}

	claims, err := authService.ParseToken(parts[1])
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			abortWithError(c, http.StatusUnauthorized, "Token has expired")
		} else {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing claims")
		}
		return false
	}

	identity, err := authService.ResolveIdentity(c.Request.Context(), claims.Email, claims.Role)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			abortWithError(c, http.StatusUnauthorized, "User for this token no longer exists")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to resolve user")
		}
		return false
	}

	// --- Token is valid ---
	c.Set(ContextIdentityKey, identity)
	return true
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFromContext(c)
		if identity.Anonymous() {
			// This should not happen if AuthMiddleware ran correctly
			abortWithError(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !slices.Contains(allowedRoles, identity.Role) {
			abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", identity.Role))
			return
		}
		c.Next()
	}
}

// identityFromContext returns the authenticated caller, or the anonymous
// identity when no token was presented.
func identityFromContext(c *gin.Context) domain.Identity {
	raw, exists := c.Get(ContextIdentityKey)
	if !exists {
		return domain.Identity{}
	}
	identity, _ := raw.(domain.Identity)
	return identity
}
