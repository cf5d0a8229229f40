package middleware

import (
	"net/http"
	"strings"

	"ambulink/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and puts the authenticated
// identity and role into the request context. Everything downstream trusts
// these values, never client-supplied ids or roles.
func AuthRequired(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secretKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_type", claims.UserType)

		c.Next()
	}
}

// DriverRequired ensures the authenticated user is a driver.
func DriverRequired() gin.HandlerFunc {
	return roleRequired(utils.RoleDriver, "Driver access required")
}

// PatientRequired ensures the authenticated user is a patient.
func PatientRequired() gin.HandlerFunc {
	return roleRequired(utils.RolePatient, "Patient access required")
}

func roleRequired(role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, exists := c.Get("user_type")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User type not found"})
			c.Abort()
			return
		}

		userTypeStr, ok := userType.(string)
		if !ok || userTypeStr != role {
			c.JSON(http.StatusForbidden, gin.H{"error": message})
			c.Abort()
			return
		}

		c.Next()
	}
}
