// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetOrganizationID gets the authenticated organization ID from context
func GetOrganizationID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("organization_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MustGetOrganizationID gets the organization ID from context or panics
func MustGetOrganizationID(c *gin.Context) int64 {
	id, exists := GetOrganizationID(c)
	if !exists {
		panic("organization_id not found in context")
	}
	return id
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("organization_id")
	return exists
}
