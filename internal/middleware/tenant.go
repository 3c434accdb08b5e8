package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-org/mod-rtac-cache-sub000/pkg/errors"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/response"
)

// TenantHeader carries the tenant id on every gateway request.
const TenantHeader = "X-Okapi-Tenant"

// TenantKey is the gin context key the resolved tenant is stored under.
const TenantKey = "tenant"

// Tenant requires the tenant header and stores its value on the context.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader(TenantHeader)
		if tenant == "" {
			response.Error(c, errors.New("MISSING_TENANT", "Missing "+TenantHeader+" header", http.StatusBadRequest))
			c.Abort()
			return
		}
		c.Set(TenantKey, tenant)
		c.Next()
	}
}

// TenantFrom returns the tenant resolved by the Tenant middleware.
func TenantFrom(c *gin.Context) string {
	return c.GetString(TenantKey)
}
