package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/folio-org/mod-rtac-cache-sub000/pkg/response"
)

// Health returns a simple status payload useful for readiness checks. The
// database ping guards against reporting ready with a dead connection pool.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK

		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		response.Success(c, code, gin.H{"status": status})
	}
}
