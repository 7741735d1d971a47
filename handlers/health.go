package handlers

import (
	"net/http"

	"educonnect/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last monitor result, probing directly before the first one.
func (hb *HandlerBundle) HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	if status.CheckedAt.IsZero() {
		status = utils.RunHealthChecks(c.Request.Context(), hb.HealthChecks)
	}
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
