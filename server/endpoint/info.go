package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asrkit/version"
)

var startTime = time.Now()

// Info reports build information, uptime and the non-secret settings the
// caller passes in (backend, model, chunk limits).
func Info(serviceName string, settings map[string]any) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.GetVersionInfo()
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"version":    v.Version,
			"git_commit": v.GitCommit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"uptime":     time.Since(startTime).Round(time.Second).String(),
			"settings":   settings,
		})
	}
}
