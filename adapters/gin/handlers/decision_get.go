package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gategin "github.com/swimbuddz/membership-gateway/adapters/gin"
	"github.com/swimbuddz/membership-gateway/ratelimit"
)

// HandleDecisionGET evaluates the gate for an arbitrary path without
// issuing the redirect, for forward-auth integrations and debugging.
//
//	GET /authz/decision?path=/sessions/42&query=tab=next
func HandleDecisionGET(cfg gategin.GateConfig, rl ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, _ := rl.Allow(c.Request.Context(), ratelimit.BucketDecision, c.ClientIP()); !ok {
			tooMany(c)
			return
		}
		path := c.Query("path")
		if path == "" {
			path = c.GetHeader("X-Forwarded-Uri")
		}
		if path == "" || !strings.HasPrefix(path, "/") {
			badRequest(c, "missing_path")
			return
		}
		rawQuery := c.Query("query")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path, rawQuery = path[:i], path[i+1:]
		}

		authn := cfg.Authn(c)
		d := cfg.Engine.Evaluate(c.Request.Context(), authn, path, rawQuery)
		c.JSON(http.StatusOK, d)
	}
}
