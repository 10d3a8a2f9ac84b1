package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gategin "github.com/swimbuddz/membership-gateway/adapters/gin"
	auditpg "github.com/swimbuddz/membership-gateway/audit/postgres"
	"github.com/swimbuddz/membership-gateway/ratelimit"
)

// HandleAuditRecentGET lists recent gate decisions for operators. Only the
// configured admin email may call it.
func HandleAuditRecentGET(cfg gategin.GateConfig, store *auditpg.Store, adminEmail string, rl ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, _ := rl.Allow(c.Request.Context(), ratelimit.BucketAuditRecent, c.ClientIP()); !ok {
			tooMany(c)
			return
		}
		authn := cfg.Authn(c)
		if authn.User == nil {
			unauthorized(c, "not_logged_in")
			return
		}
		if adminEmail == "" || !strings.EqualFold(authn.User.Email, adminEmail) {
			forbidden(c, "admin_only")
			return
		}
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit_disabled"})
			return
		}
		limit := clampLimit(c.DefaultQuery("limit", "100"))
		items, err := store.Recent(c.Request.Context(), limit)
		if err != nil {
			serverErr(c, "failed_to_list_audit_events")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items, "limit": limit})
	}
}

// clampLimit parses the limit query, falling back to 100 outside (0, 500].
// The echoed limit must match what the store actually applies.
func clampLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return 100
	}
	return n
}
