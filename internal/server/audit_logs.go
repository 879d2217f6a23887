package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/bldragon101/worklog/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	req := auditdomain.ListRequest{}
	if entityType := strings.TrimSpace(c.Query("entity_type")); entityType != "" {
		req.EntityType = &entityType
	}
	if raw := strings.TrimSpace(c.Query("entity_id")); raw != "" {
		entityID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("entity_id", "invalid_id", "invalid entity id"))
			return
		}
		req.EntityID = &entityID
	}

	logs, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
