package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/service"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/middleware"
)

// AdminHandler handles administrative security actions
type AdminHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService service.AuthService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		logger:      logger,
	}
}

// RevokeUserSessions handles POST /admin/users/:id/revoke-sessions
func (h *AdminHandler) RevokeUserSessions(c *gin.Context) {
	userIDStr := c.Param("id")
	userID, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		h.logger.Error("❌ [AdminHandler] Invalid user ID", "user_id", userIDStr, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	h.logger.Info("🛡️ [AdminHandler] Revoking all sessions",
		"user_id", userID,
		"admin_id", c.GetUint(middleware.ContextUserID),
	)

	if err := h.authService.LogoutAll(c.Request.Context(), uint(userID)); err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All sessions revoked", "user_id": userID})
}

// ListUserSessions handles GET /admin/users/:id/sessions
func (h *AdminHandler) ListUserSessions(c *gin.Context) {
	userIDStr := c.Param("id")
	userID, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		h.logger.Error("❌ [AdminHandler] Invalid user ID", "user_id", userIDStr, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	sessions, err := h.authService.ListSessions(c.Request.Context(), uint(userID))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "sessions": sessions})
}
