package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
	"infinixai/internal/usecases"
)

func (h *Handler) registerAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/usage-summary", h.UsageSummary)
	admin.GET("/companies", h.ListCompanies)
	admin.GET("/chat-logs", h.ChatLogs)
	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:id/status", h.UpdateUserStatus)
	admin.DELETE("/tenants/:id", h.DropTenant)
}

// UsageSummary reports usage between the optional startDate and endDate
// (YYYY-MM-DD, both inclusive).
func (h *Handler) UsageSummary(c *gin.Context) {
	from, to, err := usecases.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.Usage.Summary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListCompanies(c *gin.Context) {
	companies, err := h.Companies.ListCompanies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if companies == nil {
		companies = []entities.Company{}
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

// ChatLogs lists the latest chat logs, optionally of one tenant
// (?userId=...). limit defaults to the repository maximum.
func (h *Handler) ChatLogs(c *gin.Context) {
	tenantID := c.Query("userId")
	if tenantID == "all" {
		tenantID = ""
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	logs, err := h.Logs.RecentLogs(c.Request.Context(), tenantID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []entities.ChatLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []entities.User{}
	}
	c.JSON(http.StatusOK, users)
}

// UpdateUserStatus enables/disables a user account
func (h *Handler) UpdateUserStatus(c *gin.Context) {
	userID := c.Param("id")

	var payload struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Don't allow disabling self
	if userID == tenantOf(c) && !*payload.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot disable your own account"})
		return
	}

	if err := h.Users.SetActive(c.Request.Context(), userID, *payload.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "is_active": *payload.IsActive})
}

// DropTenant disconnects a tenant's channels and deletes its data. The user
// account is kept.
func (h *Handler) DropTenant(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID == tenantOf(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot drop your own tenant"})
		return
	}

	if h.Telegram != nil {
		h.Telegram.DisconnectBot(tenantID)
	}
	if h.WhatsApp != nil {
		if err := h.WhatsApp.LogoutClient(tenantID); err != nil {
			logrus.WithError(err).WithField("tenant_id", tenantID).Warn("[ADMIN] WhatsApp logout failed")
		}
	}

	if err := h.Tenants.Drop(c.Request.Context(), tenantID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dropped"})
}
