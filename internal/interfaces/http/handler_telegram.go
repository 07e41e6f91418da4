package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"infinixai/internal/entities"
)

func (h *Handler) registerTelegramRoutes(api *gin.RouterGroup) {
	tg := api.Group("/telegram")
	{
		tg.GET("/status", h.TelegramStatus)
		tg.POST("/token", h.SaveTelegramToken)
		tg.POST("/connect", h.ConnectTelegram)
		tg.POST("/disconnect", h.DisconnectTelegram)
		tg.POST("/validate", h.ValidateTelegramToken)
	}
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) telegramConfigured(c *gin.Context) bool {
	if h.Telegram == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram not configured"})
		return false
	}
	return true
}

// TelegramStatus returns the connection status of the tenant's bot
func (h *Handler) TelegramStatus(c *gin.Context) {
	if !h.telegramConfigured(c) {
		return
	}
	tenantID := tenantOf(c)

	token, err := h.Channels.SettingText(c.Request.Context(), tenantID, entities.SettingTelegramToken)
	if err != nil {
		respondError(c, err)
		return
	}
	connected, botName := h.Telegram.GetStatus(tenantID)

	c.JSON(http.StatusOK, gin.H{
		"has_token": token != "",
		"connected": connected,
		"bot_name":  botName,
	})
}

// SaveTelegramToken validates and stores the tenant's bot token. An empty
// token clears it and stops the bot.
func (h *Handler) SaveTelegramToken(c *gin.Context) {
	if !h.telegramConfigured(c) {
		return
	}
	tenantID := tenantOf(c)

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Token = strings.TrimSpace(req.Token)

	if req.Token == "" {
		h.Telegram.DisconnectBot(tenantID)
		if err := h.Channels.DeleteSetting(c.Request.Context(), tenantID, entities.SettingTelegramToken); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
		return
	}

	if err := validateTelegramToken(req.Token); err != nil {
		respondError(c, err)
		return
	}
	botName, err := h.Telegram.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token: " + err.Error()})
		return
	}

	if err := h.Channels.SetSetting(c.Request.Context(), tenantID, entities.SettingTelegramToken, req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "saved",
		"bot_name": botName,
	})
}

// ValidateTelegramToken checks a token without saving it.
func (h *Handler) ValidateTelegramToken(c *gin.Context) {
	if !h.telegramConfigured(c) {
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := validateTelegramToken(req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	botName, err := h.Telegram.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"bot_name": "@" + botName,
	})
}

// ConnectTelegram starts the tenant's bot with the stored token.
func (h *Handler) ConnectTelegram(c *gin.Context) {
	if !h.telegramConfigured(c) {
		return
	}
	tenantID := tenantOf(c)

	token, err := h.Channels.SettingText(c.Request.Context(), tenantID, entities.SettingTelegramToken)
	if err != nil {
		respondError(c, err)
		return
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No token configured. Please save your bot token first."})
		return
	}

	instance, err := h.Telegram.ConnectBot(tenantID, token)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "connected",
		"bot_name": "@" + instance.Bot.Self.UserName,
	})
}

func (h *Handler) DisconnectTelegram(c *gin.Context) {
	if !h.telegramConfigured(c) {
		return
	}
	h.Telegram.DisconnectBot(tenantOf(c))
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
