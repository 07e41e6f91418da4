package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

func (h *Handler) registerWhatsAppRoutes(api *gin.RouterGroup) {
	wa := api.Group("/whatsapp")
	{
		wa.POST("/connect", h.ConnectWhatsApp)
		wa.GET("/qr", h.WhatsAppQRCode)
		wa.GET("/status", h.WhatsAppStatus)
		wa.POST("/logout", h.LogoutWhatsApp)
	}
}

// ConnectWhatsApp opens and connects the tenant's linked device.
func (h *Handler) ConnectWhatsApp(c *gin.Context) {
	if h.WhatsApp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}
	status, err := h.WhatsApp.Connect(c.Request.Context(), tenantOf(c))
	if err != nil {
		logrus.WithError(err).WithField("tenant_id", tenantOf(c)).Error("[WA] Connect failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect WhatsApp"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "connecting",
		"connected": status.Connected,
		"phone":     status.Phone,
		"name":      status.Name,
	})
}

// WhatsAppQRCode returns the pairing QR code as PNG.
func (h *Handler) WhatsAppQRCode(c *gin.Context) {
	if h.WhatsApp == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp not configured")
		return
	}

	code, loggedIn, err := h.WhatsApp.PairingCode(c.Request.Context(), tenantOf(c))
	if err != nil {
		logrus.WithError(err).WithField("tenant_id", tenantOf(c)).Error("[WA] Pairing failed")
		c.String(http.StatusBadGateway, "Failed to start pairing")
		return
	}
	if code == "" {
		if loggedIn {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, qrSize)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) WhatsAppStatus(c *gin.Context) {
	if h.WhatsApp == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": "WhatsApp not configured"})
		return
	}
	c.JSON(http.StatusOK, h.WhatsApp.Status(tenantOf(c)))
}

// LogoutWhatsApp unlinks the tenant's device. Logout errors are logged, the
// session is dropped either way.
func (h *Handler) LogoutWhatsApp(c *gin.Context) {
	if h.WhatsApp == nil {
		c.JSON(http.StatusOK, gin.H{"status": "logged_out", "message": "WhatsApp not configured"})
		return
	}
	if err := h.WhatsApp.LogoutClient(tenantOf(c)); err != nil {
		logrus.WithError(err).WithField("tenant_id", tenantOf(c)).Warn("[WA] Logout failed")
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
