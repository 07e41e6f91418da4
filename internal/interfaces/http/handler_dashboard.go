package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"infinixai/internal/entities"
)

const maxImportBytes = 5 << 20

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.SaveSettings)

	api.GET("/products", h.ListProducts)
	api.POST("/products", h.CreateProduct)
	api.POST("/products/import", h.ImportProducts)
	api.PUT("/products/:id", h.UpdateProduct)
	api.PATCH("/products/:id/toggle", h.ToggleProduct)
	api.DELETE("/products/:id", h.DeleteProduct)

	api.POST("/prompt/preview", h.PreviewPrompt)

	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/:id/messages", h.ListMessages)
}

// Settings

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.Dashboard.GetSettings(c.Request.Context(), tenantOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) SaveSettings(c *gin.Context) {
	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateSettings(input); err != nil {
		respondError(c, err)
		return
	}
	for key, value := range input {
		if s, ok := value.(string); ok {
			input[key] = SanitizeString(s)
		}
	}

	if err := h.Dashboard.SaveSettings(c.Request.Context(), tenantOf(c), input); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Products

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.Dashboard.ListProducts(c.Request.Context(), tenantOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []entities.ProductEntry{}
	}
	c.JSON(http.StatusOK, products)
}

// bindProduct reads a product body leniently: prices and flags arrive as
// numbers, strings or booleans depending on the client.
func bindProduct(c *gin.Context) (entities.ProductEntry, bool) {
	var rec map[string]any
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return entities.ProductEntry{}, false
	}
	p := entities.ProductFromRecord(rec)
	p.Name = SanitizeString(p.Name)
	p.Description = SanitizeString(p.Description)
	if err := validateProduct(p); err != nil {
		respondError(c, err)
		return entities.ProductEntry{}, false
	}
	return p, true
}

func (h *Handler) CreateProduct(c *gin.Context) {
	p, ok := bindProduct(c)
	if !ok {
		return
	}
	if err := h.Dashboard.CreateProduct(c.Request.Context(), tenantOf(c), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	p, ok := bindProduct(c)
	if !ok {
		return
	}
	p.ID = c.Param("id")
	if err := h.Dashboard.UpdateProduct(c.Request.Context(), tenantOf(c), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ToggleProduct(c *gin.Context) {
	state, err := h.Dashboard.ToggleProduct(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "is_active": state})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.Dashboard.DeleteProduct(c.Request.Context(), tenantOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ImportProducts accepts a CSV either as multipart field "file" or as the
// raw request body.
func (h *Handler) ImportProducts(c *gin.Context) {
	var data io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file required"})
			return
		}
		if file.Size > maxImportBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "CSV file too large"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		defer f.Close()
		data = f
	} else {
		data = io.LimitReader(c.Request.Body, maxImportBytes)
	}

	count, err := h.Dashboard.ImportProducts(c.Request.Context(), tenantOf(c), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "imported", "count": count})
}

// Prompt

func (h *Handler) PreviewPrompt(c *gin.Context) {
	var req struct {
		Message any `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	prompt, err := h.Dashboard.PreviewPrompt(c.Request.Context(), tenantOf(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

// Conversations

func (h *Handler) ListConversations(c *gin.Context) {
	conversations, err := h.Dashboard.ListConversations(c.Request.Context(), tenantOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if conversations == nil {
		conversations = []entities.Conversation{}
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *Handler) ListMessages(c *gin.Context) {
	messages, err := h.Dashboard.ListMessages(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []entities.ChatLog{}
	}
	c.JSON(http.StatusOK, messages)
}
