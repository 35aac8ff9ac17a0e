package handlers

import (
	"net/http"
	"strings"

	"planning-poker-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SettingsHandler struct {
	db *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

type SettingsResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	DefaultDeck string `json:"default_deck"`
}

type UpdateSettingsRequest struct {
	DisplayName *string `json:"display_name" example:"Drew"`
	DefaultDeck *string `json:"default_deck" example:"0,1,2,3,5,8,13,?,coffee"`
}

// GetSettings godoc
// @Summary      Get profile settings
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} SettingsResponse
// @Router       /api/v1/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	deck := user.DefaultDeck
	if deck == "" {
		deck = models.DefaultDeck
	}

	c.JSON(http.StatusOK, SettingsResponse{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		DefaultDeck: deck,
	})
}

// UpdateSettings godoc
// @Summary      Update profile settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateSettingsRequest true "Settings"
// @Success      200 {object} SettingsResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.DefaultDeck != nil {
		deck := strings.TrimSpace(*req.DefaultDeck)
		if deck == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "default deck cannot be empty"})
			return
		}
		user.DefaultDeck = deck
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		DefaultDeck: user.DefaultDeck,
	})
}
