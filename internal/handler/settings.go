package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"channelbuyer/internal/service"
	"channelbuyer/internal/trade"
)

type SettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	r.GET("/settings/trading", h.get)
	r.PUT("/settings/trading", h.put)
}

// @Summary Read the global trading kill switch
// @Tags settings
// @Success 200 {object} map[string]bool
// @Router /settings/trading [get]
func (h *SettingsHandler) get(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	enabled := h.Settings.IsEnabled(c.Request.Context(), trade.FeatureTrading, true)
	Ok(c, map[string]bool{"enabled": enabled}, nil)
}

type putSettingRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Set the global trading kill switch
// @Tags settings
// @Accept json
// @Success 200 {object} map[string]bool
// @Router /settings/trading [put]
func (h *SettingsHandler) put(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "enabled required", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), trade.FeatureTrading, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]bool{"enabled": *req.Enabled}, nil)
}
