package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"channelbuyer/internal/holdergate"
	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

type ChannelHandler struct {
	Repo repository.Repository
	Gate *holdergate.Gate
}

func (h *ChannelHandler) Register(r *gin.Engine) {
	g := r.Group("/channels")
	g.POST("", h.bind)
	g.GET("/list", h.list)
	g.POST("/toggleBySlug", h.toggleBySlug)
}

type bindChannelRequest struct {
	Slug         string `json:"slug"`
	Mode         string `json:"mode"`
	BuyProfileID string `json:"buyProfileId"`
	Active       *bool  `json:"active"`
}

// @Summary Bind a channel slug to a buy profile
// @Tags channels
// @Accept json
// @Success 200 {object} models.Channel
// @Router /channels [post]
func (h *ChannelHandler) bind(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req bindChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" || req.BuyProfileID == "" {
		Error(c, http.StatusBadRequest, "slug and buyProfileId required", nil)
		return
	}
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = models.ChannelModeMTProto
	}
	if mode != models.ChannelModeMTProto {
		Error(c, http.StatusBadRequest, "unsupported mode", nil)
		return
	}

	profile, err := h.Repo.GetBuyProfileByID(c.Request.Context(), req.BuyProfileID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if profile == nil || profile.UserID != user.ID {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	pass, err := h.Gate.Allows(c.Request.Context(), profile.Wallet.Address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !pass {
		Error(c, http.StatusPaymentRequired, "holder requirement not met", nil)
		return
	}

	item := &models.Channel{
		UserID:       user.ID,
		Slug:         slug,
		Mode:         mode,
		BuyProfileID: profile.ID,
		Active:       true,
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if err := h.Repo.UpsertChannelBinding(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List channel bindings
// @Tags channels
// @Success 200 {array} models.Channel
// @Router /channels/list [get]
func (h *ChannelHandler) list(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListChannelsByUserID(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type toggleChannelRequest struct {
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}

// @Summary Activate or deactivate a channel binding by slug
// @Tags channels
// @Accept json
// @Success 200 {object} models.Channel
// @Router /channels/toggleBySlug [post]
func (h *ChannelHandler) toggleBySlug(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req toggleChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		Error(c, http.StatusBadRequest, "slug required", nil)
		return
	}
	item, err := h.Repo.GetChannelByUserSlug(c.Request.Context(), user.ID, slug)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "channel not found", nil)
		return
	}
	if err := h.Repo.SetChannelActive(c.Request.Context(), item.ID, req.Active); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item.Active = req.Active
	Ok(c, item, nil)
}
