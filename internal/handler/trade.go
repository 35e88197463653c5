package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"channelbuyer/internal/repository"
	"channelbuyer/internal/trade"
)

type TradeHandler struct {
	Repo   repository.Repository
	Engine *trade.Engine
}

func (h *TradeHandler) Register(r *gin.Engine) {
	r.POST("/trade/execute", h.execute)
	r.GET("/trades/list", h.list)
}

type executeRequest struct {
	Slug  string `json:"slug"`
	Token string `json:"token"`
}

// @Summary Execute one buy attempt for a token seen in a channel
// @Tags trade
// @Accept json
// @Success 200 {object} map[string]string
// @Router /trade/execute [post]
func (h *TradeHandler) execute(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	outcome, err := h.Engine.Execute(c.Request.Context(), user.ID, req.Slug, req.Token)
	if err != nil {
		if errors.Is(err, trade.ErrMalformedToken) {
			Error(c, http.StatusBadRequest, "slug and a 0x token address are required", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"result": outcome.String()}, nil)
}

// @Summary List trade ledger entries
// @Tags trade
// @Success 200 {array} models.TradeLog
// @Router /trades/list [get]
func (h *TradeHandler) list(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTradeLogsParams{UserID: user.ID}
	if v := strings.TrimSpace(c.Query("channelId")); v != "" {
		params.ChannelID = &v
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("slug"))); v != "" && params.ChannelID == nil {
		channel, err := h.Repo.GetChannelByUserSlug(c.Request.Context(), user.ID, v)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		if channel == nil {
			Ok(c, []struct{}{}, nil)
			return
		}
		params.ChannelID = &channel.ID
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		params.Status = &v
	}
	params.Limit = intQuery(c, "limit", 0)
	params.Offset = intQuery(c, "offset", 0)
	items, err := h.Repo.ListTradeLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
