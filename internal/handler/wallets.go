package handler

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"channelbuyer/internal/holdergate"
	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

type WalletHandler struct {
	Repo         repository.Repository
	Gate         *holdergate.Gate
	ChainDefault int64
}

func (h *WalletHandler) Register(r *gin.Engine) {
	g := r.Group("/wallets")
	g.POST("", h.create)
	g.GET("/list", h.list)
	g.PUT("/:id/label", h.updateLabel)
}

type createWalletRequest struct {
	Address string `json:"address"`
	ChainID *int64 `json:"chainId"`
	Label   string `json:"label"`
}

// @Summary Register a funding wallet
// @Tags wallets
// @Accept json
// @Success 200 {object} models.Wallet
// @Router /wallets [post]
func (h *WalletHandler) create(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	addr := strings.TrimSpace(req.Address)
	if !common.IsHexAddress(addr) {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	ok, err := h.Gate.Allows(c.Request.Context(), addr)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !ok {
		Error(c, http.StatusPaymentRequired, "holder requirement not met", nil)
		return
	}
	chainID := h.ChainDefault
	if req.ChainID != nil {
		chainID = *req.ChainID
	}
	item := &models.Wallet{
		UserID:  user.ID,
		Address: addr,
		ChainID: chainID,
		Label:   strings.TrimSpace(req.Label),
	}
	if err := h.Repo.InsertWallet(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

type updateLabelRequest struct {
	Label string `json:"label"`
}

// @Summary Update a wallet label
// @Tags wallets
// @Accept json
// @Success 200 {object} models.Wallet
// @Router /wallets/{id}/label [put]
func (h *WalletHandler) updateLabel(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	var req updateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Repo.GetWalletByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil || item.UserID != user.ID {
		Error(c, http.StatusNotFound, "wallet not found", nil)
		return
	}
	if err := h.Repo.UpdateWalletLabel(c.Request.Context(), id, strings.TrimSpace(req.Label)); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item.Label = strings.TrimSpace(req.Label)
	Ok(c, item, nil)
}

// @Summary List wallets
// @Tags wallets
// @Success 200 {array} models.Wallet
// @Router /wallets/list [get]
func (h *WalletHandler) list(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListWalletsByUserID(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
