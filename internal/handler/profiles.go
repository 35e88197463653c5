package handler

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"channelbuyer/internal/holdergate"
	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

const (
	defaultKeywords  = "buy,ca,contract,token,launch,shill,coin"
	defaultDenyWords = "presale,airdrop,testnet,faucet"
	defaultThrottleS = 900
	defaultFeeBps    = 100
)

type ProfileHandler struct {
	Repo             repository.Repository
	Gate             *holdergate.Gate
	TreasuryFallback string
}

func (h *ProfileHandler) Register(r *gin.Engine) {
	g := r.Group("/profiles")
	g.POST("", h.create)
	g.POST("/:id/dryrun", h.dryRun)
	g.GET("/:id/status", h.status)
}

type createProfileRequest struct {
	WalletID              string  `json:"walletId"`
	AmountNative          *string `json:"amountNative"`
	SlippageBps           *int    `json:"slippageBps"`
	MinSecondsBetweenBuys *int    `json:"minSecondsBetweenBuys"`
	Keywords              string  `json:"keywords"`
	DenyWords             string  `json:"denyWords"`
	Router                string  `json:"router"`
	WrappedNative         string  `json:"wrappedNative"`
	FeeBps                *int    `json:"feeBps"`
	Treasury              string  `json:"treasury"`
	DryRun                *bool   `json:"dryRun"`
}

// @Summary Create a buy profile
// @Tags profiles
// @Accept json
// @Success 200 {object} models.BuyProfile
// @Router /profiles [post]
func (h *ProfileHandler) create(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.WalletID == "" || req.AmountNative == nil || req.SlippageBps == nil ||
		!common.IsHexAddress(strings.TrimSpace(req.Router)) ||
		!common.IsHexAddress(strings.TrimSpace(req.WrappedNative)) {
		Error(c, http.StatusBadRequest, "walletId, amountNative, slippageBps, router, wrappedNative required", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(*req.AmountNative))
	if err != nil || amount.IsNegative() {
		Error(c, http.StatusBadRequest, "invalid amountNative", nil)
		return
	}
	if *req.SlippageBps < 0 || *req.SlippageBps > 10000 {
		Error(c, http.StatusBadRequest, "slippageBps must be in [0,10000]", nil)
		return
	}
	feeBps := defaultFeeBps
	if req.FeeBps != nil {
		feeBps = *req.FeeBps
	}
	if feeBps < 0 || feeBps > 10000 {
		Error(c, http.StatusBadRequest, "feeBps must be in [0,10000]", nil)
		return
	}
	throttle := defaultThrottleS
	if req.MinSecondsBetweenBuys != nil {
		throttle = *req.MinSecondsBetweenBuys
	}
	if throttle < 0 {
		Error(c, http.StatusBadRequest, "minSecondsBetweenBuys must be >= 0", nil)
		return
	}

	wallet, err := h.Repo.GetWalletByID(c.Request.Context(), req.WalletID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if wallet == nil || wallet.UserID != user.ID {
		Error(c, http.StatusNotFound, "wallet not found", nil)
		return
	}
	pass, err := h.Gate.Allows(c.Request.Context(), wallet.Address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !pass {
		Error(c, http.StatusPaymentRequired, "holder requirement not met", nil)
		return
	}

	item := &models.BuyProfile{
		UserID:                user.ID,
		WalletID:              wallet.ID,
		AmountNative:          amount,
		SlippageBps:           *req.SlippageBps,
		MinSecondsBetweenBuys: throttle,
		Keywords:              orDefault(req.Keywords, defaultKeywords),
		DenyWords:             orDefault(req.DenyWords, defaultDenyWords),
		Router:                strings.TrimSpace(req.Router),
		WrappedNative:         strings.TrimSpace(req.WrappedNative),
		FeeBps:                feeBps,
		DryRun:                true,
	}
	if req.DryRun != nil {
		item.DryRun = *req.DryRun
	}
	if t := strings.TrimSpace(req.Treasury); t != "" {
		if !common.IsHexAddress(t) {
			Error(c, http.StatusBadRequest, "invalid treasury address", nil)
			return
		}
		item.Treasury = &t
	} else if f := strings.TrimSpace(h.TreasuryFallback); f != "" {
		item.Treasury = &f
	}
	if err := h.Repo.InsertBuyProfile(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

type dryRunRequest struct {
	Toggle bool  `json:"toggle"`
	DryRun *bool `json:"dryRun"`
}

// @Summary Toggle or set a profile's dry-run flag
// @Tags profiles
// @Accept json
// @Success 200 {object} map[string]bool
// @Router /profiles/{id}/dryrun [post]
func (h *ProfileHandler) dryRun(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	var req dryRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Repo.GetBuyProfileByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil || item.UserID != user.ID {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	next := item.DryRun
	if req.Toggle {
		next = !item.DryRun
	} else if req.DryRun != nil {
		next = *req.DryRun
	}
	if err := h.Repo.UpdateBuyProfileDryRun(c.Request.Context(), id, next); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]bool{"dryRun": next}, nil)
}

// @Summary Profile status
// @Tags profiles
// @Success 200 {object} map[string]any
// @Router /profiles/{id}/status [get]
func (h *ProfileHandler) status(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.Repo.GetBuyProfileByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil || item.UserID != user.ID {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	Ok(c, gin.H{
		"walletAddress": item.Wallet.Address,
		"amountNative":  item.AmountNative,
		"slippageBps":   item.SlippageBps,
		"dryRun":        item.DryRun,
		"feeBps":        item.FeeBps,
		"treasury":      item.Treasury,
	}, nil)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
