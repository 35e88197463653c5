package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"channelbuyer/internal/chain"
	"channelbuyer/internal/db"
)

type HealthHandler struct {
	DB    *db.DB
	Chain chain.Client
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Liveness probe
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "channelbuyer", "status": "up"})
}

// @Summary Readiness probe
// @Tags health
// @Success 200 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	detail := gin.H{"db": "ok", "chain": "ok"}

	if err := db.Ping(h.DB); err != nil {
		detail["db"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, detail)
		return
	}

	// A dead RPC degrades trading but the management surface stays usable,
	// so the chain state is reported without failing readiness.
	if h.Chain != nil {
		probeCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		if err := h.Chain.Ping(probeCtx); err != nil {
			detail["chain"] = err.Error()
		}
		cancel()
	}

	c.JSON(http.StatusOK, detail)
}
