package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/memoryd/internal/store"
)

type SystemHandler struct {
	store *store.Store
}

func NewSystemHandler(st *store.Store) *SystemHandler {
	return &SystemHandler{store: st}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "store": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "store": "ok"})
}
