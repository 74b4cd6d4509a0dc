package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/materialize"
	"github.com/your-org/memoryd/internal/reasoner"
	"github.com/your-org/memoryd/internal/retrieve"
	"github.com/your-org/memoryd/internal/store"
)

type QueryHandler struct {
	store    *store.Store
	gateway  *reasoner.Gateway
	mat      *materialize.Materializer
	snapshot config.SnapshotConfig
	log      *slog.Logger
	aliases  config.RetrieveConfig
}

func NewQueryHandler(st *store.Store, gw *reasoner.Gateway, mat *materialize.Materializer, snap config.SnapshotConfig, log *slog.Logger) *QueryHandler {
	return &QueryHandler{store: st, gateway: gw, mat: mat, snapshot: snap, log: log}
}

// WithAliases attaches the Phase I alias vocabulary the Ask endpoint's
// question parser matches against.
func (h *QueryHandler) WithAliases(a config.RetrieveConfig) *QueryHandler {
	h.aliases = a
	return h
}

// ListEvents returns persisted appearances filtered by optional
// from/to/person query parameters, capped server-side at 50 rows.
func (h *QueryHandler) ListEvents(c *gin.Context) {
	filter := store.RetrieveFilter{Limit: 50}

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}
	if v := c.Query("person"); v != "" {
		filter.PersonName = &v
	}

	rows, err := h.store.RetrieveAppearances(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}

// DailySummary returns the stored narrative for a YYYY-MM-DD date path
// parameter, never calling the LLM — summaries are produced out of band by
// the summarize-day/summarize-all CLI commands.
func (h *QueryHandler) DailySummary(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	summary, err := h.store.GetDailySummary(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary for that date"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask parses a free-text question, retrieves grounding evidence, and
// synthesizes an answer via the LLM gateway.
func (h *QueryHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aliases := retrieve.AliasMaps{
		PersonAliases: h.aliases.PersonAliases,
		ActionAliases: h.aliases.ActionAliases,
		SummaryCues:   h.aliases.SummaryCues,
	}
	parsed := retrieve.Parse(req.Question, aliases, time.Now())

	evidence, err := retrieve.FetchEvidence(c.Request.Context(), h.store, parsed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	answer, err := retrieve.Synthesize(c.Request.Context(), h.gateway, req.Question, evidence)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	imageURLs := retrieve.MaterializeSnapshots(c.Request.Context(), h.mat, h.snapshot.Dir, h.snapshot.URLBase, evidence, h.log)

	c.JSON(http.StatusOK, gin.H{
		"answer":         answer,
		"evidence_count": len(evidence),
		"has_images":     len(imageURLs) > 0,
		"image_urls":     imageURLs,
	})
}
