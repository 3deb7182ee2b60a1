package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"binarybets/internal/evidence"
	"binarybets/internal/jobs"
	"binarybets/internal/models"
	"binarybets/internal/repository"
	"binarybets/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultLogLimit = 50

// Gatherer is the evidence lookup used by the admin evidence endpoint
type Gatherer interface {
	Gather(ctx context.Context, market *models.Market) *evidence.Evidence
}

// ResolutionHandler serves the admin resolution endpoints
type ResolutionHandler struct {
	repo       *repository.Repository
	settlement *services.SettlementService
	evidence   Gatherer
	resolvers  map[jobs.Policy]*jobs.MarketResolver
}

func NewResolutionHandler(
	repo *repository.Repository,
	settlement *services.SettlementService,
	gatherer Gatherer,
	resolvers ...*jobs.MarketResolver,
) *ResolutionHandler {
	h := &ResolutionHandler{
		repo:       repo,
		settlement: settlement,
		evidence:   gatherer,
		resolvers:  make(map[jobs.Policy]*jobs.MarketResolver),
	}
	for _, r := range resolvers {
		h.resolvers[r.Policy()] = r
	}
	return h
}

// ResolveMarket settles a market with the winner chosen by an admin
func (h *ResolutionHandler) ResolveMarket(c *gin.Context) {
	marketID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Winner string `json:"winner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.settlement.ResolveMarket(c.Request.Context(), marketID, req.Winner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"marketId":      summary.MarketID,
		"winningOption": summary.WinningOption,
		"winnersCount":  summary.WinnersCount,
		"losersCount":   summary.LosersCount,
		"totalPayout":   summary.TotalPayout.StringFixed(2),
	})
}

// GetResolverLogs returns the audit trail of a market
func (h *ResolutionHandler) GetResolverLogs(c *gin.Context) {
	marketID, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit <= 0 || limit > 500 {
		limit = defaultLogLimit
	}

	logs, err := h.repo.GetResolverLogs(c.Request.Context(), marketID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch resolver logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"count":   len(logs),
	})
}

// GetEvidence gathers advisory evidence for a market
func (h *ResolutionHandler) GetEvidence(c *gin.Context) {
	marketID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if h.evidence == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Evidence sources not configured"})
		return
	}

	market, err := h.repo.GetMarketByID(c.Request.Context(), marketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch market"})
		return
	}

	ev := h.evidence.Gather(c.Request.Context(), market)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ev,
		"summary": ev.Summary(),
	})
}

// RunResolver triggers one resolver pass synchronously
func (h *ResolutionHandler) RunResolver(c *gin.Context) {
	policy := jobs.Policy(c.DefaultQuery("policy", string(jobs.PolicyContinuous)))
	r, ok := h.resolvers[policy]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown or disabled resolver policy"})
		return
	}

	summary, err := r.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Resolver run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}
