package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"binarybets/internal/auth"
	"binarybets/internal/services"
)

// MarketHandler serves the admin market management endpoints
type MarketHandler struct {
	markets *services.MarketService
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(markets *services.MarketService) *MarketHandler {
	return &MarketHandler{markets: markets}
}

// CreateMarket opens a new binary or multi-choice market
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var req struct {
		Question            string                 `json:"question" binding:"required"`
		Description         string                 `json:"description"`
		Category            string                 `json:"category"`
		Deadline            time.Time              `json:"deadline" binding:"required"`
		YesOdds             decimal.Decimal        `json:"yes_odds"`
		NoOdds              decimal.Decimal        `json:"no_odds"`
		Options             []services.OptionInput `json:"options"`
		AIResolutionEnabled *bool                  `json:"ai_resolution_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aiEnabled := true
	if req.AIResolutionEnabled != nil {
		aiEnabled = *req.AIResolutionEnabled
	}
	createdBy, _ := auth.GetUserID(c)

	market, err := h.markets.CreateMarket(c.Request.Context(), services.CreateMarketRequest{
		Question:            req.Question,
		Description:         req.Description,
		Category:            req.Category,
		Deadline:            req.Deadline,
		YesOdds:             req.YesOdds,
		NoOdds:              req.NoOdds,
		Options:             req.Options,
		AIResolutionEnabled: aiEnabled,
		CreatedBy:           createdBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    market,
	})
}

// UpdateOdds moves the live odds of an open market
func (h *MarketHandler) UpdateOdds(c *gin.Context) {
	marketID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		YesOdds *decimal.Decimal           `json:"yes_odds"`
		NoOdds  *decimal.Decimal           `json:"no_odds"`
		Options map[string]decimal.Decimal `json:"options"` // option id -> odds
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := services.UpdateOddsRequest{YesOdds: req.YesOdds, NoOdds: req.NoOdds}
	if len(req.Options) > 0 {
		update.Options = make(map[uint]decimal.Decimal, len(req.Options))
		for key, o := range req.Options {
			id, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid option id " + key})
				return
			}
			update.Options[uint(id)] = o
		}
	}

	market, err := h.markets.UpdateOdds(c.Request.Context(), marketID, update)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    market,
	})
}
