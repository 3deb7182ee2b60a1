package handlers

import (
	"net/http"

	"binarybets/internal/auth"
	"binarybets/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BetHandler struct {
	bets *services.BetService
}

func NewBetHandler(bets *services.BetService) *BetHandler {
	return &BetHandler{bets: bets}
}

// PlaceBet places a bet for the authenticated user
func (h *BetHandler) PlaceBet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	marketID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Selection    string           `json:"selection" binding:"required"`
		Amount       decimal.Decimal  `json:"amount"`
		ExpectedOdds *decimal.Decimal `json:"expected_odds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bet, err := h.bets.PlaceBet(c.Request.Context(), services.PlaceBetRequest{
		UserID:       userID,
		MarketID:     marketID,
		Selection:    req.Selection,
		Amount:       req.Amount,
		ExpectedOdds: req.ExpectedOdds,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    bet,
	})
}

// CancelBet cancels a pending bet of the authenticated user
func (h *BetHandler) CancelBet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	betID, ok := parseID(c, "id")
	if !ok {
		return
	}

	bet, err := h.bets.CancelBet(c.Request.Context(), userID, betID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bet,
	})
}
