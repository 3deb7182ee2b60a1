package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"binarybets/internal/odds"
	"binarybets/internal/services"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMarketNotFound),
		errors.Is(err, services.ErrBetNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrDuplicatePendingBet),
		errors.Is(err, services.ErrBetNotPending),
		errors.Is(err, services.ErrOddsChanged),
		errors.Is(err, services.ErrMarketClosed):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidSelection),
		errors.Is(err, services.ErrInvalidMarket),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, odds.ErrInvalidStake),
		errors.Is(err, odds.ErrOddsTooLow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// keep database details out of responses
		msg = "Internal error"
		if errors.Is(err, services.ErrSettlementFailed) {
			msg = services.ErrSettlementFailed.Error()
		}
	}
	c.JSON(status, gin.H{"error": msg})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
