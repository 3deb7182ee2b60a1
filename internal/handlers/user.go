package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"binarybets/internal/auth"
	"binarybets/internal/services"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the current user's balance and latest ledger entries
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	userResponse := gin.H{
		"id":             profile.User.ID,
		"username":       profile.User.Username,
		"balance":        profile.User.Balance.StringFixed(2),
		"total_winnings": profile.User.TotalWinnings.StringFixed(2),
		"bets_won":       profile.User.BetsWon,
		"created_at":     profile.User.CreatedAt,
	}
	if profile.User.IsAdmin {
		userResponse["role"] = "admin"
	}

	c.JSON(http.StatusOK, gin.H{
		"user":                userResponse,
		"recent_transactions": profile.Transactions,
	})
}
