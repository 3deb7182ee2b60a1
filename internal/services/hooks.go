package services

import (
	"context"
	"fmt"

	"binarybets/internal/models"
	"binarybets/internal/repository"
)

// SettlementHook runs after a settlement transaction committed. Failures are
// logged by the engine and never reverse the settlement.
type SettlementHook interface {
	Name() string
	AfterSettlement(ctx context.Context, result SettlementResult) error
}

const (
	NotificationBetWon  = "bet_won"
	NotificationBetLost = "bet_lost"
)

// NotificationHook writes an in-app notification for every settled bet
type NotificationHook struct {
	repo *repository.Repository
}

func NewNotificationHook(repo *repository.Repository) *NotificationHook {
	return &NotificationHook{repo: repo}
}

func (h *NotificationHook) Name() string { return "notifications" }

func (h *NotificationHook) AfterSettlement(ctx context.Context, result SettlementResult) error {
	marketID := result.Summary.MarketID
	notifications := make([]models.Notification, 0, len(result.Bets))
	for _, b := range result.Bets {
		n := models.Notification{UserID: b.UserID, MarketID: &marketID}
		if b.Status == models.BetStatusWon {
			n.Type = NotificationBetWon
			n.Message = fmt.Sprintf("You won %s on \"%s\" (%s)",
				b.Payout.StringFixed(2), b.Question, result.Summary.WinningOption)
		} else {
			n.Type = NotificationBetLost
			n.Message = fmt.Sprintf("Your bet of %s on \"%s\" lost. Winning option: %s",
				b.Stake.StringFixed(2), b.Question, result.Summary.WinningOption)
		}
		notifications = append(notifications, n)
	}
	return h.repo.CreateNotifications(ctx, notifications)
}
