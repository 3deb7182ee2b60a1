package services

import (
	"context"
	"errors"
	"fmt"

	"binarybets/internal/models"
	"binarybets/internal/repository"

	"gorm.io/gorm"
)

const recentTransactions = 20

// Profile is a user's account state together with their latest ledger entries
type Profile struct {
	User         *models.User          `json:"user"`
	Transactions []*models.Transaction `json:"recent_transactions"`
}

// UserService handles user-related business logic
type UserService struct {
	repo *repository.Repository
}

// NewUserService creates a new UserService
func NewUserService(repo *repository.Repository) *UserService {
	return &UserService{repo: repo}
}

// GetProfile returns the user's balance, winnings and recent ledger entries
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	txs, err := s.repo.GetUserTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txs) > recentTransactions {
		txs = txs[:recentTransactions]
	}

	return &Profile{User: user, Transactions: txs}, nil
}
