// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"binarybets/internal/database"
	"binarybets/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with every table migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given balance
func CreateUser(t *testing.T, db *gorm.DB, username string, balance string) *models.User {
	t.Helper()
	u := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		Balance:       decimal.RequireFromString(balance),
		TotalWinnings: decimal.Zero,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateBinaryMarket inserts an open Yes/No market
func CreateBinaryMarket(t *testing.T, db *gorm.DB, question string, yesOdds, noOdds string) *models.Market {
	t.Helper()
	m := &models.Market{
		Question:            question,
		MarketType:          models.MarketTypeBinary,
		YesOdds:             decimal.RequireFromString(yesOdds),
		NoOdds:              decimal.RequireFromString(noOdds),
		Deadline:            time.Now().UTC().Add(24 * time.Hour),
		AIResolutionEnabled: true,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

// CreateMultiMarket inserts an open multi-choice market; odds pair up with labels
func CreateMultiMarket(t *testing.T, db *gorm.DB, question string, labels []string, odds []string) *models.Market {
	t.Helper()
	m := &models.Market{
		Question:            question,
		MarketType:          models.MarketTypeMultiple,
		YesOdds:             decimal.NewFromInt(1),
		NoOdds:              decimal.NewFromInt(1),
		Deadline:            time.Now().UTC().Add(24 * time.Hour),
		AIResolutionEnabled: true,
	}
	for i, label := range labels {
		m.Options = append(m.Options, models.MarketOption{
			Label:        label,
			Odds:         decimal.RequireFromString(odds[i]),
			DisplayOrder: i,
		})
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

// Reload fetches a fresh copy of a row by primary key
func Reload[T any](t *testing.T, db *gorm.DB, id uint) *T {
	t.Helper()
	var out T
	if err := db.First(&out, id).Error; err != nil {
		t.Fatalf("reload %T %d: %v", out, id, err)
	}
	return &out
}
