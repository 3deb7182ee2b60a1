package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketType distinguishes yes/no markets from multi-choice markets
type MarketType string

const (
	MarketTypeBinary   MarketType = "binary"
	MarketTypeMultiple MarketType = "multiple"
)

// Binary markets use an implicit Yes/No option pair.
const (
	LabelYes = "Yes"
	LabelNo  = "No"

	ChoiceYes = "yes"
	ChoiceNo  = "no"
)

// Market represents a prediction market
type Market struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Question            string          `gorm:"size:500;not null" json:"question"`
	Description         string          `gorm:"type:text" json:"description"`
	Category            string          `gorm:"size:50;index" json:"category,omitempty"`
	MarketType          MarketType      `gorm:"size:20;not null;default:binary" json:"market_type"`
	YesOdds             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:2" json:"yes_odds"`
	NoOdds              decimal.Decimal `gorm:"type:numeric(10,2);not null;default:2" json:"no_odds"`
	Deadline            time.Time       `gorm:"not null;index" json:"deadline"`
	Resolved            bool            `gorm:"not null;default:false;index" json:"resolved"`
	WinningOption       *string         `gorm:"size:255" json:"winning_option,omitempty"`
	WinningOptionID     *uint           `json:"winning_option_id,omitempty"`
	AIResolutionEnabled bool            `gorm:"not null;default:true" json:"ai_resolution_enabled"`
	ResolvedBy          *string         `gorm:"size:50" json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time      `json:"resolved_at,omitempty"`
	CreatedBy           *uint           `gorm:"index" json:"created_by,omitempty"`
	Options             []MarketOption  `gorm:"foreignKey:MarketID" json:"options,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

// IsBinary reports whether the market uses the implicit Yes/No pair
func (m *Market) IsBinary() bool {
	return m.MarketType != MarketTypeMultiple
}

// OptionLabels returns the labels a resolution may name, in display order.
// Options must be preloaded for multi-choice markets.
func (m *Market) OptionLabels() []string {
	if m.IsBinary() {
		return []string{LabelYes, LabelNo}
	}
	labels := make([]string, 0, len(m.Options))
	for _, opt := range m.Options {
		labels = append(labels, opt.Label)
	}
	return labels
}

// BinaryChoice maps a Yes/No label (any case) to the stored bet choice
func BinaryChoice(selection string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(selection)) {
	case ChoiceYes:
		return ChoiceYes, true
	case ChoiceNo:
		return ChoiceNo, true
	}
	return "", false
}

// MarketOption is one outcome of a multi-choice market
type MarketOption struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	MarketID     uint            `gorm:"not null;index" json:"market_id"`
	Label        string          `gorm:"size:255;not null" json:"label"`
	Odds         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"odds"`
	DisplayOrder int             `gorm:"not null;default:0" json:"display_order"`
}

// TableName specifies the table name for MarketOption model
func (MarketOption) TableName() string {
	return "market_options"
}
