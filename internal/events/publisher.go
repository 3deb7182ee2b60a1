package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"binarybets/internal/services"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           5 * time.Second,
	}
}

// MarketSettled is published once per settled market
type MarketSettled struct {
	MarketID      uint      `json:"market_id"`
	Question      string    `json:"question"`
	WinningOption string    `json:"winning_option"`
	ResolvedBy    string    `json:"resolved_by"`
	ResolvedAt    time.Time `json:"resolved_at"`
	WinnersCount  int       `json:"winners_count"`
	LosersCount   int       `json:"losers_count"`
	TotalPayout   string    `json:"total_payout"`
}

// BetResult is published once per settled bet, keyed by user
type BetResult struct {
	BetID    uint   `json:"bet_id"`
	UserID   uint   `json:"user_id"`
	MarketID uint   `json:"market_id"`
	Status   string `json:"status"`
	Stake    string `json:"stake"`
	Payout   string `json:"payout"`
}

// SettlementPublisher forwards committed settlements to Kafka
type SettlementPublisher struct {
	markets MessageWriter
	bets    MessageWriter
}

func NewSettlementPublisher(markets, bets MessageWriter) *SettlementPublisher {
	return &SettlementPublisher{markets: markets, bets: bets}
}

func (p *SettlementPublisher) Name() string { return "kafka" }

func (p *SettlementPublisher) AfterSettlement(ctx context.Context, result services.SettlementResult) error {
	s := result.Summary
	payload, err := json.Marshal(MarketSettled{
		MarketID:      s.MarketID,
		Question:      result.Market.Question,
		WinningOption: s.WinningOption,
		ResolvedBy:    result.ResolvedBy,
		ResolvedAt:    result.ResolvedAt,
		WinnersCount:  s.WinnersCount,
		LosersCount:   s.LosersCount,
		TotalPayout:   s.TotalPayout.StringFixed(2),
	})
	if err != nil {
		return fmt.Errorf("marshal market settled: %w", err)
	}
	marketKey := []byte(strconv.FormatUint(uint64(s.MarketID), 10))
	if err := p.markets.WriteMessages(ctx, kafka.Message{Key: marketKey, Value: payload, Time: result.ResolvedAt}); err != nil {
		return fmt.Errorf("publish market settled: %w", err)
	}

	if p.bets == nil || len(result.Bets) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(result.Bets))
	for _, b := range result.Bets {
		value, err := json.Marshal(BetResult{
			BetID:    b.BetID,
			UserID:   b.UserID,
			MarketID: s.MarketID,
			Status:   string(b.Status),
			Stake:    b.Stake.StringFixed(2),
			Payout:   b.Payout.StringFixed(2),
		})
		if err != nil {
			return fmt.Errorf("marshal bet result: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(b.UserID), 10)),
			Value: value,
			Time:  result.ResolvedAt,
		})
	}
	if err := p.bets.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish bet results: %w", err)
	}
	return nil
}

// Close flushes and closes both writers
func (p *SettlementPublisher) Close() error {
	var first error
	for _, w := range []MessageWriter{p.markets, p.bets} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
