package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"binarybets/internal/httpx"
	"binarybets/internal/models"
)

const (
	polymarketFetchLimit = 100
	polymarketMatches    = 3
)

// PolymarketSource looks for comparable markets on the Polymarket Gamma API and
// reports their implied probabilities
type PolymarketSource struct {
	baseURL string
	client  *httpx.Client
}

func NewPolymarketSource(baseURL string, client *httpx.Client) *PolymarketSource {
	return &PolymarketSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *PolymarketSource) Name() string { return "polymarket" }

func (s *PolymarketSource) Applies(*models.Market) bool { return s.baseURL != "" }

// GammaMarket is the subset of a Gamma market we read
type GammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	Outcomes      string `json:"outcomes"`      // JSON string like "[\"Yes\",\"No\"]"
	OutcomePrices string `json:"outcomePrices"` // JSON string like "[\"0.65\",\"0.35\"]"
	Volume        string `json:"volume"`
	Closed        bool   `json:"closed"`
	EndDate       string `json:"endDate"`
}

// ParseOutcomes parses the outcomes JSON string into a slice
func (m *GammaMarket) ParseOutcomes() []string {
	var outcomes []string
	if m.Outcomes != "" {
		_ = json.Unmarshal([]byte(m.Outcomes), &outcomes)
	}
	return outcomes
}

// ParsePrices parses the outcome prices JSON string
func (m *GammaMarket) ParsePrices() []float64 {
	var raw []string
	if m.OutcomePrices == "" || json.Unmarshal([]byte(m.OutcomePrices), &raw) != nil {
		return nil
	}
	prices := make([]float64, 0, len(raw))
	for _, r := range raw {
		p, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return nil
		}
		prices = append(prices, p)
	}
	return prices
}

func (s *PolymarketSource) Fetch(ctx context.Context, market *models.Market) (*Section, error) {
	words := Keywords(market.Question, 8)
	if len(words) == 0 {
		return &Section{Source: s.Name()}, nil
	}

	var markets []GammaMarket
	url := fmt.Sprintf("%s/markets?limit=%d&closed=false&active=true", s.baseURL, polymarketFetchLimit)
	if err := s.client.GetJSON(ctx, url, nil, &markets); err != nil {
		return nil, fmt.Errorf("gamma markets: %w", err)
	}

	type scored struct {
		m     GammaMarket
		score int
	}
	var hits []scored
	for _, m := range markets {
		q := strings.ToLower(m.Question)
		score := 0
		for _, w := range words {
			if strings.Contains(q, w) {
				score++
			}
		}
		// one shared word is usually noise
		if score >= 2 {
			hits = append(hits, scored{m, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	sec := &Section{Source: s.Name(), Total: len(hits)}
	for i, h := range hits {
		if i == polymarketMatches {
			break
		}
		sec.Items = append(sec.Items, Item{
			Title:  h.m.Question,
			Detail: formatPrices(h.m.ParseOutcomes(), h.m.ParsePrices()),
			URL:    "https://polymarket.com/event/" + h.m.Slug,
		})
	}
	return sec, nil
}

func formatPrices(outcomes []string, prices []float64) string {
	if len(outcomes) == 0 || len(outcomes) != len(prices) {
		return ""
	}
	parts := make([]string, len(outcomes))
	for i := range outcomes {
		parts[i] = fmt.Sprintf("%s %.0f%%", outcomes[i], prices[i]*100)
	}
	return strings.Join(parts, ", ")
}
