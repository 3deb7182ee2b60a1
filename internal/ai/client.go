package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"binarybets/internal/metrics"

	"go.uber.org/zap"
)

const weatherCategory = "weather"

// Attempt records one provider call made during an evaluation
type Attempt struct {
	Provider string
	Err      error
}

// Result is the outcome of an evaluation. A nil Verdict means every provider
// failed; callers keep the market open and flag the error.
type Result struct {
	Verdict  *Verdict
	Provider string
	Raw      string
	Attempts []Attempt
	Err      error
}

// Client tries providers in order until one returns a parseable verdict
type Client struct {
	weather Provider
	general []Provider
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewClient builds a client. weather may be nil; it is only consulted for
// weather markets. Nil general providers are skipped.
func NewClient(log *zap.Logger, m *metrics.Metrics, weather Provider, general ...Provider) *Client {
	c := &Client{
		weather: weather,
		metrics: m,
		log:     log.Named("ai"),
		now:     time.Now,
	}
	for _, p := range general {
		if p != nil {
			c.general = append(c.general, p)
		}
	}
	return c
}

// Providers returns the call order for a category
func (c *Client) Providers(category string) []Provider {
	chain := make([]Provider, 0, len(c.general)+1)
	if c.weather != nil && strings.EqualFold(strings.TrimSpace(category), weatherCategory) {
		chain = append(chain, c.weather)
	}
	return append(chain, c.general...)
}

// Evaluate asks each provider in turn. Provider failures never surface as an
// error; they are collected in Result.Attempts.
func (c *Client) Evaluate(ctx context.Context, req Request) Result {
	prompt := BuildPrompt(req, c.now())

	var res Result
	for _, p := range c.Providers(req.Category) {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}

		raw, err := p.Complete(ctx, prompt)
		if err == nil {
			res.Raw = raw
			var v *Verdict
			v, err = ParseVerdict(raw)
			if err == nil {
				res.Attempts = append(res.Attempts, Attempt{Provider: p.Name()})
				res.Verdict = v
				res.Provider = p.Name()
				res.Err = nil
				c.metrics.ObserveProviderCall(p.Name(), "ok")
				return res
			}
		}

		res.Attempts = append(res.Attempts, Attempt{Provider: p.Name(), Err: err})
		res.Err = err
		c.metrics.ObserveProviderCall(p.Name(), "failed")
		c.log.Warn("provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Uint("market_id", req.MarketID),
			zap.Error(err))
	}
	if res.Err == nil {
		res.Err = fmt.Errorf("%w: no providers configured", ErrProviderUnavailable)
	}
	return res
}
