// Package evidence gathers advisory context about a market from external feeds.
// Nothing here decides an outcome.
package evidence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"binarybets/internal/models"

	"go.uber.org/zap"
)

// Item is one piece of evidence, rendered as a single prompt line
type Item struct {
	Title       string    `json:"title"`
	Detail      string    `json:"detail,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"`
}

// Section is the output of one source
type Section struct {
	Source string `json:"source"`
	Total  int    `json:"total"`
	Items  []Item `json:"items"`
}

// Evidence combines every source that applied to a market
type Evidence struct {
	MarketID  uint              `json:"market_id"`
	Sections  []Section         `json:"sections"`
	Errors    map[string]string `json:"errors,omitempty"`
	Collected time.Time         `json:"collected_at"`
}

// Source is one external feed
type Source interface {
	Name() string
	Applies(market *models.Market) bool
	Fetch(ctx context.Context, market *models.Market) (*Section, error)
}

// Service fans a market out to every applicable source
type Service struct {
	sources []Source
	log     *zap.Logger
}

func NewService(log *zap.Logger, sources ...Source) *Service {
	return &Service{sources: sources, log: log.Named("evidence")}
}

// Gather queries each applicable source in turn. A failing source is recorded
// in Evidence.Errors and the rest still run.
func (s *Service) Gather(ctx context.Context, market *models.Market) *Evidence {
	ev := &Evidence{MarketID: market.ID, Collected: time.Now().UTC()}
	for _, src := range s.sources {
		if !src.Applies(market) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		section, err := src.Fetch(ctx, market)
		if err != nil {
			if ev.Errors == nil {
				ev.Errors = make(map[string]string)
			}
			ev.Errors[src.Name()] = err.Error()
			s.log.Warn("evidence source failed",
				zap.String("source", src.Name()),
				zap.Uint("market_id", market.ID),
				zap.Error(err))
			continue
		}
		if section != nil {
			ev.Sections = append(ev.Sections, *section)
		}
	}
	return ev
}

// Summary renders the evidence as a prompt block. Empty when nothing was found.
func (e *Evidence) Summary() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	for _, sec := range e.Sections {
		if len(sec.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[%s] %d result(s)\n", sec.Source, sec.Total)
		for _, it := range sec.Items {
			b.WriteString("- ")
			if !it.PublishedAt.IsZero() {
				b.WriteString(it.PublishedAt.UTC().Format("2006-01-02") + " ")
			}
			b.WriteString(it.Title)
			if it.Detail != "" {
				b.WriteString(": " + it.Detail)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

var stopwords = map[string]bool{
	"will": true, "what": true, "when": true, "which": true, "who": true, "with": true,
	"than": true, "that": true, "this": true, "have": true, "been": true, "before": true,
	"after": true, "from": true, "into": true, "more": true, "less": true, "does": true,
	"there": true, "their": true, "over": true, "under": true, "least": true, "most": true,
	"during": true, "between": true, "about": true, "next": true, "year": true,
}

// Keywords picks the distinctive words of a question for search queries
func Keywords(question string, max int) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	seen := make(map[string]bool)
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < 4 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == max {
			break
		}
	}
	return out
}
