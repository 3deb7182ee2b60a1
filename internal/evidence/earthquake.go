package evidence

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"binarybets/internal/httpx"
	"binarybets/internal/models"
)

const (
	quakeMinMagnitude = "4.5"
	quakeLimit        = 5
	quakeLookback     = 30 * 24 * time.Hour
)

// EarthquakeSource queries the USGS FDSN event service
type EarthquakeSource struct {
	baseURL string
	client  *httpx.Client
	now     func() time.Time
}

func NewEarthquakeSource(baseURL string, client *httpx.Client) *EarthquakeSource {
	return &EarthquakeSource{baseURL: strings.TrimRight(baseURL, "/"), client: client, now: time.Now}
}

func (s *EarthquakeSource) Name() string { return "usgs" }

// Applies to seismic markets, by category or by wording
func (s *EarthquakeSource) Applies(market *models.Market) bool {
	switch strings.ToLower(market.Category) {
	case "earthquake", "science":
		return true
	}
	q := strings.ToLower(market.Question)
	return strings.Contains(q, "earthquake") || strings.Contains(q, "quake") || strings.Contains(q, "magnitude")
}

type quakeResponse struct {
	Metadata struct {
		Count int `json:"count"`
	} `json:"metadata"`
	Features []struct {
		Properties struct {
			Mag   float64 `json:"mag"`
			Place string  `json:"place"`
			Time  int64   `json:"time"`
			URL   string  `json:"url"`
		} `json:"properties"`
	} `json:"features"`
}

func (s *EarthquakeSource) Fetch(ctx context.Context, market *models.Market) (*Section, error) {
	end := s.now().UTC()
	start := market.CreatedAt.UTC()
	if start.IsZero() || end.Sub(start) > quakeLookback {
		start = end.Add(-quakeLookback)
	}

	q := url.Values{}
	q.Set("format", "geojson")
	q.Set("starttime", start.Format(time.RFC3339))
	q.Set("endtime", end.Format(time.RFC3339))
	q.Set("minmagnitude", quakeMinMagnitude)
	q.Set("orderby", "magnitude")
	q.Set("limit", fmt.Sprint(quakeLimit))

	var resp quakeResponse
	if err := s.client.GetJSON(ctx, s.baseURL+"/query?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("usgs query: %w", err)
	}

	sec := &Section{Source: s.Name(), Total: resp.Metadata.Count}
	for _, f := range resp.Features {
		p := f.Properties
		sec.Items = append(sec.Items, Item{
			Title:       fmt.Sprintf("M%.1f %s", p.Mag, p.Place),
			URL:         p.URL,
			PublishedAt: time.UnixMilli(p.Time).UTC(),
		})
	}
	return sec, nil
}
