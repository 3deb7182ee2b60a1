package evidence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"binarybets/internal/httpx"
	"binarybets/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient() *httpx.Client {
	return httpx.New(httpx.Options{RatePerSec: 1000, Burst: 10, MaxRetries: -1})
}

func TestKeywords(t *testing.T) {
	got := Keywords("Will Brazil win the 2026 World Cup final before July?", 5)
	assert.Equal(t, []string{"brazil", "2026", "world", "final", "july"}, got)
	assert.Empty(t, Keywords("Will it be?", 5))
}

func TestNewsSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "news-key", r.Header.Get("X-Api-Key"))
		assert.Contains(t, r.URL.Query().Get("q"), "lisbon")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"totalResults": 12,
			"articles": [
				{"source": {"name": "Reuters"}, "title": "Storm hits Lisbon", "description": "Heavy rain", "url": "https://example.com/a", "publishedAt": "2026-02-01T10:00:00Z"}
			]
		}`))
	}))
	defer srv.Close()

	src := NewNewsSource(srv.URL+"/v2/", "news-key", testClient())
	market := &models.Market{Question: "Will Lisbon record rain on Friday?"}
	require.True(t, src.Applies(market))

	sec, err := src.Fetch(context.Background(), market)
	require.NoError(t, err)
	assert.Equal(t, 12, sec.Total)
	require.Len(t, sec.Items, 1)
	assert.Equal(t, "Storm hits Lisbon", sec.Items[0].Title)
	assert.Equal(t, "Reuters Heavy rain", sec.Items[0].Detail)

	assert.False(t, NewNewsSource(srv.URL, "", testClient()).Applies(market))
}

func TestNewsSource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := NewNewsSource(srv.URL, "k", testClient()).Fetch(context.Background(),
		&models.Market{Question: "Will Lisbon flood?"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestEarthquakeSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "geojson", r.URL.Query().Get("format"))
		assert.Equal(t, "4.5", r.URL.Query().Get("minmagnitude"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"metadata": map[string]int{"count": 1},
			"features": []map[string]any{
				{"properties": map[string]any{"mag": 6.2, "place": "10 km S of Tokyo", "time": int64(1767225600000), "url": "https://usgs/x"}},
			},
		})
	}))
	defer srv.Close()

	src := NewEarthquakeSource(srv.URL, testClient())
	assert.True(t, src.Applies(&models.Market{Question: "Will a magnitude 6 earthquake hit Japan?"}))
	assert.True(t, src.Applies(&models.Market{Question: "x", Category: "Science"}))
	assert.False(t, src.Applies(&models.Market{Question: "Will Brazil win?", Category: "sports"}))

	sec, err := src.Fetch(context.Background(), &models.Market{Question: "quake?"})
	require.NoError(t, err)
	require.Len(t, sec.Items, 1)
	assert.Equal(t, "M6.2 10 km S of Tokyo", sec.Items[0].Title)
	assert.Equal(t, time.UnixMilli(1767225600000).UTC(), sec.Items[0].PublishedAt)
}

func TestPolymarketSource_MatchesComparableMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"1","question":"Will Brazil win the World Cup?","slug":"brazil-wc","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.21\",\"0.79\"]"},
			{"id":"2","question":"Will Bitcoin hit 200k?","slug":"btc","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.1\",\"0.9\"]"}
		]`))
	}))
	defer srv.Close()

	sec, err := NewPolymarketSource(srv.URL, testClient()).Fetch(context.Background(),
		&models.Market{Question: "Will Brazil win the 2026 World Cup?"})
	require.NoError(t, err)
	require.Len(t, sec.Items, 1)
	assert.Equal(t, "Will Brazil win the World Cup?", sec.Items[0].Title)
	assert.Equal(t, "Yes 21%, No 79%", sec.Items[0].Detail)
}

type failingSource struct{}

func (failingSource) Name() string                 { return "broken" }
func (failingSource) Applies(*models.Market) bool { return true }
func (failingSource) Fetch(context.Context, *models.Market) (*Section, error) {
	return nil, assert.AnError
}

type staticSource struct{ section Section }

func (s staticSource) Name() string                 { return s.section.Source }
func (s staticSource) Applies(*models.Market) bool { return true }
func (s staticSource) Fetch(context.Context, *models.Market) (*Section, error) {
	sec := s.section
	return &sec, nil
}

func TestService_GatherToleratesFailures(t *testing.T) {
	svc := NewService(zap.NewNop(),
		failingSource{},
		staticSource{Section{Source: "news", Total: 2, Items: []Item{
			{Title: "Final ends 2-1", Detail: "Reuters", PublishedAt: time.Date(2026, 7, 19, 0, 0, 0, 0, time.UTC)},
			{Title: "Fans celebrate"},
		}}},
	)

	ev := svc.Gather(context.Background(), &models.Market{ID: 4, Question: "Who wins?"})
	assert.Equal(t, uint(4), ev.MarketID)
	require.Len(t, ev.Sections, 1)
	assert.Contains(t, ev.Errors, "broken")

	assert.Equal(t, "[news] 2 result(s)\n- 2026-07-19 Final ends 2-1: Reuters\n- Fans celebrate\n", ev.Summary())
}

func TestSummary_Empty(t *testing.T) {
	var ev *Evidence
	assert.Empty(t, ev.Summary())
	assert.Empty(t, (&Evidence{Sections: []Section{{Source: "news"}}}).Summary())
}
