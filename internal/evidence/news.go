package evidence

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"binarybets/internal/httpx"
	"binarybets/internal/models"
)

const newsPageSize = 5

// NewsSource searches a NewsAPI-compatible /everything endpoint
type NewsSource struct {
	baseURL string
	apiKey  string
	client  *httpx.Client
}

func NewNewsSource(baseURL, apiKey string, client *httpx.Client) *NewsSource {
	return &NewsSource{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (s *NewsSource) Name() string { return "news" }

func (s *NewsSource) Applies(*models.Market) bool { return s.apiKey != "" }

type newsResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (s *NewsSource) Fetch(ctx context.Context, market *models.Market) (*Section, error) {
	words := Keywords(market.Question, 6)
	if len(words) == 0 {
		return nil, errors.New("no searchable keywords")
	}

	q := url.Values{}
	q.Set("q", strings.Join(words, " OR "))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("pageSize", fmt.Sprint(newsPageSize))

	var resp newsResponse
	err := s.client.GetJSON(ctx, s.baseURL+"/everything?"+q.Encode(),
		map[string]string{"X-Api-Key": s.apiKey}, &resp)
	if err != nil {
		return nil, fmt.Errorf("news search: %w", err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("news search: %s", resp.Message)
	}

	sec := &Section{Source: s.Name(), Total: resp.TotalResults}
	for _, a := range resp.Articles {
		detail := a.Source.Name
		if a.Description != "" {
			detail = strings.TrimSpace(a.Source.Name + " " + a.Description)
		}
		sec.Items = append(sec.Items, Item{
			Title:       a.Title,
			Detail:      detail,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return sec, nil
}
