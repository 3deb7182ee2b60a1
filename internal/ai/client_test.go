package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"binarybets/internal/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fastHTTP = httpx.Options{RatePerSec: 1000, MaxRetries: 2, RetryWait: time.Millisecond}

type fakeProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(context.Context, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func chatServer(t *testing.T, reply string, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Question:")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func anthropicServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "anthropic-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": reply}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleRequest(category string) Request {
	return Request{
		MarketID: 1,
		Question: "Will it rain in Lisbon on Friday?",
		Category: category,
		Options:  []string{"Yes", "No"},
		Deadline: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate_FallsBackToSecondaryProvider(t *testing.T) {
	primarySrv := chatServer(t, "", http.StatusServiceUnavailable, nil)
	secondarySrv := anthropicServer(t, "Answer: {\"decision\":\"RESOLVE\",\"winner\":\"Yes\",\"confidence\":98,\"reasoning\":\"rain recorded\"}")

	primary := NewChatProvider("openai", primarySrv.URL, "test-key", "gpt-test", fastHTTP)
	secondary := NewAnthropicProvider("anthropic", secondarySrv.URL, "anthropic-key", "claude-test", fastHTTP)
	client := NewClient(zap.NewNop(), nil, nil, primary, secondary)

	res := client.Evaluate(context.Background(), sampleRequest(""))
	require.NotNil(t, res.Verdict)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, DecisionResolve, res.Verdict.Decision)
	assert.Equal(t, "Yes", *res.Verdict.Winner)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, "openai", res.Attempts[0].Provider)
	assert.ErrorIs(t, res.Attempts[0].Err, ErrProviderUnavailable)
	assert.NoError(t, res.Attempts[1].Err)
	assert.NoError(t, res.Err)
}

func TestEvaluate_RetriesServerErrors(t *testing.T) {
	var hits int32
	srv := chatServer(t, "", http.StatusBadGateway, &hits)
	primary := NewChatProvider("openai", srv.URL, "test-key", "gpt-test", fastHTTP)
	client := NewClient(zap.NewNop(), nil, nil, primary)

	res := client.Evaluate(context.Background(), sampleRequest(""))
	assert.Nil(t, res.Verdict)
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "initial call plus two retries")
}

func TestEvaluate_ClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := chatServer(t, "", http.StatusUnauthorized, &hits)
	primary := NewChatProvider("openai", srv.URL, "test-key", "gpt-test", fastHTTP)

	_, err := primary.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestEvaluate_UnparseableFallsThrough(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: "I am not sure."}
	secondary := &fakeProvider{name: "anthropic", reply: `{"decision":"KEEP_OPEN","winner":null,"confidence":30,"reasoning":"pending"}`}
	client := NewClient(zap.NewNop(), nil, nil, primary, secondary)

	res := client.Evaluate(context.Background(), sampleRequest(""))
	require.NotNil(t, res.Verdict)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, DecisionKeepOpen, res.Verdict.Decision)
	assert.ErrorIs(t, res.Attempts[0].Err, ErrUnparseableResponse)
}

func TestEvaluate_AllProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("dial tcp: refused")}
	secondary := &fakeProvider{name: "anthropic", reply: "no idea"}
	client := NewClient(zap.NewNop(), nil, nil, primary, secondary)

	res := client.Evaluate(context.Background(), sampleRequest(""))
	assert.Nil(t, res.Verdict)
	assert.Empty(t, res.Provider)
	assert.Len(t, res.Attempts, 2)
	assert.ErrorIs(t, res.Err, ErrUnparseableResponse)
	assert.Equal(t, "no idea", res.Raw)
}

func TestEvaluate_NoProviders(t *testing.T) {
	res := NewClient(zap.NewNop(), nil, nil).Evaluate(context.Background(), sampleRequest(""))
	assert.Nil(t, res.Verdict)
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
}

func TestProviders_WeatherFirstOnlyForWeather(t *testing.T) {
	weather := &fakeProvider{name: "weather", reply: `{"decision":"RESOLVE","winner":"No","confidence":99}`}
	primary := &fakeProvider{name: "openai", reply: `{"decision":"KEEP_OPEN","winner":null,"confidence":50}`}
	client := NewClient(zap.NewNop(), nil, weather, primary)

	names := func(ps []Provider) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name())
		}
		return out
	}
	assert.Equal(t, []string{"weather", "openai"}, names(client.Providers("Weather")))
	assert.Equal(t, []string{"openai"}, names(client.Providers("sports")))

	res := client.Evaluate(context.Background(), sampleRequest("WEATHER"))
	assert.Equal(t, "weather", res.Provider)
	assert.Equal(t, 0, primary.calls)

	res = client.Evaluate(context.Background(), sampleRequest("politics"))
	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, 1, weather.calls)
}

func TestEvaluate_StopsOnCancelledContext(t *testing.T) {
	primary := &fakeProvider{name: "openai", reply: `{"decision":"RESOLVE","winner":"Yes","confidence":99}`}
	client := NewClient(zap.NewNop(), nil, nil, primary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := client.Evaluate(ctx, sampleRequest(""))
	assert.Nil(t, res.Verdict)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, primary.calls)
}

func TestBuildPrompt(t *testing.T) {
	req := sampleRequest("weather")
	req.Options = []string{"Brazil", "France"}
	req.Evidence = "News: 3 articles mention the final"
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	prompt := BuildPrompt(req, now)
	assert.Contains(t, prompt, "Question: Will it rain in Lisbon on Friday?")
	assert.Contains(t, prompt, "- Brazil\n- France\n")
	assert.Contains(t, prompt, "Deadline: 2026-03-01T00:00:00Z")
	assert.Contains(t, prompt, "Current date: 2026-02-01T12:00:00Z")
	assert.Contains(t, prompt, "News: 3 articles mention the final")
	assert.True(t, strings.Contains(prompt, `"decision": "RESOLVE" or "KEEP_OPEN"`))

	bare := BuildPrompt(sampleRequest(""), now)
	assert.NotContains(t, bare, "Evidence gathered")
}
