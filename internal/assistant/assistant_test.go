package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-assistant/internal/llm"
	"github.com/i474232898/weather-assistant/internal/weather"
	"github.com/i474232898/weather-assistant/internal/weather/providers"
)

var kst = time.FixedZone("KST", 9*60*60)

// scriptedCompleter answers extraction and composition requests separately.
type scriptedCompleter struct {
	mu       sync.Mutex
	extract  func() (string, error)
	compose  func() (string, error)
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	switch req.System {
	case extractSystemRole:
		if s.extract == nil {
			return "", errors.New("no extraction script")
		}
		return s.extract()
	case composeSystemRole:
		if s.compose == nil {
			return "", errors.New("no composition script")
		}
		return s.compose()
	}
	return "", fmt.Errorf("unexpected system role %q", req.System)
}

func (s *scriptedCompleter) byRole(role string) []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []llm.Request
	for _, r := range s.requests {
		if r.System == role {
			out = append(out, r)
		}
	}
	return out
}

func reply(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

func fail() (string, error) { return "", errors.New("llm unavailable") }

func TestExtractionPrompt(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)
	p := ExtractionPrompt("내일 뉴욕 날씨 어때?", now)
	assert.Contains(t, p, `질의: "내일 뉴욕 날씨 어때?"`)
	assert.Contains(t, p, "현재 시간은 20231024120000입니다.")
}

func TestInterpreterParse(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)
	tomorrowNoon := time.Date(2023, 10, 25, 12, 0, 0, 0, kst)
	in := NewInterpreter(&scriptedCompleter{}, "seoul", nil)

	cases := []struct {
		name   string
		reply  string
		city   string
		target time.Time
	}{
		{"plain json", `{"city":"New York","date":"20231025120000"}`, "New York", tomorrowNoon},
		{"prose around json", "결과입니다:\n'''{\n  \"city\": \"Busan\",\n  \"date\": \"20231025120000\"\n}'''\n감사합니다.", "Busan", tomorrowNoon},
		{"lower-case city", `{"city":"san francisco","date":"20231025120000"}`, "San Francisco", tomorrowNoon},
		{"numeric date", `{"city":"Tokyo","date":20231025120000}`, "Tokyo", tomorrowNoon},
		{"missing city", `{"date":"20231025120000"}`, "Seoul", tomorrowNoon},
		{"blank city", `{"city":"  ","date":"20231025120000"}`, "Seoul", tomorrowNoon},
		{"non-string city", `{"city":42,"date":"20231025120000"}`, "Seoul", tomorrowNoon},
		{"missing date", `{"city":"Paris"}`, "Paris", now},
		{"malformed date", `{"city":"Paris","date":"tomorrow noon"}`, "Paris", now},
		{"no braces", `I could not find a city.`, "Seoul", now},
		{"broken json", `{"city": "Paris", "date": }`, "Seoul", now},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := in.Parse(tc.reply, now)
			assert.Equal(t, tc.city, got.City)
			assert.True(t, got.Target.Equal(tc.target), "target %s", got.Target)
		})
	}
}

func TestInterpreterExtract(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)

	c := &scriptedCompleter{extract: reply(`{"city":"New York","date":"20231025120000"}`)}
	got := NewInterpreter(c, "Seoul", nil).Extract(context.Background(), "내일 뉴욕 날씨 어때?", now)
	assert.Equal(t, "New York", got.City)
	assert.True(t, got.Target.Equal(time.Date(2023, 10, 25, 12, 0, 0, 0, kst)))

	reqs := c.byRole(extractSystemRole)
	require.Len(t, reqs, 1)
	assert.Equal(t, 150, reqs[0].MaxTokens)
	assert.InDelta(t, 0.7, reqs[0].Temperature, 1e-6)

	c = &scriptedCompleter{extract: fail}
	got = NewInterpreter(c, "Seoul", nil).Extract(context.Background(), "날씨", now)
	assert.Equal(t, Intent{City: "Seoul", Target: now}, got)
}

func TestComposer(t *testing.T) {
	obs := &weather.Observation{
		City:          "New York",
		Temperature:   20,
		Condition:     "맑음",
		EffectiveTime: time.Date(2023, 10, 25, 12, 0, 0, 0, kst),
	}

	c := &scriptedCompleter{compose: reply("뉴욕의 10월 25일 날씨는 맑음이며, 기온은 20도입니다.")}
	got := NewComposer(c, nil).Compose(context.Background(), obs)
	assert.Equal(t, "뉴욕의 10월 25일 날씨는 맑음이며, 기온은 20도입니다.", got)

	reqs := c.byRole(composeSystemRole)
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "New York의 2023-10-25 12:00:00 날씨는 맑음이며, 기온은 20.0도입니다.")
	assert.Equal(t, 200, reqs[0].MaxTokens)

	c = &scriptedCompleter{compose: fail}
	assert.Equal(t, ComposeFallback, NewComposer(c, nil).Compose(context.Background(), obs))
	assert.Equal(t, ComposeFallback, NewComposer(c, nil).Compose(context.Background(), nil))
}

// owmStub serves the two OpenWeatherMap endpoints and records what was asked.
type owmStub struct {
	mu       sync.Mutex
	paths    []string
	cities   []string
	handler  func(w http.ResponseWriter, r *http.Request)
	provider *providers.OpenWeatherProvider
}

func newOWMStub(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *owmStub {
	t.Helper()
	s := &owmStub{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.cities = append(s.cities, r.URL.Query().Get("q"))
		s.mu.Unlock()
		s.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	s.provider = providers.NewOpenWeatherProvider(srv.Client(), providers.OpenWeatherConfig{BaseURL: srv.URL})
	return s
}

func newTestAssistant(c llm.Completer, p weather.Provider, now time.Time, key string) *Assistant {
	return New(Deps{
		Interpreter: NewInterpreter(c, "Seoul", nil),
		Resolver:    weather.NewSelector(p),
		Composer:    NewComposer(c, nil),
		Credentials: weather.Credentials{WeatherAPIKey: key},
		Clock:       func() time.Time { return now },
	})
}

func TestConversationForecastScenario(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)
	slot := time.Date(2023, 10, 25, 12, 0, 0, 0, kst)

	stub := newOWMStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"list":[
			{"dt":%d,"main":{"temp":15.5},"weather":[{"description":"흐림"}]},
			{"dt":%d,"main":{"temp":20.0},"weather":[{"description":"맑음"}]}
		]}`, slot.Add(-3*time.Hour).Unix(), slot.Unix())
	})
	c := &scriptedCompleter{
		extract: reply(`{"city":"New York","date":"20231025120000"}`),
		compose: reply("내일 뉴욕은 맑고 20도예요."),
	}

	conv := newTestAssistant(c, stub.provider, now, "k").NewConversation()
	turn := conv.Ask(context.Background(), "내일 뉴욕 날씨 어때?")

	assert.Equal(t, "내일 뉴욕은 맑고 20도예요.", turn.Reply)
	assert.Equal(t, "ok", turn.Outcome)
	require.NotNil(t, turn.Observation)
	assert.Equal(t, "2023-10-25 12:00:00", turn.Observation.EffectiveTime.Format(weather.DisplayLayout))
	assert.Equal(t, 20.0, turn.Observation.Temperature)
	assert.Equal(t, "맑음", turn.Observation.Condition)

	assert.Equal(t, []string{"/forecast"}, stub.paths)
	assert.Equal(t, []string{"New York"}, stub.cities)

	compose := c.byRole(composeSystemRole)
	require.Len(t, compose, 1)
	assert.Contains(t, compose[0].Prompt, "New York의 2023-10-25 12:00:00 날씨는 맑음이며, 기온은 20.0도입니다.")

	require.Len(t, conv.Transcript(), 1)
}

func TestConversationDefaultsOnMalformedExtraction(t *testing.T) {
	now := time.Date(2023, 10, 24, 15, 20, 0, 0, kst)

	stub := newOWMStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main":{"temp":12.3},"weather":[{"description":"구름 조금"}]}`))
	})
	c := &scriptedCompleter{
		extract: reply("죄송하지만 도시를 찾지 못했습니다."),
		compose: reply("서울은 지금 구름이 조금 있어요."),
	}

	turn := newTestAssistant(c, stub.provider, now, "k").NewConversation().Ask(context.Background(), "날씨 알려줘")

	assert.Equal(t, "Seoul", turn.Intent.City)
	assert.True(t, turn.Intent.Target.Equal(now))
	assert.Equal(t, []string{"/weather"}, stub.paths)
	assert.Equal(t, []string{"Seoul"}, stub.cities)
	require.NotNil(t, turn.Observation)
	assert.True(t, turn.Observation.EffectiveTime.Equal(now))
	assert.Equal(t, "서울은 지금 구름이 조금 있어요.", turn.Reply)
}

func TestConversationCityNotFound(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)

	stub := newOWMStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})
	c := &scriptedCompleter{
		extract: reply(`{"city":"Atlantis","date":"20231024120000"}`),
		compose: reply("should not be used"),
	}

	conv := newTestAssistant(c, stub.provider, now, "k").NewConversation()
	turn := conv.Ask(context.Background(), "아틀란티스 날씨")

	assert.Equal(t, Apology, turn.Reply)
	assert.Equal(t, "city_not_found", turn.Outcome)
	assert.Nil(t, turn.Observation)
	assert.Empty(t, c.byRole(composeSystemRole))
}

func TestConversationMissingCredentialsSkipsFetch(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)
	stub := newOWMStub(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call to %s", r.URL.Path)
	})
	c := &scriptedCompleter{extract: reply(`{"city":"Seoul","date":"20231024120000"}`)}

	turn := newTestAssistant(c, stub.provider, now, "").NewConversation().Ask(context.Background(), "서울 날씨")
	assert.Equal(t, Apology, turn.Reply)
	assert.Equal(t, "missing_credentials", turn.Outcome)
	assert.Empty(t, stub.paths)
}

func TestTranscriptIsAppendOnlyCopy(t *testing.T) {
	now := time.Date(2023, 10, 24, 12, 0, 0, 0, kst)
	stub := newOWMStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main":{"temp":1},"weather":[{"description":"눈"}]}`))
	})
	c := &scriptedCompleter{extract: reply(`{"city":"Seoul"}`), compose: fail}

	conv := newTestAssistant(c, stub.provider, now, "k").NewConversation()
	first := conv.Ask(context.Background(), "첫 번째")
	assert.Equal(t, ComposeFallback, first.Reply)
	conv.Ask(context.Background(), "두 번째")

	transcript := conv.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "첫 번째", transcript[0].Query)
	assert.Equal(t, "두 번째", transcript[1].Query)

	transcript[0].Query = "changed"
	assert.Equal(t, "첫 번째", conv.Transcript()[0].Query)
}
