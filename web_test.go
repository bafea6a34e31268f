package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/weathrguessr/cities"
	"github.com/Seednode/weathrguessr/forecast"
	"github.com/Seednode/weathrguessr/game"
	"github.com/Seednode/weathrguessr/imagery"
	"github.com/Seednode/weathrguessr/prefs"
)

func testConfig() *Config {
	return &Config{
		bind:           "127.0.0.1",
		commonsURL:     imagery.DefaultCommonsURL,
		fetchAttempts:  1,
		fetchTimeout:   2 * time.Second,
		placeholderURL: imagery.DefaultPlaceholderURL,
		port:           8080,
		prefsRetention: time.Hour,
		pruneSchedule:  "@daily",
		publicURL:      "https://weathrguessr.example",
		weatherURL:     forecast.DefaultURL,
		wikipediaURL:   imagery.DefaultWikipediaURL,
	}
}

type fakeWeather struct {
	high, low int
	err       error
}

func (f *fakeWeather) HighLow(_ context.Context, _, _ float64) (int, int, error) {
	return f.high, f.low, f.err
}

func (f *fakeWeather) Ping(context.Context) error { return f.err }

type fakeImages struct {
	err error
}

func (f *fakeImages) CityImage(_ context.Context, name string) string {
	return "https://images.example/" + name + ".jpg"
}

func (f *fakeImages) Ping(context.Context) error { return f.err }

type testServer struct {
	*httptest.Server
	cfg   *Config
	store *prefs.SQLiteStore
	sm    *SessionManager
}

func newTestServer(t *testing.T, cfg *Config, weather *fakeWeather, images *fakeImages) *testServer {
	t.Helper()

	store, err := prefs.Open(":memory:")
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}

	status := &statusChecker{weather: weather, images: images, timeout: time.Second}

	sm := newSessionManager(cfg, store, weather, images, cities.All(), status)

	errs := make(chan error, 64)

	srv := httptest.NewServer(newRouter(cfg, sm, status, errs))

	t.Cleanup(func() {
		sm.Close()
		srv.Close()
		store.Close()
	})

	return &testServer{Server: srv, cfg: cfg, store: store, sm: sm}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}

	return resp, body
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, testConfig(), &fakeWeather{high: 20, low: 10}, &fakeImages{})

	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || string(body) != "Ok\n" {
		t.Errorf("healthz: %d %q", resp.StatusCode, body)
	}

	resp, body = get(t, ts.URL+"/version")
	if resp.StatusCode != http.StatusOK || string(body) != "weathrguessr v"+releaseVersion+"\n" {
		t.Errorf("version: %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on version page")
	}
}

func TestRobots(t *testing.T) {
	ts := newTestServer(t, testConfig(), &fakeWeather{}, &fakeImages{})

	_, body := get(t, ts.URL+"/robots.txt")
	if !strings.Contains(string(body), "Disallow: /ws") {
		t.Errorf("unexpected robots.txt: %q", body)
	}
}

func TestHomePage(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/play/"

	ts := newTestServer(t, cfg, &fakeWeather{}, &fakeImages{})

	resp, body := get(t, ts.URL+"/play/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := string(body)
	for _, want := range []string{
		`/play/assets/weathrguessr/app.js`,
		`/play/favicons/favicon.svg`,
		`data-prefix="/play"`,
		"weathrguessr v" + releaseVersion,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected home page to contain %q", want)
		}
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == playerCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected a player cookie to be issued")
	}
}

func TestAssets(t *testing.T) {
	ts := newTestServer(t, testConfig(), &fakeWeather{}, &fakeImages{})

	for file, ctype := range map[string]string{
		"app.js":  "text/javascript; charset=utf-8",
		"app.css": "text/css; charset=utf-8",
	} {
		resp, body := get(t, ts.URL+"/assets/weathrguessr/"+file)
		if resp.StatusCode != http.StatusOK || len(body) == 0 {
			t.Errorf("%s: status %d, %d bytes", file, resp.StatusCode, len(body))
		}
		if got := resp.Header.Get("Content-Type"); got != ctype {
			t.Errorf("%s: expected %q, got %q", file, ctype, got)
		}
	}

	for _, file := range []string{"index.html", "missing.js"} {
		resp, _ := get(t, ts.URL+"/assets/weathrguessr/"+file)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", file, resp.StatusCode)
		}
	}
}

func TestFavicons(t *testing.T) {
	ts := newTestServer(t, testConfig(), &fakeWeather{}, &fakeImages{})

	for _, path := range []string{"/favicon.ico", "/favicons/favicon.svg"} {
		resp, _ := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
			t.Errorf("%s: %d %s", path, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	}
}

func TestShareQR(t *testing.T) {
	ts := newTestServer(t, testConfig(), &fakeWeather{}, &fakeImages{})

	resp, body := get(t, ts.URL+"/share/qr")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("expected a PNG body")
	}
}

func TestAPIStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig(), &fakeWeather{}, &fakeImages{err: errors.New("down")})

	resp, body := get(t, ts.URL+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got APIStatusMessage
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decoding %q: %v", body, err)
	}
	if got.Type != "api_status" || !got.Weather || got.Images {
		t.Errorf("unexpected status %+v", got)
	}
}

func TestProfileRoutes(t *testing.T) {
	cfg := testConfig()

	ts := newTestServer(t, cfg, &fakeWeather{}, &fakeImages{})
	if resp, _ := get(t, ts.URL+"/pprof/heap"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected pprof to be off by default, got %d", resp.StatusCode)
	}

	cfg = testConfig()
	cfg.profile = true

	ts = newTestServer(t, cfg, &fakeWeather{}, &fakeImages{})
	if resp, _ := get(t, ts.URL+"/pprof/heap"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected pprof when profiling, got %d", resp.StatusCode)
	}
}

func TestRealIP(t *testing.T) {
	cases := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote", "10.0.0.1:1234", nil, "10.0.0.1:1234"},
		{"real ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4:1234"},
		{"cloudflare wins", "10.0.0.1:1234", map[string]string{"CF-Connecting-IP": "5.6.7.8", "X-Real-IP": "1.2.3.4"}, "5.6.7.8:1234"},
		{"bogus header", "10.0.0.1:1234", map[string]string{"X-Real-IP": "nope"}, "10.0.0.1:1234"},
		{"ipv6", "[::1]:80", nil, "[::1]:80"},
	}

	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = c.remote
		for k, v := range c.headers {
			r.Header.Set(k, v)
		}

		if got := realIP(r); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}

func TestHumanReadableSize(t *testing.T) {
	cases := map[int]string{
		0:         "0 B",
		999:       "999 B",
		1500:      "1.5 kB",
		1_500_000: "1.5 MB",
	}

	for in, want := range cases {
		if got := humanReadableSize(in); got != want {
			t.Errorf("humanReadableSize(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestShareText(t *testing.T) {
	stats := game.Stats{Round: 5, Correct: 3, Streak: 2}

	want := "🌍 WeathrGuessr Results 🌍\n\n" +
		"📊 Completed Rounds: 4\n" +
		"✅ Correct Answers: 3\n" +
		"🎯 Accuracy: 75%\n" +
		"🔥 Current Streak: 2\n\n" +
		"Think you can beat my score? Play at https://weathrguessr.example"

	if got := shareText(stats, "https://weathrguessr.example"); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}

	if got := shareText(game.NewStats(false), "x"); !strings.Contains(got, "Completed Rounds: 0") || !strings.Contains(got, "Accuracy: 0%") {
		t.Errorf("unexpected share text for a fresh game: %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := testConfig().validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}

	cases := map[string]func(*Config){
		"port":          func(c *Config) { c.port = 0 },
		"tls pair":      func(c *Config) { c.tlsCert = "cert.pem" },
		"attempts":      func(c *Config) { c.fetchAttempts = 0 },
		"timeout":       func(c *Config) { c.fetchTimeout = -time.Second },
		"retention":     func(c *Config) { c.prefsRetention = 0 },
		"weather url":   func(c *Config) { c.weatherURL = "not a url" },
		"public url":    func(c *Config) { c.publicURL = "/relative" },
		"commons url":   func(c *Config) { c.commonsURL = "" },
		"placeholder":   func(c *Config) { c.placeholderURL = "via.placeholder.com" },
		"wikipedia url": func(c *Config) { c.wikipediaURL = "ftp//" },
	}

	for name, mutate := range cases {
		cfg := testConfig()
		mutate(cfg)

		if err := cfg.validate(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestNewCmdEnvironment(t *testing.T) {
	t.Setenv("WEATHRGUESSR_PORT", "9090")
	t.Setenv("WEATHRGUESSR_FETCH_ATTEMPTS", "3")

	cfg := &Config{}
	_ = newCmd(cfg)

	if cfg.port != 9090 {
		t.Errorf("expected port from environment, got %d", cfg.port)
	}
	if cfg.fetchAttempts != 3 {
		t.Errorf("expected fetch attempts from environment, got %d", cfg.fetchAttempts)
	}
	if cfg.publicURL != "https://weathrguessr.com" {
		t.Errorf("unexpected default public url %q", cfg.publicURL)
	}
}
