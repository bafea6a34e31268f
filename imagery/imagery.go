/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package imagery finds a picture of a city. Lookups never fail: when
// Wikimedia has nothing usable, a placeholder naming the city is returned.
package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maypok86/otter/v2"
)

const (
	DefaultCommonsURL     = "https://commons.wikimedia.org/w/api.php"
	DefaultWikipediaURL   = "https://en.wikipedia.org/wiki/"
	DefaultPlaceholderURL = "https://via.placeholder.com/400x250/4a90e2/ffffff?text="

	thumbWidth = 400
	userAgent  = "weathrguessr/1.0"
)

var errNotFound = errors.New("no image found")

type Options struct {
	CommonsURL     string
	WikipediaURL   string
	PlaceholderURL string

	HTTPClient *http.Client

	// CacheTTL keeps found images per city for this long. Placeholders are
	// never cached. Zero disables caching.
	CacheTTL time.Duration

	Logf func(format string, args ...any)
}

type Client struct {
	commonsURL     string
	wikipediaURL   string
	placeholderURL string
	http           *http.Client
	cache          *otter.Cache[string, string]
	logf           func(format string, args ...any)
}

func New(opts Options) *Client {
	c := &Client{
		commonsURL:     opts.CommonsURL,
		wikipediaURL:   opts.WikipediaURL,
		placeholderURL: opts.PlaceholderURL,
		http:           opts.HTTPClient,
		logf:           opts.Logf,
	}

	if c.commonsURL == "" {
		c.commonsURL = DefaultCommonsURL
	}
	if c.wikipediaURL == "" {
		c.wikipediaURL = DefaultWikipediaURL
	}
	if c.placeholderURL == "" {
		c.placeholderURL = DefaultPlaceholderURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}

	if opts.CacheTTL > 0 {
		c.cache = otter.Must(&otter.Options[string, string]{
			MaximumSize:      10_000,
			ExpiryCalculator: otter.ExpiryWriting[string, string](opts.CacheTTL),
		})
	}

	return c
}

// CityImage returns a thumbnail URL for the named city. It tries a Commons
// skyline search first, then the lead image of the city's Wikipedia
// article, then falls back to a placeholder.
func (c *Client) CityImage(ctx context.Context, name string) string {
	if c.cache != nil {
		if u, ok := c.cache.GetIfPresent(name); ok {
			return u
		}
	}

	u, err := c.commonsImage(ctx, name)
	if err != nil {
		c.logf("IMAGES: Commons lookup for %q failed: %v", name, err)

		u, err = c.wikipediaImage(ctx, name)
		if err != nil {
			c.logf("IMAGES: Wikipedia lookup for %q failed: %v", name, err)

			return c.Placeholder(name)
		}
	}

	if c.cache != nil {
		c.cache.Set(name, u)
	}

	return u
}

// Placeholder is the image shown when no photo of the city can be found.
func (c *Client) Placeholder(name string) string {
	return c.placeholderURL + url.PathEscape(name)
}

// Ping checks that the Commons API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("list", "search")
	q.Set("srsearch", "London")
	q.Set("srnamespace", "6")
	q.Set("srlimit", "1")

	_, err := c.get(ctx, c.commonsURL+"?"+q.Encode())

	return err
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type imageInfoResponse struct {
	Query struct {
		Pages map[string]struct {
			ImageInfo []struct {
				ThumbURL string `json:"thumburl"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

func (c *Client) commonsImage(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("list", "search")
	q.Set("srsearch", name+" city skyline")
	q.Set("srnamespace", "6")
	q.Set("srlimit", "5")

	body, err := c.get(ctx, c.commonsURL+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return "", fmt.Errorf("decoding search: %w", err)
	}

	if len(search.Query.Search) == 0 {
		return "", errNotFound
	}

	q = url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("titles", search.Query.Search[0].Title)
	q.Set("prop", "imageinfo")
	q.Set("iiprop", "url")
	q.Set("iiurlwidth", strconv.Itoa(thumbWidth))

	body, err = c.get(ctx, c.commonsURL+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var info imageInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decoding image info: %w", err)
	}

	for _, page := range info.Query.Pages {
		if len(page.ImageInfo) > 0 && page.ImageInfo[0].ThumbURL != "" {
			return page.ImageInfo[0].ThumbURL, nil
		}
	}

	return "", errNotFound
}

// wikipediaImage reads the og:image meta tag from the city's article.
func (c *Client) wikipediaImage(ctx context.Context, name string) (string, error) {
	target := c.wikipediaURL + url.PathEscape(strings.ReplaceAll(name, " ", "_"))

	body, err := c.get(ctx, target)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing article: %w", err)
	}

	u, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if !ok || u == "" {
		return "", errNotFound
	}

	return u, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 2<<20))
}
