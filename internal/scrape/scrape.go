// Package scrape fetches a web page and reduces it to a readable article:
// metadata from the head, main content located with goquery and converted to
// markdown. Used when an article is saved by URL alone, without the browser
// extension supplying content.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var ErrNotHTML = errors.New("response is not an HTML page")

const userAgent = "perch/1.0 (+https://github.com/perchlabs/perch)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Result is the readable form of a scraped page.
type Result struct {
	URL      string
	Title    string
	Site     string
	Byline   string
	Markdown string
}

// Scraper fetches and converts web pages.
type Scraper struct {
	client *http.Client
}

// NewScraper creates a Scraper with the given fetch timeout.
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// Scrape fetches rawURL and extracts the readable article.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching page: unexpected status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		return nil, ErrNotHTML
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	return Extract(u, body)
}

// Extract parses page HTML into a Result. Split from Scrape so content pushed
// by the browser extension goes through the same reduction.
func Extract(u *url.URL, body []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	result := &Result{
		URL:    u.String(),
		Title:  pageTitle(doc),
		Site:   siteName(doc, u),
		Byline: byline(doc),
	}

	content := mainContent(doc)
	html, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("serializing content: %w", err)
	}

	converter := htmlmd.NewConverter(u.Hostname(), true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		// Converter failures degrade to plain text rather than losing the page.
		markdown = strings.TrimSpace(content.Text())
	}
	result.Markdown = strings.TrimSpace(markdown)

	if result.Title == "" && result.Markdown == "" {
		return nil, errors.New("page has no extractable content")
	}
	if result.Title == "" {
		result.Title = result.URL
	}
	return result, nil
}

func pageTitle(doc *goquery.Document) string {
	if og := doc.Find("meta[property='og:title']").AttrOr("content", ""); og != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func siteName(doc *goquery.Document, u *url.URL) string {
	if og := doc.Find("meta[property='og:site_name']").AttrOr("content", ""); og != "" {
		return strings.TrimSpace(og)
	}
	return u.Hostname()
}

func byline(doc *goquery.Document) string {
	if author := doc.Find("meta[name=author]").AttrOr("content", ""); author != "" {
		return strings.TrimSpace(author)
	}
	if author := doc.Find("meta[property='article:author']").AttrOr("content", ""); author != "" {
		return strings.TrimSpace(author)
	}
	return strings.TrimSpace(doc.Find("[rel=author]").First().Text())
}

// contentSelectors in preference order; the first non-empty match wins.
var contentSelectors = []string{"article", "main", "[role=main]", "#content", ".post-content"}

// mainContent picks the most article-like node and strips page chrome from it.
func mainContent(doc *goquery.Document) *goquery.Selection {
	sel := doc.Find("body")
	for _, candidate := range contentSelectors {
		if found := doc.Find(candidate).First(); found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			sel = found
			break
		}
	}
	sel.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()
	return sel
}
