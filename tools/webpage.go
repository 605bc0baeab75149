package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WebPageTool fetches a web page and returns its readable text content.
type WebPageTool struct {
	client   *http.Client
	maxChars int
}

// WebPageOption configures a WebPageTool.
type WebPageOption func(*WebPageTool)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) WebPageOption {
	return func(t *WebPageTool) {
		t.client = client
	}
}

// WithMaxChars caps the extracted text length. Defaults to 8000.
func WithMaxChars(n int) WebPageOption {
	return func(t *WebPageTool) {
		if n > 0 {
			t.maxChars = n
		}
	}
}

func NewWebPageTool(opts ...WebPageOption) *WebPageTool {
	t := &WebPageTool{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxChars: 8000,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WebPageTool) Name() string {
	return "fetch_webpage"
}

func (t *WebPageTool) Description() string {
	return "Fetches a web page and returns its text content. " +
		"Input should be a full URL including the scheme."
}

// Call fetches the URL and extracts visible text, dropping scripts, styles
// and navigation chrome.
func (t *WebPageTool) Call(ctx context.Context, input string) (string, error) {
	u := strings.TrimSpace(input)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return "", fmt.Errorf("invalid url: %s", u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "agentpatterns/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var sb strings.Builder
	doc.Find("h1, h2, h3, h4, p, li, td, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})

	text := sb.String()
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	if len(text) > t.maxChars {
		text = text[:t.maxChars] + "\n... truncated"
	}
	if text == "" {
		return "", fmt.Errorf("no text content found")
	}
	return text, nil
}
