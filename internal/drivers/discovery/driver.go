// -----------------------------------------------------------------------
// Driver scans one source's listing pages for product variant URLs. Like
// the crawl driver it renders with chromedp and extracts with goquery;
// driver-specific pagination state is opaque to the builder, which only
// passes it through (spec.md §4.2 "Discovery").
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// FoundVariant is one product variant URL discovered on a listing page.
type FoundVariant struct {
	URL  string
	GTIN string
}

// progress is the opaque per-source pagination cursor this driver hands
// back through Batch.Cursor.DriverProgress.
type progress struct {
	NextPageURL string `json:"next_page_url,omitempty"`
	Exhausted   bool   `json:"exhausted"`
}

// Result is one tick's scan outcome for a single source URL.
type Result struct {
	Variants []FoundVariant
	Progress json.RawMessage
}

// Driver scans a listing page (and its "next page" link, if present) for
// variant URLs.
type Driver struct {
	logger    arbor.ILogger
	userAgent string
	timeout   time.Duration
}

func New(userAgent string, timeout time.Duration, logger arbor.ILogger) *Driver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Driver{logger: logger, userAgent: userAgent, timeout: timeout}
}

// Scan renders sourceURL (or the resume page carried in prior progress)
// and returns the variant URLs found plus updated pagination progress.
func (d *Driver) Scan(ctx context.Context, sourceURL string, prior json.RawMessage) (*Result, error) {
	var p progress
	_ = json.Unmarshal(prior, &p)

	target := sourceURL
	if p.NextPageURL != "" {
		target = p.NextPageURL
	}
	if p.Exhausted {
		return &Result{Progress: prior}, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.UserAgent(d.userAgent),
		)...,
	)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	runCtx, cancel := context.WithTimeout(browserCtx, d.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return nil, fmt.Errorf("discovery driver: render %s: %w", target, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("discovery driver: parse %s: %w", target, err)
	}

	var variants []FoundVariant
	doc.Find("a[data-product-url]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("data-product-url")
		if !ok {
			return
		}
		variants = append(variants, FoundVariant{
			URL:  href,
			GTIN: s.AttrOr("data-gtin", ""),
		})
	})

	next := progress{}
	if href, ok := doc.Find("a[rel='next']").Attr("href"); ok && href != "" {
		next.NextPageURL = href
	} else {
		next.Exhausted = true
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("discovery driver: encode progress: %w", err)
	}
	return &Result{Variants: variants, Progress: encoded}, nil
}
