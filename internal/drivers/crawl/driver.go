// -----------------------------------------------------------------------
// Driver fetches and parses one product page: chromedp renders the page
// (handles JS-heavy retailer sites), goquery extracts structured fields,
// html-to-markdown flattens the description block for storage. An
// in-memory badgerhold cache avoids re-rendering a URL twice within one
// worker process's lifetime (spec.md §9 "workers are disposable").
// -----------------------------------------------------------------------

package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// Result is what the driver extracts from one rendered product page.
type Result struct {
	Name            string
	Price           float64
	Currency        string
	IngredientsRaw  string
	CanonicalURL    string
	SiblingURLs     []string // other variants of the same product discovered on the page
	GTIN            string
}

// cachedPage is the badgerhold-stored value keyed by URL.
type cachedPage struct {
	URL       string `boltholdKey:"URL"`
	HTML      string
	FetchedAt time.Time
}

// Driver renders a page and extracts product data from it.
type Driver struct {
	logger    arbor.ILogger
	userAgent string
	timeout   time.Duration
	cache     *badgerhold.Store
}

// Config controls the driver's browser and cache behavior.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
}

// New opens an ephemeral, process-local badgerhold store (in-memory, no
// disk persistence) to back the response cache.
func New(cfg Config, logger arbor.ILogger) (*Driver, error) {
	opts := badgerhold.DefaultOptions
	opts.Options = badger.DefaultOptions("").WithInMemory(true)
	store, err := badgerhold.Open(&opts)
	if err != nil {
		return nil, fmt.Errorf("crawl driver: open cache: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Driver{
		logger:    logger,
		userAgent: cfg.UserAgent,
		timeout:   timeout,
		cache:     store,
	}, nil
}

// Close releases the cache store.
func (d *Driver) Close() error {
	return d.cache.Close()
}

// Fetch renders pageURL and extracts the product fields a crawl handler
// persists. Rendered HTML is cached by URL for the life of this process.
func (d *Driver) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	html, err := d.render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parse(html, pageURL)
}

func (d *Driver) render(ctx context.Context, pageURL string) (string, error) {
	var cached cachedPage
	if err := d.cache.Get(pageURL, &cached); err == nil {
		return cached.HTML, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
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
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return "", fmt.Errorf("crawl driver: render %s: %w", pageURL, err)
	}

	if err := d.cache.Upsert(pageURL, &cachedPage{URL: pageURL, HTML: html, FetchedAt: time.Now().UTC()}); err != nil {
		d.logger.Warn().Err(err).Str("url", pageURL).Msg("crawl driver: cache write failed")
	}
	return html, nil
}

func parse(html, pageURL string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("crawl driver: parse %s: %w", pageURL, err)
	}

	result := &Result{CanonicalURL: pageURL}
	result.Name = firstNonEmpty(
		doc.Find("h1[itemprop='name']").First().Text(),
		doc.Find("h1").First().Text(),
	)
	result.GTIN = doc.Find("[itemprop='gtin13']").First().AttrOr("content", "")

	if priceText := doc.Find("[itemprop='price']").First().AttrOr("content", ""); priceText != "" {
		fmt.Sscanf(priceText, "%f", &result.Price)
	}
	result.Currency = doc.Find("[itemprop='priceCurrency']").First().AttrOr("content", "NZD")

	if canonical, ok := doc.Find("link[rel='canonical']").Attr("href"); ok && canonical != "" {
		result.CanonicalURL = canonical
	}

	descHTML, err := doc.Find("[itemprop='description']").First().Html()
	if err == nil && descHTML != "" {
		converter := md.NewConverter("", true, nil)
		if markdown, err := converter.ConvertString(descHTML); err == nil {
			result.IngredientsRaw = markdown
		}
	}

	doc.Find("a[data-variant-url]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("data-variant-url"); ok {
			result.SiblingURLs = append(result.SiblingURLs, href)
		}
	})

	return result, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
