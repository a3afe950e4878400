// -----------------------------------------------------------------------
// Driver scans one search term's result pages for ingredient names, and
// reports when a term's result set is large enough that the builder
// should recursively subdivide it (spec.md §4.2 "Ingredient-discovery").
// -----------------------------------------------------------------------

package ingredient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// subdivideThreshold is the page count past which a term is considered
// too broad and should be split into narrower sub-terms.
const subdivideThreshold = 20

// Found is one ingredient name scraped from a result page.
type Found struct {
	Name        string
	Description string
}

// Result is one tick's scan outcome for a single term/page.
type Result struct {
	Ingredients    []Found
	TotalPages     int
	ShouldSubdivide bool
	Subterms       []string
}

type Driver struct {
	logger    arbor.ILogger
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func New(baseURL, userAgent string, timeout time.Duration, logger arbor.ILogger) *Driver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Driver{logger: logger, baseURL: baseURL, userAgent: userAgent, timeout: timeout}
}

func (d *Driver) Scan(ctx context.Context, term string, page int) (*Result, error) {
	pageURL := fmt.Sprintf("%s/search?q=%s&page=%d", d.baseURL, term, page)

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
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return nil, fmt.Errorf("ingredient driver: render %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ingredient driver: parse %s: %w", pageURL, err)
	}

	var found []Found
	doc.Find("[data-ingredient-name]").Each(func(_ int, s *goquery.Selection) {
		found = append(found, Found{
			Name:        s.AttrOr("data-ingredient-name", ""),
			Description: strings.TrimSpace(s.Text()),
		})
	})

	totalPages := 1
	if pagesAttr, ok := doc.Find("[data-total-pages]").Attr("data-total-pages"); ok {
		fmt.Sscanf(pagesAttr, "%d", &totalPages)
	}

	result := &Result{Ingredients: found, TotalPages: totalPages}
	if totalPages > subdivideThreshold && page == 1 {
		result.ShouldSubdivide = true
		result.Subterms = subdivide(term)
	}
	return result, nil
}

// subdivide expands a term into its alphabetic children, e.g. "a" ->
// "aa".."az" (spec.md §4.2 "terms may recursively subdivide").
func subdivide(term string) []string {
	out := make([]string, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		out = append(out, term+string(c))
	}
	return out
}
