// -----------------------------------------------------------------------
// Per-type resumption cursors (spec.md §4.2). Encoded into Job.Progress
// as JSON; decoded only by the matching work-builder.
// -----------------------------------------------------------------------

package models

import "encoding/json"

// CrawlScope is not a cursor: crawl has no explicit cursor, only a scope
// filter over the implicit "uncrawled variants" queue (spec.md §4.2 "Crawl").
type CrawlScope struct {
	Scope       string `json:"scope"` // all | selected_urls | selected_gtins | from_discovery | recrawl
	MinCrawlAge string `json:"min_crawl_age,omitempty"`
}

// DiscoveryCursor resumes a per-source-URL discovery scan.
type DiscoveryCursor struct {
	CurrentURLIndex int             `json:"current_url_index"`
	DriverProgress  json.RawMessage `json:"driver_progress,omitempty"`
}

// IngredientCursor resumes a recursively-subdividing term scan.
type IngredientCursor struct {
	CurrentTerm       string   `json:"current_term"`
	CurrentPage       int      `json:"current_page"`
	TotalPagesForTerm int      `json:"total_pages_for_term"`
	TermQueue         []string `json:"term_queue"`
}

// VideoDiscoveryCursor resumes a channel-relative video listing scan.
type VideoDiscoveryCursor struct {
	CurrentOffset int `json:"current_offset"`
}

// AggregationCursor resumes a monotonic scan over crawled source-products,
// used only when scope=all; scope=selected_gtins needs no cursor since a
// single tick processes the whole fixed scope (spec.md §4.2 "Aggregation").
type AggregationCursor struct {
	LastCheckedSourceID string `json:"last_checked_source_id"`
}

// DecodeCursor is a small helper that treats an unparsable or absent
// cursor as "start from scratch" rather than an error, per the
// rolling-upgrade note in spec.md §9: a cursor whose shape fails to parse
// implies a restart, which is safe because completion is idempotent.
func DecodeCursor(raw json.RawMessage, out interface{}) bool {
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// EncodeCursor marshals a cursor value back into Job.Progress. A marshal
// failure here would be a programmer error (the cursor types are all
// plain structs), so it panics rather than silently dropping progress.
func EncodeCursor(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("encode cursor: " + err.Error())
	}
	return data
}
