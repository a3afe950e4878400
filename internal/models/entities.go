// -----------------------------------------------------------------------
// Data-plane entities. These exist only as collaborators: produced by
// submit/persist, never mutated by handlers directly (spec.md §3, §4.4).
// -----------------------------------------------------------------------

package models

import "time"

// PriceHistoryEntry is an immutable price observation; crawl persist
// appends, never replaces (spec.md §4.4 "Crawl persist").
type PriceHistoryEntry struct {
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	ObservedAt  time.Time `json:"observed_at"`
	SourceURL   string    `json:"source_url"`
}

// SourceProduct is the parent of one or more SourceVariant records scraped
// from a single retailer/source.
type SourceProduct struct {
	ID            string              `json:"id"`
	Source        string              `json:"source"`
	GTIN          string              `json:"gtin,omitempty"`
	Name          string              `json:"name"`
	IngredientsRaw string             `json:"ingredients_raw,omitempty"`
	Crawled       string              `json:"crawled"` // "uncrawled" | "partial" | "crawled"
	PriceHistory  []PriceHistoryEntry `json:"price_history"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// SourceVariant is one purchasable SKU under a SourceProduct.
type SourceVariant struct {
	ID           string     `json:"id"`
	ParentID     string     `json:"parent_id"`
	URL          string     `json:"url"`
	GTIN         string     `json:"gtin,omitempty"`
	CrawledAt    *time.Time `json:"crawled_at,omitempty"`
	CanonicalURL string     `json:"canonical_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ScoreHistoryEntry records one aggregation persist's comparison against
// the previous entry (spec.md §4.4 "Aggregation persist").
type ScoreHistoryEntry struct {
	StoreScore   float64   `json:"store_score"`
	CreatorScore float64   `json:"creator_score"`
	Trend        string    `json:"trend"` // "increase" | "stable" | "drop"
	RecordedAt   time.Time `json:"recorded_at"`
}

// Product is the aggregated logical product grouping SourceProducts by
// GTIN (spec.md §4.2 "Aggregation").
type Product struct {
	ID               string              `json:"id"`
	GTIN             string              `json:"gtin"`
	Name             string              `json:"name"`
	Brand            string              `json:"brand,omitempty"`
	SourceProductIDs []string            `json:"source_product_ids"`
	Classification   string              `json:"classification,omitempty"`
	ImageURL         string              `json:"image_url,omitempty"`
	ScoreHistory     []ScoreHistoryEntry `json:"score_history"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ProductVariant is a purchasable SKU under a Product.
type ProductVariant struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	GTIN      string    `json:"gtin"`
	CreatedAt time.Time `json:"created_at"`
}

// Ingredient is reference data, upserted by name (spec.md §4.4 "Ingredient persist").
type Ingredient struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Classification string    `json:"classification,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Creator is a content creator that owns one or more Channels.
type Creator struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel belongs to a Creator and is the unit video-discovery paginates.
type Channel struct {
	ID         string    `json:"id"`
	CreatorID  string    `json:"creator_id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Video is produced by video-discovery and consumed by video-processing.
type Video struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ExternalID   string    `json:"external_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Processed    bool      `json:"processed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Media references a binary blob uploaded multipart to the coordinator
// (thumbnail, processed snippet asset).
type Media struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Snippet is a timestamped transcript span produced by video-processing.
// Re-processing deletes and recreates these (spec.md §4.4 "Video-processing persist").
type Snippet struct {
	ID        string        `json:"id"`
	VideoID   string        `json:"video_id"`
	StartSec  float64       `json:"start_sec"`
	EndSec    float64       `json:"end_sec"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
}

// ProductMention links a Snippet to a Product with sentiment, resolved by
// GTIN when present, else by an LLM-driven match function.
type ProductMention struct {
	ID         string    `json:"id"`
	SnippetID  string    `json:"snippet_id"`
	ProductID  string    `json:"product_id"`
	Sentiment  string    `json:"sentiment"` // "positive" | "neutral" | "negative"
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
