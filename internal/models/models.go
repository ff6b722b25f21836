package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlaceholderImageURL is stored whenever no usable product image can be
// resolved from the page. Consumers can rely on ImageURL never being empty.
const PlaceholderImageURL = "https://placehold.co/300x300?text=Produkt"

// StoreTarget describes one store integration: where to fetch, how the scope
// is partitioned in the database, and which extraction policies apply.
type StoreTarget struct {
	// Name is the store identifier used for upsert partitioning (e.g. "willys").
	Name string `mapstructure:"name"`
	// Location further partitions the scope (e.g. "johanneberg"). Optional.
	Location string `mapstructure:"location"`
	// URLs are tried in order by the fetcher; the first useful response wins.
	URLs []string `mapstructure:"urls"`
	// CardSelectors are store-specific container selectors tried before the
	// generic locator strategies.
	CardSelectors []string `mapstructure:"card_selectors"`
	// AllowMissingPrice keeps records whose price could not be parsed instead
	// of rejecting them. DefaultPrice is substituted when set.
	AllowMissingPrice bool    `mapstructure:"allow_missing_price"`
	DefaultPrice      float64 `mapstructure:"default_price"`
	// UnitPriceFromMultibuy converts "3 för 22" offers into an effective
	// per-unit price. When false the offer text is kept verbatim instead.
	UnitPriceFromMultibuy bool `mapstructure:"unit_price_from_multibuy"`
}

// ScopeKey returns the (store, location) pair as stored in the database.
// Location maps to NULL when empty.
func (t StoreTarget) ScopeKey() (string, *string) {
	if t.Location == "" {
		return t.Name, nil
	}
	loc := t.Location
	return t.Name, &loc
}

// ProductRecord is the canonical discount listing persisted for downstream
// consumers. It replaces, never merges with, the previous batch for the same
// (store, store_location) scope.
//
// swagger:model ProductRecord
type ProductRecord struct {
	// GORM will automatically add ID, CreatedAt, UpdatedAt, DeletedAt
	gorm.Model

	// the name of the product
	//
	// required: true
	Name string `json:"name" gorm:"type:varchar(255);not null"`
	// the current (discounted) price, two-decimal fixed point
	Price *decimal.Decimal `json:"price" gorm:"type:numeric(10,2)"`
	// the pre-discount price, when the page distinguishes it
	OriginalPrice *decimal.Decimal `json:"originalPrice" gorm:"type:numeric(10,2)"`
	// free-text unit price reference ("24,90 kr/kg"); never parsed to a number
	ComparisonPrice *string `json:"comparisonPrice" gorm:"type:varchar(100)"`
	// absolute image URL, PlaceholderImageURL when unresolvable
	//
	// required: true
	ImageURL string `json:"imageUrl" gorm:"type:varchar(2048)"`
	// brand/variant/weight free text
	Description *string `json:"description" gorm:"type:varchar(500)"`
	// promotional badge text ("3 för 45", "REA")
	OfferDetails *string `json:"offerDetails" gorm:"type:varchar(255)"`
	// pack size or weight free text
	QuantityInfo *string `json:"quantityInfo" gorm:"type:varchar(100)"`
	// true when the page marks the price as loyalty-program only
	IsMemberPrice bool `json:"isMemberPrice"`
	// scope identifiers used for upsert partitioning
	//
	// required: true
	Store         string  `json:"store" gorm:"type:varchar(100);index:idx_scope"`
	StoreLocation *string `json:"storeLocation" gorm:"type:varchar(100);index:idx_scope"`
	// 1-based order within the batch, used for stable display ordering
	Position int `json:"position"`
}

// Invocation is the inbound trigger for one scrape run.
type Invocation struct {
	// ForceRefresh toggles cache-busting request headers in the fetcher. The
	// clear-then-insert upsert semantics always run regardless.
	ForceRefresh bool `json:"forceRefresh"`
	// Source identifies the caller for diagnostics only.
	Source string `json:"source"`
	// Target names the store integration to run.
	Target string `json:"target"`
}

// ScrapeResult is the outbound summary of one scrape run. Success is true
// whenever any data was persisted, including fallback sample data; only a
// persistence failure that prevents every insert reports Success=false.
type ScrapeResult struct {
	Success         bool    `json:"success"`
	ProductCount    int     `json:"productCount"`
	InsertedCount   int     `json:"insertedCount"`
	DurationSeconds float64 `json:"durationSeconds"`
	Error           *string `json:"error"`
}
