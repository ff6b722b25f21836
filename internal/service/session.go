package service

import (
	"strings"

	"offer_aggregator/internal/models"
	"offer_aggregator/internal/parser"

	"github.com/shopspring/decimal"
)

// ExtractionSession owns the cross-candidate state of one scrape pass: the
// seen-name set used for exact dedup and the rejection counters. It is the
// only mutable state shared across candidates; the extractor chains never
// touch it.
type ExtractionSession struct {
	target models.StoreTarget
	seen   map[string]struct{}

	// Rejected counts candidates dropped for missing mandatory fields,
	// Duplicates those dropped by the exact dedup-key check.
	Rejected   int
	Duplicates int
}

// NewExtractionSession starts a fresh pass for one store target.
func NewExtractionSession(target models.StoreTarget) *ExtractionSession {
	return &ExtractionSession{
		target: target,
		seen:   make(map[string]struct{}),
	}
}

// Assemble combines the per-field extraction results into a canonical record.
// It rejects candidates whose name is missing or already seen this pass, and
// under the strict policy (the default) candidates without a parsable price.
// Position is assigned later, after the fuzzy dedup pass settled the batch.
func (s *ExtractionSession) Assemble(raw parser.RawProduct) (*models.ProductRecord, bool) {
	name := strings.Join(strings.Fields(raw.Name), " ")
	key := DedupKey(name)
	if name == "" || key == "" {
		s.Rejected++
		return nil, false
	}
	if _, dup := s.seen[key]; dup {
		s.Duplicates++
		return nil, false
	}

	price := ParsePrice(raw.PriceText)
	offerDetails := raw.OfferDetails

	// Combined "N för M" offers: either normalize to an effective unit price
	// or keep the phrasing as offer text, per integration policy. The leading
	// pack count must never be mistaken for a unit price.
	if qty, total, ok := ParseMultibuy(raw.PriceText + " " + raw.OfferDetails); ok {
		if s.target.UnitPriceFromMultibuy {
			unit := EffectiveUnitPrice(qty, total)
			price = &unit
		} else {
			if offerDetails == "" {
				offerDetails = strings.TrimSpace(multibuyRegex.FindString(raw.PriceText + " " + raw.OfferDetails))
			}
			if multibuyRegex.MatchString(raw.PriceText) {
				price = nil
			}
		}
	}

	if price == nil {
		if !s.target.AllowMissingPrice {
			s.Rejected++
			return nil, false
		}
		if s.target.DefaultPrice > 0 {
			fallback := decimal.NewFromFloat(s.target.DefaultPrice).Round(2)
			price = &fallback
		}
	}

	store, location := s.target.ScopeKey()
	imageURL := raw.ImageURL
	if imageURL == "" {
		imageURL = models.PlaceholderImageURL
	}

	record := &models.ProductRecord{
		Name:            name,
		Price:           price,
		OriginalPrice:   ParsePrice(raw.OriginalPriceText),
		ComparisonPrice: optional(raw.ComparisonPrice),
		ImageURL:        imageURL,
		Description:     optional(raw.Description),
		OfferDetails:    optional(offerDetails),
		QuantityInfo:    optional(raw.QuantityInfo),
		IsMemberPrice:   raw.IsMemberPrice,
		Store:           store,
		StoreLocation:   location,
	}

	s.seen[key] = struct{}{}
	return record, true
}

// Deduplicate applies the fuzzier cross-candidate pass: two names are
// duplicates when one dedup key is a substring of the other and the shorter
// is at least five characters. First occurrence wins, order is preserved.
func Deduplicate(records []*models.ProductRecord) []*models.ProductRecord {
	const minFuzzyLength = 5

	kept := make([]*models.ProductRecord, 0, len(records))
	keys := make([]string, 0, len(records))

	for _, record := range records {
		key := DedupKey(record.Name)
		dup := false
		for _, existing := range keys {
			shorter, longer := key, existing
			if len(shorter) > len(longer) {
				shorter, longer = longer, shorter
			}
			if len(shorter) >= minFuzzyLength && strings.Contains(longer, shorter) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, record)
		keys = append(keys, key)
	}
	return kept
}

func optional(text string) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}
