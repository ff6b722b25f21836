package parser

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractedField is the result of one extractor chain: the value plus which
// strategy produced it. Strategy is diagnostic only and never persisted.
type ExtractedField[T any] struct {
	Value    T
	Strategy string
	Found    bool
}

const (
	minNameLength = 3
	maxNameLength = 100
)

// textStrategy is one step in an ordered fallback chain. Returning "" hands
// over to the next step.
type textStrategy struct {
	name string
	run  func(sel *goquery.Selection) string
}

// runChain drives a fallback chain, returning the first non-empty result.
func runChain(sel *goquery.Selection, chain []textStrategy) ExtractedField[string] {
	for _, strategy := range chain {
		if value := strings.TrimSpace(strategy.run(sel)); value != "" {
			return ExtractedField[string]{Value: value, Strategy: strategy.name, Found: true}
		}
	}
	return ExtractedField[string]{}
}

// firstTextMatching returns the trimmed text of the first selector whose
// text passes keep. Selectors are tried in order.
func firstTextMatching(sel *goquery.Selection, selectors []string, keep func(string) bool) string {
	for _, selector := range selectors {
		found := ""
		sel.Find(selector).EachWithBreak(func(_ int, match *goquery.Selection) bool {
			text := strings.TrimSpace(match.Text())
			if keep(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// --- Name ---

var nameSelectors = []string{
	"h1", "h2", "h3", "h4",
	".title",
	"[class*=\"name\"]",
	"[class*=\"title\"]",
	"[class*=\"rubrik\"]",
}

var nameChain = []textStrategy{
	{name: "heading-selectors", run: func(sel *goquery.Selection) string {
		return firstTextMatching(sel, nameSelectors, validName)
	}},
	{name: "leaf-text-scan", run: longestLeafText},
	{name: "full-text-stripped", run: fullTextWithoutCurrency},
}

// ExtractName finds the product name on a candidate card. Results shorter
// than three characters are rejected outright.
func ExtractName(sel *goquery.Selection) ExtractedField[string] {
	field := runChain(sel, nameChain)
	if field.Found && !validName(field.Value) {
		return ExtractedField[string]{}
	}
	return field
}

func validName(text string) bool {
	return len([]rune(text)) >= minNameLength && len([]rune(text)) <= maxNameLength
}

// longestLeafText collects the text of leaf nodes and picks the longest one
// that looks like a name rather than a price.
func longestLeafText(sel *goquery.Selection) string {
	var leaves []string
	sel.Find("*").Each(func(_ int, node *goquery.Selection) {
		if node.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(node.Text())
		if validName(text) && !currencyPattern.MatchString(text) {
			leaves = append(leaves, text)
		}
	})
	if len(leaves) == 0 {
		return ""
	}
	sort.SliceStable(leaves, func(i, j int) bool { return len(leaves[i]) > len(leaves[j]) })
	return leaves[0]
}

func fullTextWithoutCurrency(sel *goquery.Selection) string {
	text := currencyPattern.ReplaceAllString(sel.Text(), " ")
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) > maxNameLength {
		text = strings.TrimSpace(string([]rune(text)[:maxNameLength]))
	}
	return text
}

// --- Price / original price / comparison price ---

var priceSelectors = []string{
	"[class*=\"price\"]:not([class*=\"original\"]):not([class*=\"compare\"])",
	"[class*=\"pris\"]",
	".price",
	"[class*=\"splash\"]",
}

var originalPriceSelectors = []string{
	"del", "s", "strike",
	"[class*=\"original\"]",
	"[class*=\"ord\"]",
	"[class*=\"was\"]",
	"[class*=\"before\"]",
}

var comparisonPriceSelectors = []string{
	"[class*=\"compare\"]",
	"[class*=\"comparison\"]",
	"[class*=\"jmf\"]",
	"[class*=\"jamfor\"]",
	"[class*=\"unit-price\"]",
}

var digitPattern = regexp.MustCompile(`\d`)

// ExtractPriceText finds the text fragment holding the current price. The
// numeric parsing itself happens later in the service layer.
func ExtractPriceText(sel *goquery.Selection) ExtractedField[string] {
	return runChain(sel, []textStrategy{
		{name: "price-selectors", run: func(s *goquery.Selection) string {
			return firstTextMatching(s, priceSelectors, digitPattern.MatchString)
		}},
		{name: "full-text-currency-scan", run: func(s *goquery.Selection) string {
			return currencyPattern.FindString(s.Text())
		}},
	})
}

// ExtractOriginalPriceText applies the price chain to "was"/struck-through
// markup only; there is no full-text fallback because any currency text found
// that way would be the current price again.
func ExtractOriginalPriceText(sel *goquery.Selection) ExtractedField[string] {
	return runChain(sel, []textStrategy{
		{name: "struck-price-selectors", run: func(s *goquery.Selection) string {
			return firstTextMatching(s, originalPriceSelectors, digitPattern.MatchString)
		}},
	})
}

// ExtractComparisonPrice keeps the "price per kg/l" reference as free text;
// the units vary too widely to normalize safely.
func ExtractComparisonPrice(sel *goquery.Selection) ExtractedField[string] {
	return runChain(sel, []textStrategy{
		{name: "comparison-selectors", run: func(s *goquery.Selection) string {
			return firstTextMatching(s, comparisonPriceSelectors, digitPattern.MatchString)
		}},
	})
}

// --- Image ---

// skippedImageHosts lists third-party CDNs unrelated to the store catalogs;
// tracking pixels and consent-tool assets frequently sit inside cards.
var skippedImageHosts = []string{
	"doubleclick.net",
	"googletagmanager.com",
	"facebook.com",
	"cookiebot.com",
	"gravatar.com",
}

var imageAttributes = []struct {
	selector string
	attr     string
}{
	{"img", "src"},
	{"img", "data-src"},
	{"img", "data-lazy-src"},
	{"picture source", "srcset"},
}

// ExtractImage resolves the first usable product image on a candidate,
// relative paths resolved against baseURL. Found=false means no usable image;
// the assembler substitutes the placeholder, never null.
func ExtractImage(sel *goquery.Selection, baseURL string) ExtractedField[string] {
	base, baseErr := url.Parse(baseURL)
	for _, source := range imageAttributes {
		resolved := ""
		sel.Find(source.selector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			raw, ok := img.Attr(source.attr)
			if !ok || strings.TrimSpace(raw) == "" {
				return true
			}
			if source.attr == "srcset" {
				raw = firstSrcsetURL(raw)
			}
			abs := resolveURL(base, baseErr == nil, raw)
			if abs == "" || unrelatedCDN(abs) {
				return true
			}
			resolved = abs
			return false
		})
		if resolved != "" {
			return ExtractedField[string]{Value: resolved, Strategy: source.selector + "[" + source.attr + "]", Found: true}
		}
	}
	return ExtractedField[string]{}
}

// firstSrcsetURL takes the first URL out of a "url 1x, url 2x" srcset value.
func firstSrcsetURL(srcset string) string {
	entry := strings.Split(srcset, ",")[0]
	fields := strings.Fields(entry)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func resolveURL(base *url.URL, haveBase bool, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	if !haveBase || !base.IsAbs() {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

func unrelatedCDN(abs string) bool {
	parsed, err := url.Parse(abs)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Hostname())
	for _, skipped := range skippedImageHosts {
		if host == skipped || strings.HasSuffix(host, "."+skipped) {
			return true
		}
	}
	return false
}

// --- Description / offer details / quantity info ---

var descriptionSelectors = []string{
	"[class*=\"desc\"]",
	"[class*=\"brand\"]",
	"[class*=\"subtitle\"]",
	"[class*=\"manufacturer\"]",
	"p",
}

var offerSelectors = []string{
	"[class*=\"save\"]",
	"[class*=\"promo\"]",
	"[class*=\"badge\"]",
	"[class*=\"kampanj\"]",
	"[class*=\"deal\"]",
}

var quantitySelectors = []string{
	"[class*=\"quantity\"]",
	"[class*=\"weight\"]",
	"[class*=\"volume\"]",
	"[class*=\"size\"]",
}

var (
	// Common Swedish promotional phrasings: "3 för 45 kr", REA, kampanj.
	promoPhrasePattern = regexp.MustCompile(`(?i)(\d+\s*för\s*\d+[\d,.:]*\s*(kr)?|\bREA\b|kampanj)`)

	// Loyalty-program markers used by the major chains.
	memberPricePattern = regexp.MustCompile(`(?i)(stammis|medlem|stämpla)`)

	quantityTextPattern = regexp.MustCompile(`(?i)\b\d+(?:[,.]\d+)?\s*(?:x\s*\d+\s*)?(g|kg|ml|cl|l|st|pack|port)\b`)
)

func nonEmpty(text string) bool { return text != "" }

// ExtractDescription finds brand/variant/weight free text.
func ExtractDescription(sel *goquery.Selection) ExtractedField[string] {
	return runChain(sel, []textStrategy{
		{name: "description-selectors", run: func(s *goquery.Selection) string {
			return firstTextMatching(s, descriptionSelectors, nonEmpty)
		}},
	})
}

// ExtractOfferDetails finds promotional badge text, falling back to scanning
// the candidate's full text for common promo phrasings.
func ExtractOfferDetails(sel *goquery.Selection) ExtractedField[string] {
	return runChain(sel, []textStrategy{
		{name: "offer-selectors", run: func(s *goquery.Selection) string {
			return firstTextMatching(s, offerSelectors, nonEmpty)
		}},
		{name: "promo-phrase-scan", run: func(s *goquery.Selection) string {
			return promoPhrasePattern.FindString(s.Text())
		}},
	})
}

// ExtractQuantityInfo finds pack size/weight free text.
func ExtractQuantityInfo(sel *goquery.Selection) ExtractedField[string] {
	return runChain(sel, []textStrategy{
		{name: "quantity-selectors", run: func(s *goquery.Selection) string {
			return firstTextMatching(s, quantitySelectors, nonEmpty)
		}},
		{name: "quantity-text-scan", run: func(s *goquery.Selection) string {
			return quantityTextPattern.FindString(s.Text())
		}},
	})
}

// HasMemberPriceMarker reports whether the candidate flags a
// loyalty-program-only price.
func HasMemberPriceMarker(sel *goquery.Selection) bool {
	return memberPricePattern.MatchString(sel.Text())
}
