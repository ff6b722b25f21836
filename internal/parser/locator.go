package parser

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// minViableCandidates is the bar a locator strategy must clear before its
	// result is accepted; fewer matches means the next strategy runs.
	minViableCandidates = 3

	// maxStructuralDescendants keeps the structural heuristic from selecting
	// whole page sections that happen to contain an image and a price.
	maxStructuralDescendants = 120
)

// currencyPattern matches Swedish price text like "24,90 kr" or "25:-".
var currencyPattern = regexp.MustCompile(`\d+[,.:]?\d*\s*(kr|:-)`)

// locateStrategy is one named heuristic for finding repeated product-card
// structures. Strategies run in order; the first one clearing
// minViableCandidates wins.
type locateStrategy struct {
	name string
	run  func(doc *goquery.Document) []*goquery.Selection
}

var locateStrategies = []locateStrategy{
	{name: "known-selectors", run: locateKnownSelectors},
	{name: "data-attributes", run: locateDataAttributes},
	{name: "image-and-currency", run: locateStructural},
	{name: "sibling-repetition", run: locateRepetition},
}

var knownCardSelectors = []string{
	".product-card",
	"[class*=\"product-card\"]",
	"[class*=\"product-item\"]",
	"[class*=\"offer\"]",
	"[class*=\"erbjudande\"]",
	"article",
	"li[class*=\"product\"]",
}

var dataAttributeSelectors = []string{
	"[data-testid*=\"product\"]",
	"[data-testid*=\"offer\"]",
	"[data-sku]",
	"[data-product-id]",
	"[data-promotion-id]",
}

// Locate finds the DOM nodes that plausibly represent individual product
// cards. Store-specific selectors, when given, are tried as a strategy of
// their own before the generic chain. Returns the winning candidate set and
// the strategy name for diagnostics, or (nil, "") when every strategy is
// exhausted — the caller's signal to fall back to sample data.
func Locate(doc *goquery.Document, storeSelectors []string) ([]*goquery.Selection, string) {
	strategies := locateStrategies
	if len(storeSelectors) > 0 {
		store := locateStrategy{
			name: "store-selectors",
			run: func(d *goquery.Document) []*goquery.Selection {
				return collectUnique(d, storeSelectors)
			},
		}
		strategies = append([]locateStrategy{store}, locateStrategies...)
	}

	for _, strategy := range strategies {
		candidates := strategy.run(doc)
		if len(candidates) >= minViableCandidates {
			return candidates, strategy.name
		}
	}
	return nil, ""
}

func locateKnownSelectors(doc *goquery.Document) []*goquery.Selection {
	return collectUnique(doc, knownCardSelectors)
}

func locateDataAttributes(doc *goquery.Document) []*goquery.Selection {
	return collectUnique(doc, dataAttributeSelectors)
}

// locateStructural selects any bounded element carrying both a descendant
// image and currency-shaped text, keeping only the innermost such element so
// a card and its wrapping section do not both appear.
func locateStructural(doc *goquery.Document) []*goquery.Selection {
	var candidates []*goquery.Selection
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		if !hasProductSignature(sel) {
			return
		}
		if sel.Find("*").Length() > maxStructuralDescendants {
			return
		}
		// Innermost wins: skip when a descendant also carries the signature.
		inner := false
		sel.Find("*").EachWithBreak(func(_ int, child *goquery.Selection) bool {
			if hasProductSignature(child) {
				inner = true
				return false
			}
			return true
		})
		if !inner {
			candidates = append(candidates, sel)
		}
	})
	return dedupeByNode(candidates)
}

// locateRepetition scans grid/list-like containers and selects their children
// when at least two siblings share the image+currency signature.
func locateRepetition(doc *goquery.Document) []*goquery.Selection {
	var candidates []*goquery.Selection
	doc.Find("[class*=\"grid\"], [class*=\"list\"], ul, ol, div").Each(func(_ int, parent *goquery.Selection) {
		var matching []*goquery.Selection
		parent.Children().Each(func(_ int, child *goquery.Selection) {
			if hasProductSignature(child) {
				matching = append(matching, child)
			}
		})
		if len(matching) >= 2 {
			candidates = append(candidates, matching...)
		}
	})
	return dedupeByNode(candidates)
}

func hasProductSignature(sel *goquery.Selection) bool {
	return sel.Find("img").Length() > 0 && currencyPattern.MatchString(sel.Text())
}

// collectUnique runs each selector and unions the results, preserving
// selector order and dropping nodes already seen.
func collectUnique(doc *goquery.Document, selectors []string) []*goquery.Selection {
	var out []*goquery.Selection
	seen := make(map[*html.Node]struct{})
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			node := sel.Get(0)
			if _, ok := seen[node]; ok {
				return
			}
			seen[node] = struct{}{}
			out = append(out, sel)
		})
	}
	return out
}

func dedupeByNode(candidates []*goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	seen := make(map[*html.Node]struct{})
	for _, sel := range candidates {
		node := sel.Get(0)
		if _, ok := seen[node]; ok {
			continue
		}
		seen[node] = struct{}{}
		out = append(out, sel)
	}
	return out
}
