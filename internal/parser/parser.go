// Package parser extracts raw product data from unpredictable store HTML.
// It owns the container locator and the per-field fallback chains; turning
// the raw strings into canonical records is the service layer's job.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// ErrNoContainers signals that every locator strategy was exhausted without
// finding a viable candidate set. The caller recovers with the fallback
// catalog; this is never a hard failure.
var ErrNoContainers = errors.New("no product containers located")

// RawProduct is a Data Transfer Object (DTO) carrying the raw, per-candidate
// extraction results from the parser to the service's business logic. Price
// fields are still unparsed text at this point.
type RawProduct struct {
	Name              string
	NameStrategy      string
	PriceText         string
	OriginalPriceText string
	ComparisonPrice   string
	ImageURL          string
	Description       string
	OfferDetails      string
	QuantityInfo      string
	IsMemberPrice     bool
}

// ProductParser defines the contract for extracting raw product data from an
// HTML source. It knows how to read the page structure, nothing else.
type ProductParser interface {
	ParseProducts(ctx context.Context, reader io.Reader, baseURL string, storeSelectors []string) ([]RawProduct, error)
}

type productParser struct {
	log *logrus.Logger
}

// NewProductParser creates a parser instance.
func NewProductParser(log *logrus.Logger) ProductParser {
	return &productParser{log: log}
}

// ParseProducts parses the document, locates candidate cards and runs the
// five extractor chains on each. Candidates without a usable name are
// discarded here; every other field is optional.
func (p *productParser) ParseProducts(ctx context.Context, reader io.Reader, baseURL string, storeSelectors []string) ([]RawProduct, error) {
	root, err := html.Parse(reader)
	if err != nil {
		if closer, ok := reader.(io.Closer); ok {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	candidates, strategy := Locate(doc, storeSelectors)
	if candidates == nil {
		return nil, ErrNoContainers
	}
	p.log.WithFields(logrus.Fields{"strategy": strategy, "candidates": len(candidates)}).Debug("located product containers")

	products := make([]RawProduct, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return products, err
		}

		name := ExtractName(candidate)
		if !name.Found {
			p.log.Debug("candidate yielded no name, skipping")
			continue
		}

		image := ExtractImage(candidate, baseURL)

		products = append(products, RawProduct{
			Name:              name.Value,
			NameStrategy:      name.Strategy,
			PriceText:         ExtractPriceText(candidate).Value,
			OriginalPriceText: ExtractOriginalPriceText(candidate).Value,
			ComparisonPrice:   ExtractComparisonPrice(candidate).Value,
			ImageURL:          image.Value,
			Description:       ExtractDescription(candidate).Value,
			OfferDetails:      ExtractOfferDetails(candidate).Value,
			QuantityInfo:      ExtractQuantityInfo(candidate).Value,
			IsMemberPrice:     HasMemberPriceMarker(candidate),
		})
	}

	return products, nil
}
