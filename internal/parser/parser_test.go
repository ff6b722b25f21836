package parser

import (
	"context"
	"strings"
	"testing"

	"offer_aggregator/internal/logging"
)

const storePageHTML = `<html><body><main>
	<article>
		<img data-src="/bilder/apple.png">
		<h3>Äpple Royal Gala</h3>
		<span class="product-price">24,90 kr</span>
		<del>32,90 kr</del>
		<span class="compare-price">24,90 kr/kg</span>
		<p class="product-desc">Klass 1, Italien</p>
	</article>
	<article>
		<img data-src="/bilder/mjolk.png">
		<h3>Mellanmjölk</h3>
		<span class="product-price">14,50 kr</span>
		<span class="splash">Stammispris</span>
	</article>
	<article>
		<img data-src="/bilder/pixel.png">
		<span>12 kr</span>
	</article>
</main></body></html>`

func TestParseProducts(t *testing.T) {
	p := NewProductParser(logging.New("error"))

	products, err := p.ParseProducts(context.Background(), strings.NewReader(storePageHTML), "https://www.willys.se/erbjudanden", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("the nameless candidate must be skipped, got %d products", len(products))
	}

	apple := products[0]
	if apple.Name != "Äpple Royal Gala" {
		t.Errorf("got name %q", apple.Name)
	}
	if apple.PriceText != "24,90 kr" {
		t.Errorf("got price text %q", apple.PriceText)
	}
	if apple.OriginalPriceText != "32,90 kr" {
		t.Errorf("got original price text %q", apple.OriginalPriceText)
	}
	if apple.ComparisonPrice != "24,90 kr/kg" {
		t.Errorf("got comparison price %q", apple.ComparisonPrice)
	}
	if apple.ImageURL != "https://www.willys.se/bilder/apple.png" {
		t.Errorf("got image %q", apple.ImageURL)
	}
	if apple.Description != "Klass 1, Italien" {
		t.Errorf("got description %q", apple.Description)
	}
	if apple.IsMemberPrice {
		t.Error("apple is not a member price offer")
	}

	milk := products[1]
	if !milk.IsMemberPrice {
		t.Error("expected member price marker on the milk offer")
	}
}

func TestParseProductsNoContainers(t *testing.T) {
	p := NewProductParser(logging.New("error"))

	_, err := p.ParseProducts(context.Background(), strings.NewReader("<html><body><p>tomt</p></body></html>"), "", nil)
	if err != ErrNoContainers {
		t.Fatalf("expected ErrNoContainers, got %v", err)
	}
}
