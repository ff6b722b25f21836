package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want string // "" means nil expected
	}{
		{name: "comma decimal with currency", text: "24,90 kr", want: "24.90"},
		{name: "colon dash shorthand", text: "25:-", want: "25"},
		{name: "dot decimal", text: "19.50", want: "19.50"},
		{name: "zero decimal part collapses", text: "22,00 kr", want: "22"},
		{name: "price inside longer text", text: "Nu endast 14,50 kr/st", want: "14.50"},
		{name: "no digits", text: "slut i lager", want: ""},
		{name: "empty", text: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePrice(tc.text)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("expected nil, got %s", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got nil", tc.want)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
			if got.IsNegative() {
				t.Errorf("parsed price must never be negative, got %s", got)
			}
		})
	}
}

func TestParseMultibuy(t *testing.T) {
	qty, total, ok := ParseMultibuy("3 för 22,00")
	if !ok {
		t.Fatal("expected multibuy match")
	}
	if qty != 3 {
		t.Errorf("expected quantity 3, got %d", qty)
	}
	if !total.Equal(decimal.RequireFromString("22")) {
		t.Errorf("expected total 22, got %s", total)
	}

	if _, _, ok := ParseMultibuy("24,90 kr"); ok {
		t.Error("plain price must not match multibuy")
	}
}

func TestEffectiveUnitPrice(t *testing.T) {
	unit := EffectiveUnitPrice(3, decimal.RequireFromString("22"))
	if !unit.Equal(decimal.RequireFromString("7.33")) {
		t.Errorf("expected 7.33, got %s", unit)
	}
}

func TestDedupKey(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases and collapses whitespace", in: "  Äpple   Royal Gala ", want: "äpple royal gala"},
		{name: "strips weight token", in: "Falukorv 800 g", want: "falukorv"},
		{name: "strips pack token", in: "Ägg 12 pack", want: "ägg"},
		{name: "keeps plain words", in: "Kaffe mellanrost", want: "kaffe mellanrost"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DedupKey(tc.in); got != tc.want {
				t.Errorf("DedupKey(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
