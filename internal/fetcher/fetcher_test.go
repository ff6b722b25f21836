package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"offer_aggregator/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usefulPage is padded past the minimum length bar and carries a product probe.
var usefulPage = `<html><body><div class="product-card"><img src="/a.png">Mjölk 14 kr</div>` +
	strings.Repeat("<!-- fyllnad -->", 200) + `</body></html>`

func TestFetchFirstCombinationWins(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.Write([]byte(usefulPage))
	}))
	defer server.Close()

	f := New([]string{"UA-A", "UA-B"}, logging.New("error"))
	html, ok := f.Fetch(context.Background(), []string{server.URL}, false)

	require.True(t, ok)
	assert.Contains(t, html, "product-card")
	require.Len(t, agents, 1, "matrix must stop on first success")
	assert.Equal(t, "UA-A", agents[0])
}

func TestFetchRotatesAgentsOnFailure(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		if len(agents) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(usefulPage))
	}))
	defer server.Close()

	f := New([]string{"UA-A", "UA-B"}, logging.New("error"))
	_, ok := f.Fetch(context.Background(), []string{server.URL}, false)

	require.True(t, ok)
	require.Equal(t, []string{"UA-A", "UA-B"}, agents)
}

func TestFetchRejectsUselessPage(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		// 200 with a stub body: parses, but fails the usefulness bar.
		w.Write([]byte("<html><body><p>hej</p></body></html>"))
	}))
	defer server.Close()

	f := New([]string{"UA-A", "UA-B"}, logging.New("error"))
	html, ok := f.Fetch(context.Background(), []string{server.URL}, false)

	assert.False(t, ok, "a page with zero plausible products is a fetch failure")
	assert.Equal(t, 2, attempts, "every combination must be tried")
	assert.Contains(t, html, "hej", "last retrieved HTML is still returned")
}

func TestFetchForceRefreshHeaders(t *testing.T) {
	var cacheControl string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		w.Write([]byte(usefulPage))
	}))
	defer server.Close()

	f := New([]string{"UA-A"}, logging.New("error"))
	_, _ = f.Fetch(context.Background(), []string{server.URL}, true)

	assert.Equal(t, "no-cache", cacheControl)
}

func TestFetchAbortsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	f := New([]string{"UA-A", "UA-B", "UA-C", "UA-D"}, logging.New("error"))
	_, ok := f.Fetch(ctx, []string{server.URL, server.URL}, false)

	assert.False(t, ok)
}

func TestLooksUseful(t *testing.T) {
	if looksUseful("<html><body><div class='product'>x</div></body></html>") {
		t.Error("short page must fail the length bar")
	}
	if looksUseful(strings.Repeat("<p>text</p>", 300)) {
		t.Error("long page without product probes must fail")
	}
	if !looksUseful(usefulPage) {
		t.Error("padded product page must pass")
	}
}
