// Package fetcher retrieves raw store HTML, rotating user agents across an
// ordered URL list until one combination yields a usable page.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DataHenHQ/useragent"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single GET; the caller's context bounds the
	// whole URL×agent matrix.
	DefaultTimeout = 20 * time.Second

	// minUsefulHTMLLength rejects stub pages (consent walls, error shells)
	// that return 200 with next to no markup.
	minUsefulHTMLLength = 2000

	// attemptInterval spaces requests against the same host so the retry
	// matrix does not trip rate limits.
	attemptInterval = 500 * time.Millisecond

	rotatedAgentCount = 4
)

// productProbes are generic "this page plausibly lists products" markers. A
// 200 response matching none of them is treated the same as a fetch failure.
var productProbes = []string{
	"[class*=\"product\"]",
	"[class*=\"offer\"]",
	"[class*=\"erbjudande\"]",
	"[data-testid*=\"product\"]",
	"article",
}

// Fetcher iterates a URL×user-agent matrix and returns the first response
// that clears the usefulness bar.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	userAgents []string
	log        *logrus.Logger
}

// New creates a Fetcher. When userAgents is empty a small rotation is
// generated instead, so the matrix always has more than one row.
func New(userAgents []string, log *logrus.Logger) *Fetcher {
	if len(userAgents) == 0 {
		userAgents = generateAgents(rotatedAgentCount)
	}
	return &Fetcher{
		client:     &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(attemptInterval), 1),
		userAgents: userAgents,
		log:        log,
	}
}

func generateAgents(n int) []string {
	agents := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ua, err := useragent.Desktop()
		if err != nil {
			continue
		}
		agents = append(agents, ua)
	}
	if len(agents) == 0 {
		// useragent draws from a bundled dataset and should not fail, but a
		// fetcher with zero agents would silently skip every URL.
		agents = []string{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"}
	}
	return agents
}

// Fetch walks the URL list in order, trying every user agent per URL, and
// returns the first HTML document that parses and looks like a product page.
// On exhaustion it returns whatever HTML was last retrieved together with
// ok=false. Context cancellation aborts the matrix early.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, forceRefresh bool) (string, bool) {
	var lastHTML string

	for _, target := range urls {
		for _, agent := range f.userAgents {
			if err := f.limiter.Wait(ctx); err != nil {
				f.log.WithError(err).Warn("fetch aborted by context")
				return lastHTML, false
			}

			html, err := f.get(ctx, target, agent, forceRefresh)
			if err != nil {
				f.log.WithFields(logrus.Fields{"url": target, "error": err}).Debug("fetch attempt failed")
				continue
			}
			lastHTML = html

			if !looksUseful(html) {
				f.log.WithField("url", target).Debug("fetched page failed usefulness probe")
				continue
			}
			return html, true
		}
	}
	return lastHTML, false
}

func (f *Fetcher) get(ctx context.Context, target, agent string, forceRefresh bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", target, err)
	}

	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")
	if u, err := url.Parse(target); err == nil {
		req.Header.Set("Referer", fmt.Sprintf("%s://%s/", u.Scheme, u.Host))
	}
	if forceRefresh {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	} else {
		req.Header.Set("Cache-Control", "max-age=0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: unexpected status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", target, err)
	}
	return string(body), nil
}

// looksUseful applies the minimum usefulness bar: enough markup to plausibly
// hold a listing, and at least one generic product probe matching. A page
// that parses but contains zero plausible products is indistinguishable from
// a fetch failure for our purposes.
func looksUseful(html string) bool {
	if len(html) < minUsefulHTMLLength {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	for _, probe := range productProbes {
		if doc.Find(probe).Length() > 0 {
			return true
		}
	}
	return false
}
