// Package service owns the business logic of a scrape invocation: turning
// raw parser output into canonical records, deduplicating, falling back to
// sample data and driving persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"offer_aggregator/internal/models"
	"offer_aggregator/internal/parser"
	"offer_aggregator/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HTMLFetcher is the slice of the fetcher the runner needs; it is an
// interface so pipeline tests can stub the network away.
type HTMLFetcher interface {
	Fetch(ctx context.Context, urls []string, forceRefresh bool) (string, bool)
}

// Runner executes the full extraction-and-persistence pipeline for one store
// integration per invocation. Invocations for different stores own disjoint
// persistence scopes and may run concurrently.
type Runner struct {
	fetcher HTMLFetcher
	parser  parser.ProductParser
	repo    repository.ProductRepository
	stores  []models.StoreTarget
	log     *logrus.Logger
}

// NewRunner wires the pipeline components together.
func NewRunner(fetcher HTMLFetcher, productParser parser.ProductParser, repo repository.ProductRepository, stores []models.StoreTarget, log *logrus.Logger) *Runner {
	return &Runner{
		fetcher: fetcher,
		parser:  productParser,
		repo:    repo,
		stores:  stores,
		log:     log,
	}
}

// Targets returns the configured store integrations.
func (r *Runner) Targets() []models.StoreTarget {
	return r.stores
}

// Run executes one scrape invocation end to end. A fetch or extraction
// failure is recovered via the fallback catalog and still reports success;
// only a persistence failure that prevents every insert fails the run.
func (r *Runner) Run(ctx context.Context, inv models.Invocation) models.ScrapeResult {
	start := time.Now()
	log := r.log.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"store":  inv.Target,
		"source": inv.Source,
	})

	target, ok := r.findTarget(inv.Target)
	if !ok {
		return failedResult(start, fmt.Sprintf("unknown store target %q", inv.Target))
	}
	store, location := target.ScopeKey()

	records := r.extract(ctx, target, inv.ForceRefresh, log)

	usedFallback := false
	if len(records) == 0 {
		log.Warn("live extraction yielded no records, using fallback catalog")
		records = FallbackCatalog(store, location)
		usedFallback = true
	}

	inserted, err := r.repo.Upsert(ctx, records, store, location)
	if err != nil {
		log.WithError(err).Error("persistence failed")
		result := failedResult(start, err.Error())
		result.ProductCount = len(records)
		return result
	}

	log.WithFields(logrus.Fields{
		"products": len(records),
		"inserted": inserted,
		"fallback": usedFallback,
	}).Info("scrape completed")

	return models.ScrapeResult{
		Success:         inserted > 0,
		ProductCount:    len(records),
		InsertedCount:   inserted,
		DurationSeconds: time.Since(start).Seconds(),
	}
}

// extract runs fetch → locate → extract → assemble → dedup and returns the
// canonical batch, empty on any recoverable failure.
func (r *Runner) extract(ctx context.Context, target models.StoreTarget, forceRefresh bool, log *logrus.Entry) []models.ProductRecord {
	html, ok := r.fetcher.Fetch(ctx, target.URLs, forceRefresh)
	if !ok {
		log.Warn("every URL and user-agent combination exhausted")
		return nil
	}

	baseURL := ""
	if len(target.URLs) > 0 {
		baseURL = target.URLs[0]
	}

	raws, err := r.parser.ParseProducts(ctx, strings.NewReader(html), baseURL, target.CardSelectors)
	if err != nil {
		if errors.Is(err, parser.ErrNoContainers) {
			log.Warn("no product containers located")
		} else {
			log.WithError(err).Warn("extraction failed")
		}
		return nil
	}

	session := NewExtractionSession(target)
	assembled := make([]*models.ProductRecord, 0, len(raws))
	for _, raw := range raws {
		if record, ok := session.Assemble(raw); ok {
			assembled = append(assembled, record)
		}
	}

	deduped := Deduplicate(assembled)
	log.WithFields(logrus.Fields{
		"candidates": len(raws),
		"rejected":   session.Rejected,
		"duplicates": session.Duplicates + (len(assembled) - len(deduped)),
		"records":    len(deduped),
	}).Debug("assembly finished")

	records := make([]models.ProductRecord, len(deduped))
	for i, record := range deduped {
		record.Position = i + 1
		records[i] = *record
	}
	return records
}

func (r *Runner) findTarget(name string) (models.StoreTarget, bool) {
	for _, target := range r.stores {
		if target.Name == name {
			return target, true
		}
	}
	return models.StoreTarget{}, false
}

func failedResult(start time.Time, message string) models.ScrapeResult {
	return models.ScrapeResult{
		Success:         false,
		DurationSeconds: time.Since(start).Seconds(),
		Error:           &message,
	}
}
