package main

import (
	"context"
	"flag"
	"fmt"

	"offer_aggregator/internal/config"
	"offer_aggregator/internal/fetcher"
	"offer_aggregator/internal/logging"
	"offer_aggregator/internal/models"
	"offer_aggregator/internal/parser"
	"offer_aggregator/internal/repository"
	"offer_aggregator/internal/service"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// --- Main Application Logic ---
func main() {
	targetFlag := flag.String("target", "", "run a single store integration (default: all configured)")
	forceFlag := flag.Bool("force", false, "send cache-busting headers on every fetch")
	sourceFlag := flag.String("source", "cli", "invocation source, diagnostic only")
	flag.Parse()

	// 1. Load configuration
	appConfig := config.Init()
	log := logging.New(appConfig.LogLevel)

	targets := appConfig.Stores
	if *targetFlag != "" {
		targets = filterTargets(targets, *targetFlag)
	}
	if len(targets) == 0 {
		log.Fatal("No store targets configured. Please add stores to config.yaml or check the -target flag.")
	}

	// 2. Database Connection (using GORM)
	db, err := gorm.Open(postgres.Open(appConfig.DBConn), &gorm.Config{
		PrepareStmt: true,
	})
	if err != nil {
		log.Fatalf("Error connecting to database with GORM: %v", err)
	}
	log.Info("Successfully connected to PostgreSQL using GORM")

	// 3. Dependency Injection: Initialize pipeline components
	repo := repository.NewPostgresProductRepository(db, log)

	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to run database auto-migration: %v", err)
	}

	runner := service.NewRunner(
		fetcher.New(appConfig.UserAgents, log),
		parser.NewProductParser(log),
		repo,
		targets,
		log,
	)

	// 4. Execution: each store owns a disjoint persistence scope, so the
	// integrations run concurrently.
	g, gCtx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			result := runner.Run(gCtx, models.Invocation{
				ForceRefresh: *forceFlag,
				Source:       *sourceFlag,
				Target:       target.Name,
			})
			if !result.Success {
				return fmt.Errorf("scrape of %s failed: %s", target.Name, errText(result))
			}
			log.Infof("%s: persisted %d of %d records in %.1fs",
				target.Name, result.InsertedCount, result.ProductCount, result.DurationSeconds)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("One or more scrape invocations failed: %v", err)
	}

	// 5. Final Output
	total, err := repo.CountProducts(ctx)
	if err != nil {
		log.Warnf("Could not get final product count from DB: %v", err)
	}

	fmt.Printf("\n--- SCRAPE AND PERSISTENCE COMPLETE ---\n")
	fmt.Printf("The catalog now holds %d product records.\n", total)
}

func filterTargets(targets []models.StoreTarget, name string) []models.StoreTarget {
	for _, target := range targets {
		if target.Name == name {
			return []models.StoreTarget{target}
		}
	}
	return nil
}

func errText(result models.ScrapeResult) string {
	if result.Error != nil {
		return *result.Error
	}
	return "no rows persisted"
}
