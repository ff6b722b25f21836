package main

import (
	"context"
	"net/http"
	"time"

	"offer_aggregator/internal/config"
	"offer_aggregator/internal/fetcher"
	"offer_aggregator/internal/logging"
	"offer_aggregator/internal/models"
	"offer_aggregator/internal/parser"
	"offer_aggregator/internal/repository"
	"offer_aggregator/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// productAPI serves the canonical records to downstream consumers and
// accepts scrape triggers. It implements no display logic; reshaping
// currency strings and labels is the UI layer's business.
type productAPI struct {
	repo   repository.ProductRepository
	runner *service.Runner
}

func (a *productAPI) listProducts(c *gin.Context) {
	store := c.Query("store")
	if store == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store query parameter is required"})
		return
	}
	var location *string
	if loc := c.Query("location"); loc != "" {
		location = &loc
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	products, err := a.repo.ListProducts(ctx, store, location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not retrieve products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (a *productAPI) triggerScrape(c *gin.Context) {
	var inv models.Invocation
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if inv.Source == "" {
		inv.Source = "api"
	}

	result := a.runner.Run(c.Request.Context(), inv)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func main() {
	appConfig := config.Init()
	log := logging.New(appConfig.LogLevel)

	db, err := gorm.Open(postgres.Open(appConfig.DBConn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to the database: %v", err)
	}

	repo := repository.NewPostgresProductRepository(db, log)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	runner := service.NewRunner(
		fetcher.New(appConfig.UserAgents, log),
		parser.NewProductParser(log),
		repo,
		appConfig.Stores,
		log,
	)

	api := &productAPI{repo: repo, runner: runner}

	router := gin.Default()
	router.GET("/healthz", healthz)
	router.GET("/api/products", api.listProducts)
	router.POST("/api/scrape", api.triggerScrape)

	log.Infof("API server starting on :%s", appConfig.APIPort)
	if err := router.Run(":" + appConfig.APIPort); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
