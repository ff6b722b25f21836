package config

import (
	"errors"
	"fmt"
	"log"
	"offer_aggregator/internal/models"

	"github.com/fsnotify/fsnotify"

	"github.com/spf13/viper"
)

// Config holds the application configuration parameters.
type Config struct {
	DBConn     string
	Stores     []models.StoreTarget
	UserAgents []string
	LogLevel   string
	APIPort    string
}

// Global constants for configuration keys
const (
	DBHostKey     = "DB_HOST"
	DBPortKey     = "DB_PORT"
	DBUserKey     = "DB_USER"
	DBPasswordKey = "DB_PASSWORD"
	DBNameKey     = "DB_NAME"
	StoresKey     = "stores"      // Key for the list of store targets in config.yaml
	UserAgentsKey = "user_agents" // Optional user agent override list
	LogLevelKey   = "LOG_LEVEL"
	APIPortKey    = "API_PORT"
)

// Init initializes Viper, sets defaults, and constructs the DSN.
func Init() *Config {
	// --- File-based configuration ---
	viper.SetConfigName("config") // name of config file (e.g., config.yaml)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // look in the current directory

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found; this is not an error, we can rely on defaults/env
			log.Println("config.yaml not found, using default store targets and environment variables.")
		}
	}

	// Set up Viper to read environment variables
	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	viper.SetDefault(LogLevelKey, "info")
	viper.SetDefault(APIPortKey, "8080")

	// Construct the DSN from individual components
	dsn := buildDSN()

	// Unmarshal the store target configuration
	var stores []models.StoreTarget
	if err := viper.UnmarshalKey(StoresKey, &stores); err != nil {
		log.Fatalf("Fatal Error: could not unmarshal store target configuration: %v", err)
	}
	if len(stores) == 0 {
		stores = defaultStores()
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
	})

	viper.WatchConfig()

	return &Config{
		DBConn:     dsn,
		Stores:     stores,
		UserAgents: viper.GetStringSlice(UserAgentsKey),
		LogLevel:   viper.GetString(LogLevelKey),
		APIPort:    viper.GetString(APIPortKey),
	}
}

// buildDSN constructs the PostgreSQL DSN from individual config values read by Viper.
func buildDSN() string {
	host := viper.GetString(DBHostKey)
	port := viper.GetString(DBPortKey)
	user := viper.GetString(DBUserKey)
	password := viper.GetString(DBPasswordKey)
	dbname := viper.GetString(DBNameKey)

	if host == "" || user == "" || dbname == "" {
		log.Fatalf("Fatal Error: Missing mandatory database configuration (Host: %s, User: %s, DB Name: %s). Check ENV variables or config file.", host, user, dbname)
	}

	// Standard PostgreSQL DSN format
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Europe/Stockholm",
		host, user, password, dbname, port,
	)
	return dsn
}

// defaultStores returns the built-in store integrations used when config.yaml
// does not define any. Willys runs the strict price policy, Hemköp tolerates
// missing prices, Coop normalizes multibuy offers to a unit price.
func defaultStores() []models.StoreTarget {
	return []models.StoreTarget{
		{
			Name:     "willys",
			Location: "johanneberg",
			URLs: []string{
				"https://www.willys.se/erbjudanden/butik",
				"https://www.willys.se/erbjudanden",
			},
			CardSelectors: []string{"[data-testid*=\"product\"]", ".product-list-item"},
		},
		{
			Name:     "hemkop",
			Location: "goteborg",
			URLs: []string{
				"https://www.hemkop.se/erbjudanden",
			},
			CardSelectors:     []string{".product-card", "[class*=\"offer-card\"]"},
			AllowMissingPrice: true,
		},
		{
			Name:     "coop",
			Location: "vastra-gotaland",
			URLs: []string{
				"https://www.coop.se/butiker-erbjudanden/veckans-erbjudanden",
			},
			CardSelectors:         []string{"[class*=\"ItemTeaser\"]", "article"},
			UnitPriceFromMultibuy: true,
		},
	}
}
