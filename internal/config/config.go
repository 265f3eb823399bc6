package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

type Config struct {
	Port          string
	AllowedOrigin string

	StorageDriver  string
	DatabaseURL    string
	DBMigrations   bool
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	SeedDemoData   bool

	AuthSecret            string
	AccessTokenTTLMinutes int
	AdminPassword         string
	ClerkPassword         string

	UnknownProductPolicy string
	ReleaseOnCancel      bool
	RebuildOnStart       bool
}

// Load reads the environment, after merging an optional .env file. Variables
// already set in the process environment take precedence over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] ignoring .env: %v", err)
	}

	redisDB := getInt("REDIS_DB", 0)
	if redisDB < 0 {
		log.Printf("[config] REDIS_DB=%d is negative, using 0", redisDB)
		redisDB = 0
	}
	tokenTTL := getInt("ACCESS_TOKEN_TTL_MINUTES", 480)
	if tokenTTL < 1 {
		log.Printf("[config] ACCESS_TOKEN_TTL_MINUTES=%d is not positive, using 480", tokenTTL)
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DBMigrations:          getBool("DB_MIGRATIONS", true),
		SQLitePath:            getEnv("SQLITE_PATH", "invoicely.db"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		RedisKeyPrefix:        getEnv("REDIS_KEY_PREFIX", "invoicely:"),
		SeedDemoData:          getBool("SEED_DEMO_DATA", false),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		AdminPassword:         strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		ClerkPassword:         strings.TrimSpace(os.Getenv("CLERK_PASSWORD")),
		UnknownProductPolicy:  getEnv("UNKNOWN_PRODUCT_POLICY", "skip"),
		ReleaseOnCancel:       getBool("STOCK_RELEASE_ON_CANCEL", true),
		RebuildOnStart:        getBool("STOCK_REBUILD_ON_START", false),
	}
	cfg.StorageDriver = resolveDriver(os.Getenv("STORAGE_DRIVER"), cfg)

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// resolveDriver picks postgres when only DATABASE_URL is given, so existing
// deployments keep working without STORAGE_DRIVER.
func resolveDriver(raw string, cfg Config) string {
	driver := strings.ToLower(strings.TrimSpace(raw))
	if driver != "" {
		return driver
	}
	if cfg.DatabaseURL != "" {
		return DriverPostgres
	}
	return DriverMemory
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, val, fallback)
		return fallback
	}
	return parsed
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("[config] %s=%q is not a boolean, using %t", key, val, fallback)
		return fallback
	}
	return parsed
}
