package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAppPort       = "3000"
	defaultAppEnv        = "local"
	defaultDatabaseFile  = "database.json"
	defaultUploadsDir    = "uploads/products"
	defaultAdminUsername = "admin"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_PORT":                defaultAppPort,
		"APP_ENV":                 defaultAppEnv,
		"DATABASE_FILE":           defaultDatabaseFile,
		"UPLOADS_DIR":             defaultUploadsDir,
		"SESSION_TTL":             "24h",
		"SWEEP_INTERVAL":          "1m",
		"ADMIN_USERNAME":          defaultAdminUsername,
		"ADMIN_PASSWORD_HASH":     "",
		"STRIP_LEGACY_CATEGORIES": "true",
		"STORAGE_DISK":            "local",
		"STORAGE_LOCAL_ROOT":      ".",
		"STORAGE_URL":             "http://localhost:3000",
		"MONGO_LOG_URI":           "",
		"MONGO_LOG_DB":            "tienda",
		"MONGO_LOG_COLLECTION":    "logs",
		"RATE_LIMIT_MAX":          "20",
		"RATE_LIMIT_WINDOW":       "15m",
	}
}

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

// DatabaseFile is the path of the single JSON document acting as the
// application database.
func DatabaseFile() string {
	_ = Load()
	return get("DATABASE_FILE", defaultDatabaseFile)
}

// UploadsDir is the directory, relative to the storage disk root, where
// product images live.
func UploadsDir() string {
	_ = Load()
	return get("UPLOADS_DIR", defaultUploadsDir)
}

func SessionTTL() time.Duration {
	_ = Load()
	return duration("SESSION_TTL", 24*time.Hour)
}

// SweepInterval is how often the session registry and the rate limiter
// evict expired entries.
func SweepInterval() time.Duration {
	_ = Load()
	return duration("SWEEP_INTERVAL", time.Minute)
}

func AdminUsername() string {
	_ = Load()
	return get("ADMIN_USERNAME", defaultAdminUsername)
}

// AdminPasswordHash overrides the built-in hash for the primary admin
// account. Empty means the seeded default applies.
func AdminPasswordHash() string {
	_ = Load()
	return get("ADMIN_PASSWORD_HASH", "")
}

// StripLegacyCategories controls the load-time migration that removes the
// old seed category names from existing documents.
func StripLegacyCategories() bool {
	_ = Load()
	return get("STRIP_LEGACY_CATEGORIES", "true") != "false"
}

func RateLimitMax() int {
	_ = Load()
	n, err := strconv.Atoi(get("RATE_LIMIT_MAX", "20"))
	if err != nil || n <= 0 {
		return 20
	}
	return n
}

func RateLimitWindow() time.Duration {
	_ = Load()
	return duration("RATE_LIMIT_WINDOW", 15*time.Minute)
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string {
	_ = Load()
	return get("STORAGE_DISK", "local")
}

func StorageLocalRoot() string {
	_ = Load()
	return get("STORAGE_LOCAL_ROOT", ".")
}

func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:3000")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Log sink ─────────────────────────────────────────────────────────────────

func MongoLogURI() string        { _ = Load(); return get("MONGO_LOG_URI", "") }
func MongoLogDB() string         { _ = Load(); return get("MONGO_LOG_DB", "tienda") }
func MongoLogCollection() string { _ = Load(); return get("MONGO_LOG_COLLECTION", "logs") }

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	// Process environment wins over files.
	for key := range loaded {
		if v := os.Getenv(key); v != "" {
			loaded[key] = v
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		s, ok := val.(string)
		if !ok {
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(get(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
// Keys from .env and app.json are available after config.Load().
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}
