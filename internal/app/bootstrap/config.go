// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	storageLocal = "local"
	storageS3    = "s3"
)

// appConfigKeys defines the configuration keys for StudyHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STUDYHUB_MONGO_URI, STUDYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "studyhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "studyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "jwt_secret", Default: "", Desc: "Bearer token signing secret (blank means random per process)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},

	// File storage configuration
	{Name: "storage_type", Default: storageLocal, Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/uploads", Desc: "URL prefix for serving local files"},

	// S3 configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "studyhub", Desc: "S3 key prefix"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public base URL for stored objects"},

	// Limits and background work
	{Name: "event_sweep_interval", Default: "5m", Desc: "How often expired events are purged"},
	{Name: "upload_max_bytes", Default: 25 << 20, Desc: "Maximum size of a message upload request"},
	{Name: "auth_rate_limit", Default: 10, Desc: "Auth requests per minute per client IP"},
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated origins allowed by CORS"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and cleanup"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for cascading deletes and sweeps"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// STUDYHUB_* environment variables and flags, with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		JWTSecret:        appValues.String("jwt_secret"),
		JWTTTL:           appValues.Duration("jwt_ttl", 24*time.Hour),

		// File storage
		StorageType:      strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3PublicURL: appValues.String("storage_s3_public_url"),

		// Limits
		EventSweepInterval: appValues.Duration("event_sweep_interval", 5*time.Minute),
		UploadMaxBytes:     int64(appValues.Int("upload_max_bytes")),
		AuthRateLimit:      appValues.Int("auth_rate_limit"),
		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		// Timeouts
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// StudyHub validates the MongoDB URI format to catch configuration errors
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

func validateApp(appCfg AppConfig) error {
	switch appCfg.StorageType {
	case storageLocal:
		if appCfg.StorageLocalPath == "" || appCfg.StorageLocalURL == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path and storage_local_url")
		}
	case storageS3:
		if appCfg.StorageS3Region == "" || appCfg.StorageS3Bucket == "" || appCfg.StorageS3PublicURL == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_region, storage_s3_bucket and storage_s3_public_url")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	if appCfg.EventSweepInterval <= 0 {
		return fmt.Errorf("event_sweep_interval must be positive")
	}
	if appCfg.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload_max_bytes must be positive")
	}
	if appCfg.AuthRateLimit <= 0 {
		return fmt.Errorf("auth_rate_limit must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
