// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging); everything here is
// specific to StudyHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session and token configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: studyhub-session)
	SessionDomain string // Cookie domain (blank means current host)
	JWTSecret     string // HMAC secret for bearer tokens
	JWTTTL        time.Duration

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/uploads")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string // Key prefix (e.g., "attachments/")
	StorageS3PublicURL string // Public base URL for stored objects (bucket or CDN)

	// Limits and background work
	EventSweepInterval time.Duration
	UploadMaxBytes     int64
	AuthRateLimit      int // requests per minute per IP on auth routes

	// CORS origins allowed to call the API (the SPA)
	CORSAllowedOrigins []string

	// Store and file I/O deadlines; zero keeps the package defaults
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
