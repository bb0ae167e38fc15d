// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/studyhub/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/studyhub/internal/app/features/events"
	feedfeature "github.com/dalemusser/studyhub/internal/app/features/feed"
	groupsfeature "github.com/dalemusser/studyhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/studyhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/studyhub/internal/app/features/login"
	messagesfeature "github.com/dalemusser/studyhub/internal/app/features/messages"
	profilefeature "github.com/dalemusser/studyhub/internal/app/features/profile"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so the services in deps are ready.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(auth.Config{
		SessionKey:  appCfg.SessionKey,
		SessionName: appCfg.SessionName,
		Domain:      appCfg.SessionDomain,
		MaxAge:      appCfg.JWTTTL,
		Secure:      secure,
		JWTSecret:   appCfg.JWTSecret,
		JWTTTL:      appCfg.JWTTTL,
	}, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	return buildRouter(appCfg, routerDeps{
		state:    deps.app,
		files:    deps.Files,
		fileKind: deps.FileStoreKind,
		db:       deps.MongoClient,
		metrics:  deps.Metrics,
		sessions: sessionMgr,
	}, logger), nil
}

type routerDeps struct {
	state    *appState
	files    filestore.Store
	fileKind string
	db       healthfeature.Pinger
	metrics  *metrics.Metrics
	sessions *auth.SessionManager
}

func buildRouter(appCfg AppConfig, d routerDeps, logger *zap.Logger) http.Handler {
	errLog := errorsfeature.NewErrorLogger(logger)
	sm := d.sessions

	r := chi.NewRouter()
	r.Use(d.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global auth middleware: loads SessionUser into context from a bearer
	// token or the session cookie.
	r.Use(sm.LoadSessionUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(d.db, d.fileKind, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	// Locally stored attachments are served directly.
	if appCfg.StorageType == storageLocal {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(d.state.accounts, sm,
		ratelimit.NewLoginLimiter(appCfg.AuthRateLimit), errLog, logger)
	loginHandler.RegisterLimiter = ratelimit.New(appCfg.AuthRateLimit, time.Minute)
	r.Mount("/api/auth", loginfeature.Routes(loginHandler))

	profileHandler := profilefeature.NewHandler(d.state.accounts, errLog, logger)
	r.Mount("/api/users", profilefeature.Routes(profileHandler, sm))

	// Group boards and calendars are mounted beneath the group routes.
	messagesHandler := messagesfeature.NewHandler(d.state.messaging, d.files, appCfg.UploadMaxBytes, errLog, logger)
	r.Mount("/api/groups/{id}/messages", messagesfeature.Routes(messagesHandler, sm))

	eventsHandler := eventsfeature.NewHandler(d.state.events, errLog, logger)
	r.Mount("/api/groups/{id}/events", eventsfeature.GroupRoutes(eventsHandler, sm))
	r.Mount("/api/events", eventsfeature.Routes(eventsHandler, sm))

	groupsHandler := groupsfeature.NewHandler(d.state.groups, errLog, logger)
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler, sm))

	// Social feed
	feedHandler := feedfeature.NewHandler(d.state.feed, errLog, logger)
	r.Mount("/api/posts", feedfeature.Routes(feedHandler, sm))

	return r
}
