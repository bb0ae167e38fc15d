// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	accountsvc "github.com/dalemusser/studyhub/internal/app/service/accounts"
	eventsvc "github.com/dalemusser/studyhub/internal/app/service/events"
	feedsvc "github.com/dalemusser/studyhub/internal/app/service/feed"
	groupsvc "github.com/dalemusser/studyhub/internal/app/service/groups"
	"github.com/dalemusser/studyhub/internal/app/service/messaging"
	eventstore "github.com/dalemusser/studyhub/internal/app/store/events"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	poststore "github.com/dalemusser/studyhub/internal/app/store/posts"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// appState holds the services and workers built once at startup.
type appState struct {
	accounts  *accountsvc.Service
	groups    *groupsvc.Service
	messaging *messaging.Service
	events    *eventsvc.Service
	feed      *feedsvc.Service

	expiry *workers.EventExpiry
}

// Startup builds the services over the Mongo stores and starts the
// background event expiry sweep.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	users := userstore.New(db)
	groups := groupstore.New(db)
	events := eventstore.New(db)
	posts := poststore.New(db)

	st := deps.app
	st.accounts = accountsvc.New(users, logger)
	st.groups = groupsvc.New(groups, events, users, deps.Files, logger, groupsvc.WithMetrics(deps.Metrics))
	st.messaging = messaging.New(groups, users, deps.Files, logger, messaging.WithMetrics(deps.Metrics))
	st.events = eventsvc.New(events, groups, users, logger, eventsvc.WithMetrics(deps.Metrics))
	st.feed = feedsvc.New(posts, users, logger)

	st.expiry = workers.NewEventExpiry(st.events, logger, appCfg.EventSweepInterval)
	st.expiry.Start()
	return nil
}
