// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Files holds message attachments; FileStoreKind is "local" or "s3".
	Files         filestore.Store
	FileStoreKind string

	Metrics *metrics.Metrics

	// app is filled by Startup and read by BuildHandler and Shutdown.
	app *appState
}
