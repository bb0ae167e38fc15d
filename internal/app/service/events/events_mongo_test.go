package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/service/events"
	eventstore "github.com/dalemusser/studyhub/internal/app/store/events"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.uber.org/zap"
)

// Runs the expiry race against MongoDB so the deletes go through real
// filters rather than the in-memory fakes.
func TestMongo_ExpiryRace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	fx := testutil.NewFixtures(t, db)
	ada := fx.CreateUser(ctx, "ada")
	g := fx.CreateGroup(ctx, "Algebra", ada.ID)
	now := time.Now().UTC()
	past := fx.CreateEvent(ctx, g.ID, ada.ID, "past", now.Add(-2*time.Hour), now.Add(-time.Hour))
	fx.CreateEvent(ctx, g.ID, ada.ID, "upcoming", now.Add(time.Hour), now.Add(2*time.Hour))

	evs := eventstore.New(db)
	svc := events.New(evs, groupstore.New(db), userstore.New(db), zap.NewNop())

	var (
		wg       sync.WaitGroup
		delErr   error
		listErr  error
		sweepErr error
		listed   []events.EventView
	)
	wg.Add(3)
	go func() { defer wg.Done(); delErr = svc.DeleteEvent(ctx, past.ID, ada.ID) }()
	go func() { defer wg.Done(); listed, listErr = svc.ListEventsForUser(ctx, ada.ID) }()
	go func() { defer wg.Done(); _, sweepErr = svc.RunExpirySweep(ctx) }()
	wg.Wait()

	if delErr != nil && apperr.KindOf(delErr) != apperr.NotFound {
		t.Fatalf("DeleteEvent: %v", delErr)
	}
	if listErr != nil || sweepErr != nil {
		t.Fatalf("list err %v, sweep err %v", listErr, sweepErr)
	}
	if len(listed) != 1 || listed[0].Title != "upcoming" {
		t.Fatalf("listed = %+v", listed)
	}
	if listed[0].Creator.Username != "ada" || listed[0].Group.Name != "Algebra" {
		t.Errorf("view = %+v", listed[0])
	}

	remaining, err := svc.ListEventsForGroup(ctx, g.ID, ada.ID)
	if err != nil || len(remaining) != 1 {
		t.Fatalf("remaining = %d, %v", len(remaining), err)
	}
}
