package eventstore_test

import (
	"testing"
	"time"

	eventstore "github.com/dalemusser/studyhub/internal/app/store/events"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func mkEvent(groupID primitive.ObjectID, title string, start, end time.Time) models.Event {
	return models.Event{
		GroupID:   groupID,
		CreatorID: primitive.NewObjectID(),
		Title:     title,
		Start:     start,
		End:       end,
	}
}

func TestStore_CreateGetDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e, err := store.Create(ctx, mkEvent(primitive.NewObjectID(), "Review", base, base.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Review" || !got.Start.Equal(base) {
		t.Errorf("got %+v", got)
	}

	n, err := store.Delete(ctx, e.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	n, err = store.Delete(ctx, e.ID)
	if err != nil || n != 0 {
		t.Errorf("second Delete = %d, %v; want 0, nil", n, err)
	}
	if _, err := store.GetByID(ctx, e.ID); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_ListByGroups_SortedByStart(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := primitive.NewObjectID()
	e1, _ := store.Create(ctx, mkEvent(g, "E1", base.Add(time.Hour), base.Add(5*time.Hour)))
	e2, _ := store.Create(ctx, mkEvent(g, "E2", base, base.Add(5*time.Hour)))
	e3, _ := store.Create(ctx, mkEvent(g, "E3", base.Add(2*time.Hour), base.Add(5*time.Hour)))
	_, _ = store.Create(ctx, mkEvent(primitive.NewObjectID(), "other", base, base.Add(time.Hour)))

	got, err := store.ListByGroups(ctx, []primitive.ObjectID{g})
	if err != nil {
		t.Fatalf("ListByGroups: %v", err)
	}
	want := []primitive.ObjectID{e2.ID, e1.ID, e3.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].Title, want[i].Hex())
		}
	}

	empty, err := store.ListByGroups(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("no groups: got %v, %v", empty, err)
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g1, g2 := primitive.NewObjectID(), primitive.NewObjectID()
	now := base.Add(3 * time.Hour)
	_, _ = store.Create(ctx, mkEvent(g1, "ended", base, base.Add(time.Hour)))
	_, _ = store.Create(ctx, mkEvent(g1, "ends now", base, now))
	live, _ := store.Create(ctx, mkEvent(g1, "live", base, now.Add(time.Minute)))
	_, _ = store.Create(ctx, mkEvent(g2, "other ended", base, base.Add(time.Hour)))

	n, err := store.DeleteExpiredInGroups(ctx, now, []primitive.ObjectID{g1})
	if err != nil || n != 2 {
		t.Fatalf("DeleteExpiredInGroups = %d, %v; want 2", n, err)
	}
	n, err = store.DeleteExpiredInGroups(ctx, now, nil)
	if err != nil || n != 0 {
		t.Errorf("empty scope = %d, %v; want 0", n, err)
	}

	n, err = store.DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired = %d, %v; want 1", n, err)
	}
	n, _ = store.DeleteExpired(ctx, now)
	if n != 0 {
		t.Errorf("repeat sweep removed %d, want 0", n)
	}

	left, _ := store.ListByGroups(ctx, []primitive.ObjectID{g1, g2})
	if len(left) != 1 || left[0].ID != live.ID {
		t.Errorf("remaining = %+v", left)
	}
}

func TestStore_DeleteByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := primitive.NewObjectID()
	_, _ = store.Create(ctx, mkEvent(g, "a", base, base.Add(time.Hour)))
	_, _ = store.Create(ctx, mkEvent(g, "b", base, base.Add(time.Hour)))

	n, err := store.DeleteByGroup(ctx, g)
	if err != nil || n != 2 {
		t.Errorf("DeleteByGroup = %d, %v; want 2", n, err)
	}
}
