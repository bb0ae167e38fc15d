package events_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/service/events"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type env struct {
	svc    *events.Service
	events *testutil.MemEvents
	groups *testutil.MemGroups
	users  *testutil.MemUsers
	clock  *testutil.Clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		events: testutil.NewMemEvents(),
		groups: testutil.NewMemGroups(),
		users:  testutil.NewMemUsers(),
		clock:  testutil.NewClock(t0),
	}
	e.svc = events.New(e.events, e.groups, e.users, zap.NewNop(), events.WithClock(e.clock.Now))
	return e
}

func (e *env) create(t *testing.T, groupID, userID primitive.ObjectID, title string, start, end time.Time) events.EventView {
	t.Helper()
	v, err := e.svc.CreateEvent(context.Background(), userID, events.CreateInput{
		GroupID: groupID,
		Title:   title,
		Start:   start,
		End:     end,
	})
	if err != nil {
		t.Fatalf("CreateEvent(%q): %v", title, err)
	}
	return v
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func titles(vs []events.EventView) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Title
	}
	return strings.Join(out, ",")
}

func TestCreateEvent_ResolvesGroupAndCreator(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)

	v := e.create(t, g.ID, u1.ID, "  Midterm review ", t0.Add(time.Hour), t0.Add(2*time.Hour))

	if v.Title != "Midterm review" {
		t.Errorf("title = %q, want trimmed", v.Title)
	}
	if v.Group.ID != g.ID || v.Group.Name != "Algebra" {
		t.Errorf("group = %+v", v.Group)
	}
	if v.Creator.Username != "ada" {
		t.Errorf("creator = %+v", v.Creator)
	}
	if !v.CreatedAt.Equal(t0) {
		t.Errorf("created_at = %v, want %v", v.CreatedAt, t0)
	}
	if e.events.Len() != 1 {
		t.Errorf("stored events = %d, want 1", e.events.Len())
	}
}

func TestCreateEvent_AllowsPastStart(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)

	e.create(t, g.ID, u1.ID, "Ongoing", t0.Add(-time.Hour), t0.Add(time.Hour))
}

func TestCreateEvent_Validation(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)
	start := t0.Add(time.Hour)

	tests := []struct {
		name string
		in   events.CreateInput
	}{
		{"end equals start", events.CreateInput{GroupID: g.ID, Title: "x", Start: start, End: start}},
		{"end before start", events.CreateInput{GroupID: g.ID, Title: "x", Start: start, End: start.Add(-time.Minute)}},
		{"missing title", events.CreateInput{GroupID: g.ID, Title: "   ", Start: start, End: start.Add(time.Hour)}},
		{"title too long", events.CreateInput{GroupID: g.ID, Title: strings.Repeat("a", 101), Start: start, End: start.Add(time.Hour)}},
		{"description too long", events.CreateInput{GroupID: g.ID, Title: "x", Description: strings.Repeat("d", 1001), Start: start, End: start.Add(time.Hour)}},
		{"missing start", events.CreateInput{GroupID: g.ID, Title: "x", End: start}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.CreateEvent(context.Background(), u1.ID, tc.in)
			wantKind(t, err, apperr.InvalidArgument)
		})
	}
	if e.events.Len() != 0 {
		t.Fatalf("invalid input reached the store: %d events", e.events.Len())
	}
}

func TestCreateEvent_SanitizesDescription(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)

	v, err := e.svc.CreateEvent(context.Background(), u1.ID, events.CreateInput{
		GroupID:     g.ID,
		Title:       "Review",
		Description: `<p>Bring notes</p><script>alert(1)</script>`,
		Start:       t0.Add(time.Hour),
		End:         t0.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if strings.Contains(v.Description, "script") {
		t.Errorf("description not sanitized: %q", v.Description)
	}
	if !strings.Contains(v.Description, "Bring notes") {
		t.Errorf("description lost content: %q", v.Description)
	}
}

func TestMembershipGate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u1 := e.users.Add("ada")
	u2 := e.users.Add("grace")
	g := e.groups.Add("Algebra", u1.ID)

	_, err := e.svc.CreateEvent(ctx, u2.ID, events.CreateInput{
		GroupID: g.ID, Title: "x", Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour),
	})
	wantKind(t, err, apperr.Forbidden)

	_, err = e.svc.ListEventsForGroup(ctx, g.ID, u2.ID)
	wantKind(t, err, apperr.Forbidden)

	_, err = e.svc.ListEventsForGroup(ctx, primitive.NewObjectID(), u1.ID)
	wantKind(t, err, apperr.NotFound)

	_, err = e.svc.ListEventsForUser(ctx, primitive.NilObjectID)
	wantKind(t, err, apperr.Unauthenticated)
}

func TestListEventsForGroup_OrderedByStart(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	e.create(t, g.ID, u1.ID, "E1", day.Add(10*time.Hour), day.Add(13*time.Hour))
	e.create(t, g.ID, u1.ID, "E2", day.Add(9*time.Hour), day.Add(13*time.Hour))
	e.create(t, g.ID, u1.ID, "E3", day.Add(11*time.Hour), day.Add(13*time.Hour))

	got, err := e.svc.ListEventsForGroup(context.Background(), g.ID, u1.ID)
	if err != nil {
		t.Fatalf("ListEventsForGroup: %v", err)
	}
	if titles(got) != "E2,E1,E3" {
		t.Fatalf("order = %s, want E2,E1,E3", titles(got))
	}
}

func TestListEventsForUser_SpansMemberGroupsOnly(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	u2 := e.users.Add("grace")
	algebra := e.groups.Add("Algebra", u1.ID)
	physics := e.groups.Add("Physics", u2.ID, u1.ID)
	other := e.groups.Add("Chemistry", u2.ID)

	e.create(t, physics.ID, u2.ID, "lab", t0.Add(3*time.Hour), t0.Add(4*time.Hour))
	e.create(t, algebra.ID, u1.ID, "quiz", t0.Add(time.Hour), t0.Add(2*time.Hour))
	e.create(t, other.ID, u2.ID, "hidden", t0.Add(time.Hour), t0.Add(2*time.Hour))

	got, err := e.svc.ListEventsForUser(context.Background(), u1.ID)
	if err != nil {
		t.Fatalf("ListEventsForUser: %v", err)
	}
	if titles(got) != "quiz,lab" {
		t.Fatalf("events = %s, want quiz,lab", titles(got))
	}
	if got[1].Group.Name != "Physics" || got[1].Creator.Username != "grace" {
		t.Errorf("lab view = %+v", got[1])
	}
}

func TestListEventsForUser_NoGroups(t *testing.T) {
	e := newEnv(t)
	u := e.users.Add("loner")

	got, err := e.svc.ListEventsForUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListEventsForUser: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}
}

// An event that has ended disappears from listings and cannot be deleted.
func TestExpiredEventIsPurged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)

	ev := e.create(t, g.ID, u1.ID, "study hour", t0, t0.Add(time.Hour))
	e.create(t, g.ID, u1.ID, "later", t0.Add(3*time.Hour), t0.Add(4*time.Hour))

	e.clock.Advance(time.Hour + time.Second)

	got, err := e.svc.ListEventsForGroup(ctx, g.ID, u1.ID)
	if err != nil {
		t.Fatalf("ListEventsForGroup: %v", err)
	}
	if titles(got) != "later" {
		t.Fatalf("group events = %s, want later", titles(got))
	}
	mine, err := e.svc.ListEventsForUser(ctx, u1.ID)
	if err != nil {
		t.Fatalf("ListEventsForUser: %v", err)
	}
	if titles(mine) != "later" {
		t.Fatalf("user events = %s, want later", titles(mine))
	}

	wantKind(t, e.svc.DeleteEvent(ctx, ev.ID, u1.ID), apperr.NotFound)
}

func TestExpiryBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)
	e.create(t, g.ID, u1.ID, "edge", t0, t0.Add(time.Hour))

	e.clock.Set(t0.Add(time.Hour - time.Nanosecond))
	got, _ := e.svc.ListEventsForGroup(ctx, g.ID, u1.ID)
	if len(got) != 1 {
		t.Fatalf("event gone before its end: %d", len(got))
	}

	e.clock.Set(t0.Add(time.Hour))
	got, _ = e.svc.ListEventsForGroup(ctx, g.ID, u1.ID)
	if len(got) != 0 {
		t.Fatalf("event still listed at its end: %d", len(got))
	}
}

func TestListing_FiltersWhenPruneFails(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)
	e.create(t, g.ID, u1.ID, "old", t0, t0.Add(time.Hour))
	e.create(t, g.ID, u1.ID, "new", t0, t0.Add(5*time.Hour))

	e.clock.Advance(2 * time.Hour)
	e.events.FailDeleteExpired = errors.New("primary stepped down")

	got, err := e.svc.ListEventsForGroup(context.Background(), g.ID, u1.ID)
	if err != nil {
		t.Fatalf("ListEventsForGroup: %v", err)
	}
	if titles(got) != "new" {
		t.Fatalf("events = %s, want new", titles(got))
	}
	if e.events.Len() != 2 {
		t.Fatalf("stored = %d, want 2 (prune failed)", e.events.Len())
	}
}

func TestDeleteEvent_CreatorOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u1 := e.users.Add("ada")
	u2 := e.users.Add("grace")
	g := e.groups.Add("Algebra", u1.ID, u2.ID)
	ev := e.create(t, g.ID, u1.ID, "quiz", t0.Add(time.Hour), t0.Add(2*time.Hour))

	wantKind(t, e.svc.DeleteEvent(ctx, ev.ID, u2.ID), apperr.Forbidden)

	if err := e.svc.DeleteEvent(ctx, ev.ID, u1.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if e.events.Len() != 0 {
		t.Fatalf("stored = %d, want 0", e.events.Len())
	}
	wantKind(t, e.svc.DeleteEvent(ctx, ev.ID, u1.ID), apperr.NotFound)
}

func TestRunExpirySweep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u1 := e.users.Add("ada")
	g1 := e.groups.Add("Algebra", u1.ID)
	g2 := e.groups.Add("Physics", u1.ID)
	e.create(t, g1.ID, u1.ID, "a", t0, t0.Add(time.Hour))
	e.create(t, g2.ID, u1.ID, "b", t0, t0.Add(time.Hour))
	e.create(t, g2.ID, u1.ID, "c", t0, t0.Add(48*time.Hour))

	e.clock.Advance(2 * time.Hour)

	n, err := e.svc.RunExpirySweep(ctx)
	if err != nil {
		t.Fatalf("RunExpirySweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	n, err = e.svc.RunExpirySweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v; want 0, nil", n, err)
	}
	if e.events.Len() != 1 {
		t.Fatalf("stored = %d, want 1", e.events.Len())
	}
}

// Deleting, listing and sweeping an ended event concurrently removes it
// once and none of the callers fail with anything but NotFound.
func TestExpiry_ConcurrentRemovalIsIdempotent(t *testing.T) {
	for i := 0; i < 20; i++ {
		e := newEnv(t)
		ctx := context.Background()
		u1 := e.users.Add("ada")
		g := e.groups.Add("Algebra", u1.ID)
		ev := e.create(t, g.ID, u1.ID, "past", t0, t0.Add(time.Hour))
		e.clock.Advance(2 * time.Hour)

		var (
			wg       sync.WaitGroup
			delErr   error
			listErr  error
			sweepErr error
			listed   []events.EventView
		)
		wg.Add(3)
		go func() {
			defer wg.Done()
			delErr = e.svc.DeleteEvent(ctx, ev.ID, u1.ID)
		}()
		go func() {
			defer wg.Done()
			listed, listErr = e.svc.ListEventsForGroup(ctx, g.ID, u1.ID)
		}()
		go func() {
			defer wg.Done()
			_, sweepErr = e.svc.RunExpirySweep(ctx)
		}()
		wg.Wait()

		if delErr != nil && apperr.KindOf(delErr) != apperr.NotFound {
			t.Fatalf("DeleteEvent: %v", delErr)
		}
		if listErr != nil {
			t.Fatalf("ListEventsForGroup: %v", listErr)
		}
		if len(listed) != 0 {
			t.Fatalf("listing returned ended event")
		}
		if sweepErr != nil {
			t.Fatalf("RunExpirySweep: %v", sweepErr)
		}
		if e.events.Len() != 0 {
			t.Fatalf("stored = %d, want 0", e.events.Len())
		}
	}
}

func TestEventView_UnknownCreator(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)
	ghost := primitive.NewObjectID()
	if _, err := e.events.Create(context.Background(), models.Event{
		GroupID: g.ID, CreatorID: ghost, Title: "orphan", Start: t0, End: t0.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := e.svc.ListEventsForGroup(context.Background(), g.ID, u1.ID)
	if err != nil {
		t.Fatalf("ListEventsForGroup: %v", err)
	}
	if len(got) != 1 || got[0].Creator.Username != models.DeletedUsername {
		t.Fatalf("creator = %+v, want placeholder", got)
	}
}

func TestCreateEvent_KeepsLiteralTitle(t *testing.T) {
	e := newEnv(t)
	u1 := e.users.Add("ada")
	g := e.groups.Add("Algebra", u1.ID)

	v := e.create(t, g.ID, u1.ID, " if a<b and c>d ", t0.Add(time.Hour), t0.Add(2*time.Hour))
	if v.Title != "if a<b and c>d" {
		t.Errorf("title = %q", v.Title)
	}
}
