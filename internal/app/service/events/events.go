// Package events implements group calendar events and their expiry.
//
// An event whose end time has passed no longer exists: it is deleted
// either lazily by the listing that first notices it or by the periodic
// sweep. Both paths use models.Event.ExpiredAt and tolerate the event
// already being gone.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EventRepo is the event storage used by the service.
type EventRepo interface {
	Create(ctx context.Context, e models.Event) (models.Event, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredInGroups(ctx context.Context, now time.Time, groupIDs []primitive.ObjectID) (int64, error)
	ListByGroups(ctx context.Context, groupIDs []primitive.ObjectID) ([]models.Event, error)
}

// GroupRepo reads the groups events belong to.
type GroupRepo interface {
	GetSummary(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	List(ctx context.Context, f groupstore.ListFilter) ([]models.Group, error)
}

// UserDirectory resolves user ids to public identities.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// GroupRef names the group an event belongs to.
type GroupRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// EventView is an event with its group and creator resolved.
type EventView struct {
	models.Event
	Group   GroupRef           `json:"group"`
	Creator models.UserSummary `json:"creator"`
}

// CreateInput carries the fields of a new event.
type CreateInput struct {
	GroupID     primitive.ObjectID
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

type Service struct {
	events  EventRepo
	groups  GroupRepo
	users   UserDirectory
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for every expiry comparison.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records expired-event counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(events EventRepo, groups GroupRepo, users UserDirectory, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		events: events,
		groups: groups,
		users:  users,
		log:    logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func validateCreate(in *CreateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = htmlsanitize.Sanitize(strings.TrimSpace(in.Description))

	var v inputval.Result
	v.Check(in.Title != "", "title", "title is required")
	v.Check(inputval.Len(in.Title) <= inputval.EventTitleMax, "title", "title is too long")
	v.Check(inputval.Len(in.Description) <= inputval.EventDescMax, "description", "description is too long")
	v.Check(!in.Start.IsZero(), "start", "start is required")
	v.Check(!in.End.IsZero(), "end", "end is required")
	if !in.Start.IsZero() && !in.End.IsZero() {
		v.Check(in.End.After(in.Start), "end", "end must be after start")
	}
	return v.Err()
}

// CreateEvent adds an event to a group userID belongs to. The start may be
// in the past; only end > start is required.
func (s *Service) CreateEvent(ctx context.Context, userID primitive.ObjectID, in CreateInput) (EventView, error) {
	if userID.IsZero() {
		return EventView{}, apperr.Unauthenticatedf("sign in required")
	}
	if err := validateCreate(&in); err != nil {
		return EventView{}, err
	}

	g, err := s.groups.GetSummary(ctx, in.GroupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return EventView{}, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return EventView{}, apperr.Wrap(err, "load group")
	}
	if !grouppolicy.IsMember(g, userID) {
		return EventView{}, apperr.Forbiddenf("you are not a member of this group")
	}

	e, err := s.events.Create(ctx, models.Event{
		ID:          primitive.NewObjectID(),
		GroupID:     g.ID,
		CreatorID:   userID,
		Title:       in.Title,
		Description: in.Description,
		Start:       in.Start.UTC(),
		End:         in.End.UTC(),
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return EventView{}, apperr.Wrap(err, "create event")
	}

	views, err := s.resolve(ctx, []models.Event{e}, []models.Group{g})
	if err != nil {
		return EventView{}, err
	}
	return views[0], nil
}

// ListEventsForUser returns the live events of every group userID belongs
// to, ordered by start.
func (s *Service) ListEventsForUser(ctx context.Context, userID primitive.ObjectID) ([]EventView, error) {
	if userID.IsZero() {
		return nil, apperr.Unauthenticatedf("sign in required")
	}
	groups, err := s.groups.List(ctx, groupstore.ListFilter{MemberID: userID})
	if err != nil {
		return nil, apperr.Wrap(err, "list groups")
	}
	return s.listLive(ctx, groups)
}

// ListEventsForGroup returns the group's live events ordered by start.
func (s *Service) ListEventsForGroup(ctx context.Context, groupID, userID primitive.ObjectID) ([]EventView, error) {
	if userID.IsZero() {
		return nil, apperr.Unauthenticatedf("sign in required")
	}
	g, err := s.groups.GetSummary(ctx, groupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load group")
	}
	if !grouppolicy.IsMember(g, userID) {
		return nil, apperr.Forbiddenf("you are not a member of this group")
	}
	return s.listLive(ctx, []models.Group{g})
}

// DeleteEvent removes an event created by userID. An event that has
// already ended, or was already removed, is NotFound.
func (s *Service) DeleteEvent(ctx context.Context, eventID, userID primitive.ObjectID) error {
	if userID.IsZero() {
		return apperr.Unauthenticatedf("sign in required")
	}
	e, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("event not found")
	}
	if err != nil {
		return apperr.Wrap(err, "load event")
	}

	if e.ExpiredAt(s.now()) {
		if n, err := s.events.Delete(ctx, e.ID); err != nil {
			s.log.Warn("expired event delete failed", zap.String("event_id", e.ID.Hex()), zap.Error(err))
		} else {
			s.metrics.EventsExpired(metrics.TriggerLazy, n)
		}
		return apperr.NotFoundf("event not found")
	}
	if !grouppolicy.CanDeleteEvent(e, userID) {
		return apperr.Forbiddenf("only the creator can delete this event")
	}

	// Zero rows means a concurrent sweep or delete got there first.
	if _, err := s.events.Delete(ctx, e.ID); err != nil {
		return apperr.Wrap(err, "delete event")
	}
	return nil
}

// RunExpirySweep deletes every ended event in the store and returns how
// many were removed.
func (s *Service) RunExpirySweep(ctx context.Context) (int64, error) {
	n, err := s.events.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, apperr.Wrap(err, "sweep expired events")
	}
	s.metrics.EventsExpired(metrics.TriggerSweep, n)
	return n, nil
}

// listLive prunes ended events in groups, then lists what remains. A
// failed prune is logged; ended events are still filtered from the result.
func (s *Service) listLive(ctx context.Context, groups []models.Group) ([]EventView, error) {
	if len(groups) == 0 {
		return []EventView{}, nil
	}
	ids := make([]primitive.ObjectID, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}

	now := s.now()
	n, err := s.events.DeleteExpiredInGroups(ctx, now, ids)
	if err != nil {
		s.log.Warn("lazy event expiry failed", zap.Int("groups", len(ids)), zap.Error(err))
	} else {
		s.metrics.EventsExpired(metrics.TriggerLazy, n)
	}

	all, err := s.events.ListByGroups(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, "list events")
	}
	live := make([]models.Event, 0, len(all))
	for _, e := range all {
		if !e.ExpiredAt(now) {
			live = append(live, e)
		}
	}
	return s.resolve(ctx, live, groups)
}

func (s *Service) resolve(ctx context.Context, evs []models.Event, groups []models.Group) ([]EventView, error) {
	names := make(map[primitive.ObjectID]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	ids := make([]primitive.ObjectID, 0, len(evs))
	for _, e := range evs {
		ids = append(ids, e.CreatorID)
	}
	creators, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, "resolve creators")
	}

	views := make([]EventView, len(evs))
	for i, e := range evs {
		views[i] = EventView{
			Event:   e,
			Group:   GroupRef{ID: e.GroupID, Name: names[e.GroupID]},
			Creator: models.LookupSummary(creators, e.CreatorID),
		}
	}
	return views, nil
}
