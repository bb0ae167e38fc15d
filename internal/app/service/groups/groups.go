// Package groups implements study group management: creating, browsing,
// joining, leaving, editing and deleting groups.
package groups

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GroupRepo is the group storage used by the service.
type GroupRepo interface {
	Create(ctx context.Context, g models.Group) (models.Group, error)
	GetSummary(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	List(ctx context.Context, f groupstore.ListFilter) ([]models.Group, error)
	UpdateInfo(ctx context.Context, id primitive.ObjectID, upd groupstore.InfoUpdate) (models.Group, error)
	AddMember(ctx context.Context, id, userID primitive.ObjectID) (models.Group, error)
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (models.Group, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Group, error)
}

// EventCascade removes a deleted group's events.
type EventCascade interface {
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// UserDirectory resolves user ids to public identities.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// GroupView is a group summary with its creator resolved. Members is only
// filled by GetGroup.
type GroupView struct {
	models.Group
	Creator        models.UserSummary   `json:"creator"`
	MemberCount    int                  `json:"member_count"`
	MemberProfiles []models.UserSummary `json:"member_profiles,omitempty"`
}

// CreateInput carries the fields of a new group.
type CreateInput struct {
	Name        string
	Description string
	Category    string
	Icon        string
}

// UpdateInput carries the fields to change; nil fields are left alone.
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *string
	Icon        *string
}

type Service struct {
	groups  GroupRepo
	events  EventCascade
	users   UserDirectory
	files   filestore.Deleter
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(groups GroupRepo, events EventCascade, users UserDirectory, files filestore.Deleter, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		groups: groups,
		events: events,
		users:  users,
		files:  files,
		log:    logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func checkName(v *inputval.Result, name string) {
	v.Check(name != "", "name", "name is required")
	v.Check(inputval.Len(name) <= inputval.GroupNameMax, "name", "name is too long")
}

func checkDescription(v *inputval.Result, desc string) {
	v.Check(desc != "", "description", "description is required")
	v.Check(inputval.Len(desc) <= inputval.GroupDescMax, "description", "description is too long")
}

func checkCategory(v *inputval.Result, category string) {
	v.Check(inputval.OneOf(category, models.GroupCategories), "category", "unknown category")
}

func checkIcon(v *inputval.Result, icon string) {
	v.Check(inputval.OneOf(icon, models.GroupIcons), "icon", "unknown icon")
}

// CreateGroup creates a group with userID as creator and only member.
func (s *Service) CreateGroup(ctx context.Context, userID primitive.ObjectID, in CreateInput) (GroupView, error) {
	if userID.IsZero() {
		return GroupView{}, apperr.Unauthenticatedf("sign in required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = htmlsanitize.Sanitize(strings.TrimSpace(in.Description))
	in.Category = strings.TrimSpace(in.Category)
	in.Icon = strings.TrimSpace(in.Icon)

	var v inputval.Result
	checkName(&v, in.Name)
	checkDescription(&v, in.Description)
	checkCategory(&v, in.Category)
	checkIcon(&v, in.Icon)
	if err := v.Err(); err != nil {
		return GroupView{}, err
	}

	now := s.now().UTC()
	g, err := s.groups.Create(ctx, models.Group{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Icon:        in.Icon,
		CreatorID:   userID,
		Members:     []primitive.ObjectID{userID},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return GroupView{}, apperr.Wrap(err, "create group")
	}
	return s.view(ctx, g, false)
}

// ListGroups returns every group, newest first, optionally restricted to
// one category.
func (s *Service) ListGroups(ctx context.Context, category string) ([]GroupView, error) {
	category = strings.TrimSpace(category)
	if category != "" && !inputval.OneOf(category, models.GroupCategories) {
		return nil, apperr.Invalidf("unknown category")
	}
	gs, err := s.groups.List(ctx, groupstore.ListFilter{Category: category})
	if err != nil {
		return nil, apperr.Wrap(err, "list groups")
	}
	return s.views(ctx, gs)
}

// ListMyGroups returns the groups userID belongs to, newest first.
func (s *Service) ListMyGroups(ctx context.Context, userID primitive.ObjectID) ([]GroupView, error) {
	if userID.IsZero() {
		return nil, apperr.Unauthenticatedf("sign in required")
	}
	gs, err := s.groups.List(ctx, groupstore.ListFilter{MemberID: userID})
	if err != nil {
		return nil, apperr.Wrap(err, "list groups")
	}
	return s.views(ctx, gs)
}

// GetGroup returns one group with its member identities.
func (s *Service) GetGroup(ctx context.Context, groupID primitive.ObjectID) (GroupView, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return GroupView{}, err
	}
	return s.view(ctx, g, true)
}

// UpdateGroup changes the group's descriptive fields. Creator only.
func (s *Service) UpdateGroup(ctx context.Context, groupID, userID primitive.ObjectID, in UpdateInput) (GroupView, error) {
	if userID.IsZero() {
		return GroupView{}, apperr.Unauthenticatedf("sign in required")
	}

	var (
		v   inputval.Result
		upd groupstore.InfoUpdate
	)
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		checkName(&v, name)
		upd.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.Sanitize(strings.TrimSpace(*in.Description))
		checkDescription(&v, desc)
		upd.Description = &desc
	}
	if in.Category != nil {
		cat := strings.TrimSpace(*in.Category)
		checkCategory(&v, cat)
		upd.Category = &cat
	}
	if in.Icon != nil {
		icon := strings.TrimSpace(*in.Icon)
		checkIcon(&v, icon)
		upd.Icon = &icon
	}
	if err := v.Err(); err != nil {
		return GroupView{}, err
	}

	g, err := s.load(ctx, groupID)
	if err != nil {
		return GroupView{}, err
	}
	if !grouppolicy.IsCreator(g, userID) {
		return GroupView{}, apperr.Forbiddenf("only the creator can edit this group")
	}

	updated, err := s.groups.UpdateInfo(ctx, groupID, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return GroupView{}, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return GroupView{}, apperr.Wrap(err, "update group")
	}
	return s.view(ctx, updated, true)
}

// JoinGroup adds userID to the group's members. Joining twice is a no-op.
func (s *Service) JoinGroup(ctx context.Context, groupID, userID primitive.ObjectID) (GroupView, error) {
	if userID.IsZero() {
		return GroupView{}, apperr.Unauthenticatedf("sign in required")
	}
	g, err := s.groups.AddMember(ctx, groupID, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return GroupView{}, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return GroupView{}, apperr.Wrap(err, "join group")
	}
	return s.view(ctx, g, true)
}

// LeaveGroup removes userID from the group's members. The creator cannot
// leave; they delete the group instead.
func (s *Service) LeaveGroup(ctx context.Context, groupID, userID primitive.ObjectID) (GroupView, error) {
	if userID.IsZero() {
		return GroupView{}, apperr.Unauthenticatedf("sign in required")
	}
	g, err := s.load(ctx, groupID)
	if err != nil {
		return GroupView{}, err
	}
	if grouppolicy.IsCreator(g, userID) {
		return GroupView{}, apperr.Forbiddenf("creator must delete the group")
	}
	if !grouppolicy.IsMember(g, userID) {
		return GroupView{}, apperr.Invalidf("you are not a member of this group")
	}

	updated, err := s.groups.RemoveMember(ctx, groupID, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return GroupView{}, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return GroupView{}, apperr.Wrap(err, "leave group")
	}
	return s.view(ctx, updated, true)
}

// DeleteGroup removes the group, the files attached to its messages and
// its events. Creator only. File and event cleanup failures are logged.
func (s *Service) DeleteGroup(ctx context.Context, groupID, userID primitive.ObjectID) error {
	if userID.IsZero() {
		return apperr.Unauthenticatedf("sign in required")
	}
	g, err := s.load(ctx, groupID)
	if err != nil {
		return err
	}
	if !grouppolicy.IsCreator(g, userID) {
		return apperr.Forbiddenf("only the creator can delete this group")
	}

	deleted, err := s.groups.Delete(ctx, groupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("group not found")
	}
	if err != nil {
		return apperr.Wrap(err, "delete group")
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
	defer cancel()

	var atts []models.Attachment
	for _, m := range deleted.Messages {
		atts = append(atts, m.Attachments...)
	}
	if len(atts) > 0 {
		filestore.DeleteAttachments(cleanupCtx, s.files, atts, s.log, s.metrics.AttachmentDeleteFailed)
	}

	if n, err := s.events.DeleteByGroup(cleanupCtx, groupID); err != nil {
		s.log.Warn("group events cleanup failed",
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
	} else if n > 0 {
		s.log.Info("group events removed",
			zap.String("group_id", groupID.Hex()),
			zap.Int64("count", n))
	}
	return nil
}

func (s *Service) load(ctx context.Context, groupID primitive.ObjectID) (models.Group, error) {
	g, err := s.groups.GetSummary(ctx, groupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return models.Group{}, apperr.Wrap(err, "load group")
	}
	return g, nil
}

func (s *Service) view(ctx context.Context, g models.Group, withMembers bool) (GroupView, error) {
	ids := []primitive.ObjectID{g.CreatorID}
	if withMembers {
		ids = append(ids, g.Members...)
	}
	people, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return GroupView{}, apperr.Wrap(err, "resolve members")
	}
	g.Messages = nil
	v := GroupView{
		Group:       g,
		Creator:     models.LookupSummary(people, g.CreatorID),
		MemberCount: len(g.Members),
	}
	if withMembers {
		v.MemberProfiles = make([]models.UserSummary, len(g.Members))
		for i, id := range g.Members {
			v.MemberProfiles[i] = models.LookupSummary(people, id)
		}
	}
	return v, nil
}

func (s *Service) views(ctx context.Context, gs []models.Group) ([]GroupView, error) {
	ids := make([]primitive.ObjectID, len(gs))
	for i, g := range gs {
		ids[i] = g.CreatorID
	}
	creators, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, "resolve creators")
	}
	out := make([]GroupView, len(gs))
	for i, g := range gs {
		g.Messages = nil
		out[i] = GroupView{
			Group:       g,
			Creator:     models.LookupSummary(creators, g.CreatorID),
			MemberCount: len(g.Members),
		}
	}
	return out, nil
}
