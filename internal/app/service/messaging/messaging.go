// Package messaging implements group discussion boards: posting, listing
// and deleting messages with file attachments.
//
// Posting and listing require group membership. Deleting requires being
// the message's author; membership alone is not enough.
package messaging

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GroupRepo is the group storage used by messaging.
type GroupRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	GetSummary(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	AppendMessage(ctx context.Context, groupID primitive.ObjectID, m models.Message) error
	RemoveMessage(ctx context.Context, groupID, messageID primitive.ObjectID) (models.Group, error)
}

// UserDirectory resolves user ids to public identities.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// MessageView is a message with its author resolved.
type MessageView struct {
	models.Message
	Author models.UserSummary `json:"author"`
}

// Board is a group together with its remaining messages, oldest first.
type Board struct {
	Group    models.Group  `json:"group"`
	Messages []MessageView `json:"messages"`
}

type Service struct {
	groups  GroupRepo
	users   UserDirectory
	files   filestore.Deleter
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records attachment delete failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(groups GroupRepo, users UserDirectory, files filestore.Deleter, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		groups: groups,
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

// PostMessage appends a message by userID to the group's board.
func (s *Service) PostMessage(ctx context.Context, groupID, userID primitive.ObjectID, body MessageBody) (MessageView, error) {
	if userID.IsZero() {
		return MessageView{}, apperr.Unauthenticatedf("sign in required")
	}
	if body.Kind() == 0 {
		return MessageView{}, apperr.Invalidf("message must have text or at least one file")
	}

	g, err := s.groups.GetSummary(ctx, groupID)
	if err != nil {
		return MessageView{}, groupErr(err)
	}
	if !grouppolicy.IsMember(g, userID) {
		return MessageView{}, apperr.Forbiddenf("you are not a member of this group")
	}

	m := models.Message{
		ID:          primitive.NewObjectID(),
		AuthorID:    userID,
		Content:     body.Text(),
		Attachments: body.Files(),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.groups.AppendMessage(ctx, groupID, m); err != nil {
		return MessageView{}, groupErr(err)
	}

	views, err := s.resolve(ctx, []models.Message{m})
	if err != nil {
		return MessageView{}, err
	}
	return views[0], nil
}

// ListMessages returns the group's messages ordered by creation time,
// oldest first.
func (s *Service) ListMessages(ctx context.Context, groupID, userID primitive.ObjectID) ([]MessageView, error) {
	if userID.IsZero() {
		return nil, apperr.Unauthenticatedf("sign in required")
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, groupErr(err)
	}
	if !grouppolicy.IsMember(g, userID) {
		return nil, apperr.Forbiddenf("you are not a member of this group")
	}
	return s.resolve(ctx, g.Messages)
}

// DeleteMessage removes a message authored by userID and then deletes its
// attachment files. File deletion is best-effort: failures are logged and
// counted but do not fail the call.
func (s *Service) DeleteMessage(ctx context.Context, groupID, messageID, userID primitive.ObjectID) (Board, error) {
	if userID.IsZero() {
		return Board{}, apperr.Unauthenticatedf("sign in required")
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return Board{}, groupErr(err)
	}
	msg, ok := findMessage(g.Messages, messageID)
	if !ok {
		return Board{}, apperr.NotFoundf("message not found")
	}
	if !grouppolicy.CanDeleteMessage(msg, userID) {
		return Board{}, apperr.Forbiddenf("only the author can delete this message")
	}

	updated, err := s.groups.RemoveMessage(ctx, groupID, messageID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Board{}, apperr.NotFoundf("message not found")
	}
	if err != nil {
		return Board{}, apperr.Wrap(err, "delete message")
	}

	if len(msg.Attachments) > 0 {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
		filestore.DeleteAttachments(cleanupCtx, s.files, msg.Attachments, s.log, s.metrics.AttachmentDeleteFailed)
		cancel()
	}

	views, err := s.resolve(ctx, updated.Messages)
	if err != nil {
		return Board{}, err
	}
	updated.Messages = nil
	return Board{Group: updated, Messages: views}, nil
}

// resolve sorts msgs oldest first and attaches author identities.
func (s *Service) resolve(ctx context.Context, msgs []models.Message) ([]MessageView, error) {
	sorted := make([]models.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	ids := make([]primitive.ObjectID, 0, len(sorted))
	for _, m := range sorted {
		ids = append(ids, m.AuthorID)
	}
	authors, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, "resolve authors")
	}

	views := make([]MessageView, len(sorted))
	for i, m := range sorted {
		views[i] = MessageView{Message: m, Author: models.LookupSummary(authors, m.AuthorID)}
	}
	return views, nil
}

func findMessage(msgs []models.Message, id primitive.ObjectID) (models.Message, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

func groupErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("group not found")
	}
	return apperr.Wrap(err, "load group")
}
