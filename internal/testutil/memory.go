package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// The Mem* types are in-memory stand-ins for the Mongo stores. They mirror
// the stores' method sets and error conventions (mongo.ErrNoDocuments for
// missing documents) and are safe for concurrent use.

/*─────────────────────────────────────────────────────────────────────────────*
| Users                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type MemUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.User
}

func NewMemUsers() *MemUsers {
	return &MemUsers{byID: map[primitive.ObjectID]models.User{}}
}

// Add stores a user with the given username and returns it.
func (m *MemUsers) Add(username string) models.User {
	u, err := m.Create(context.Background(), models.User{
		Username: username,
		Email:    strings.ToLower(username) + "@example.com",
	})
	if err != nil {
		panic(err)
	}
	return u
}

func (m *MemUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.UsernameCI = text.Fold(u.Username)
	u.EmailCI = userstore.FoldEmail(u.Email)
	for _, other := range m.byID {
		if other.UsernameCI == u.UsernameCI {
			return models.User{}, userstore.ErrDuplicateUsername
		}
		if other.EmailCI == u.EmailCI {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return u, nil
}

func (m *MemUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

func (m *MemUsers) GetByLogin(_ context.Context, login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	login = strings.TrimSpace(login)
	for _, u := range m.byID {
		if u.UsernameCI == text.Fold(login) || u.EmailCI == userstore.FoldEmail(login) {
			return &u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *MemUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, upd userstore.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if upd.Username != nil {
		ci := text.Fold(*upd.Username)
		for oid, other := range m.byID {
			if oid != id && other.UsernameCI == ci {
				return nil, userstore.ErrDuplicateUsername
			}
		}
		u.Username, u.UsernameCI = *upd.Username, ci
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = *upd.ProfilePicture
	}
	u.UpdatedAt = time.Now().UTC()
	m.byID[id] = u
	return &u, nil
}

func (m *MemUsers) Summaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Groups                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type MemGroups struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Group
}

func NewMemGroups() *MemGroups {
	return &MemGroups{byID: map[primitive.ObjectID]models.Group{}}
}

// Add stores a group created by creator plus any extra members.
func (m *MemGroups) Add(name string, creator primitive.ObjectID, members ...primitive.ObjectID) models.Group {
	g, _ := m.Create(context.Background(), models.Group{
		Name:        name,
		Description: name + " group",
		Category:    models.CategoryScience,
		Icon:        models.GroupIcons[0],
		CreatorID:   creator,
		Members:     append([]primitive.ObjectID{creator}, members...),
	})
	return g
}

func cloneGroup(g models.Group, withMessages bool) models.Group {
	g.Members = append([]primitive.ObjectID{}, g.Members...)
	if withMessages {
		g.Messages = append([]models.Message(nil), g.Messages...)
	} else {
		g.Messages = nil
	}
	return g
}

func (m *MemGroups) Create(_ context.Context, g models.Group) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.Members == nil {
		g.Members = []primitive.ObjectID{}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.UpdatedAt = g.CreatedAt
	m.byID[g.ID] = cloneGroup(g, true)
	return g, nil
}

func (m *MemGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return cloneGroup(g, true), nil
}

func (m *MemGroups) GetSummary(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return cloneGroup(g, false), nil
}

func (m *MemGroups) List(_ context.Context, f groupstore.ListFilter) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Group{}
	for _, g := range m.byID {
		if f.Category != "" && g.Category != f.Category {
			continue
		}
		if !f.MemberID.IsZero() && !containsID(g.Members, f.MemberID) {
			continue
		}
		out = append(out, cloneGroup(g, false))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemGroups) UpdateInfo(_ context.Context, id primitive.ObjectID, upd groupstore.InfoUpdate) (models.Group, error) {
	return m.mutate(id, func(g *models.Group) bool {
		if upd.Name != nil {
			g.Name, g.NameCI = *upd.Name, text.Fold(*upd.Name)
		}
		if upd.Description != nil {
			g.Description = *upd.Description
		}
		if upd.Category != nil {
			g.Category = *upd.Category
		}
		if upd.Icon != nil {
			g.Icon = *upd.Icon
		}
		g.UpdatedAt = time.Now().UTC()
		return true
	})
}

func (m *MemGroups) AddMember(_ context.Context, id, userID primitive.ObjectID) (models.Group, error) {
	return m.mutate(id, func(g *models.Group) bool {
		if !containsID(g.Members, userID) {
			g.Members = append(g.Members, userID)
		}
		return true
	})
}

func (m *MemGroups) RemoveMember(_ context.Context, id, userID primitive.ObjectID) (models.Group, error) {
	return m.mutate(id, func(g *models.Group) bool {
		if g.CreatorID == userID {
			return false
		}
		kept := g.Members[:0]
		for _, mid := range g.Members {
			if mid != userID {
				kept = append(kept, mid)
			}
		}
		g.Members = kept
		return true
	})
}

func (m *MemGroups) AppendMessage(_ context.Context, groupID primitive.ObjectID, msg models.Message) error {
	_, err := m.mutate(groupID, func(g *models.Group) bool {
		g.Messages = append(g.Messages, msg)
		return true
	})
	return err
}

func (m *MemGroups) RemoveMessage(_ context.Context, groupID, messageID primitive.ObjectID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[groupID]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	g = cloneGroup(g, true)
	for i, msg := range g.Messages {
		if msg.ID == messageID {
			g.Messages = append(g.Messages[:i], g.Messages[i+1:]...)
			m.byID[groupID] = g
			return cloneGroup(g, true), nil
		}
	}
	return models.Group{}, mongo.ErrNoDocuments
}

func (m *MemGroups) Delete(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	delete(m.byID, id)
	return g, nil
}

// mutate applies fn to a copy of the group; fn returning false means the
// filter did not match.
func (m *MemGroups) mutate(id primitive.ObjectID, fn func(*models.Group) bool) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	g = cloneGroup(g, true)
	if !fn(&g) {
		return models.Group{}, mongo.ErrNoDocuments
	}
	m.byID[id] = g
	return cloneGroup(g, false), nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

/*─────────────────────────────────────────────────────────────────────────────*
| Events                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type MemEvents struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Event

	// FailDeleteExpired, when set, is returned by the expiry deletes.
	FailDeleteExpired error
}

func NewMemEvents() *MemEvents {
	return &MemEvents{byID: map[primitive.ObjectID]models.Event{}}
}

func (m *MemEvents) Create(_ context.Context, e models.Event) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.byID[e.ID] = e
	return e, nil
}

func (m *MemEvents) GetByID(_ context.Context, id primitive.ObjectID) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return models.Event{}, mongo.ErrNoDocuments
	}
	return e, nil
}

func (m *MemEvents) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return 0, nil
	}
	delete(m.byID, id)
	return 1, nil
}

func (m *MemEvents) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return m.deleteWhere(func(e models.Event) bool { return e.ExpiredAt(now) })
}

func (m *MemEvents) DeleteExpiredInGroups(_ context.Context, now time.Time, groupIDs []primitive.ObjectID) (int64, error) {
	return m.deleteWhere(func(e models.Event) bool {
		return e.ExpiredAt(now) && containsID(groupIDs, e.GroupID)
	})
}

func (m *MemEvents) deleteWhere(match func(models.Event) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeleteExpired != nil {
		return 0, m.FailDeleteExpired
	}
	var n int64
	for id, e := range m.byID {
		if match(e) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *MemEvents) ListByGroups(_ context.Context, groupIDs []primitive.ObjectID) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, e := range m.byID {
		if containsID(groupIDs, e.GroupID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (m *MemEvents) DeleteByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	return m.deleteWhereUnchecked(func(e models.Event) bool { return e.GroupID == groupID })
}

func (m *MemEvents) deleteWhereUnchecked(match func(models.Event) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.byID {
		if match(e) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored events.
func (m *MemEvents) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Posts                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type MemPosts struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Post
}

func NewMemPosts() *MemPosts {
	return &MemPosts{byID: map[primitive.ObjectID]models.Post{}}
}

func clonePost(p models.Post) models.Post {
	p.Likes = append([]primitive.ObjectID{}, p.Likes...)
	comments := make([]models.Comment, len(p.Comments))
	for i, c := range p.Comments {
		c.Likes = append([]primitive.ObjectID{}, c.Likes...)
		comments[i] = c
	}
	p.Comments = comments
	return p
}

func (m *MemPosts) Create(_ context.Context, p models.Post) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	p = clonePost(p)
	m.byID[p.ID] = p
	return clonePost(p), nil
}

func (m *MemPosts) GetByID(_ context.Context, id primitive.ObjectID) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return models.Post{}, mongo.ErrNoDocuments
	}
	return clonePost(p), nil
}

func (m *MemPosts) List(_ context.Context, limit int64) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Post{}
	for _, p := range m.byID {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemPosts) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return 0, nil
	}
	delete(m.byID, id)
	return 1, nil
}

func (m *MemPosts) ToggleLike(_ context.Context, postID, userID primitive.ObjectID) (models.Post, error) {
	return m.mutate(postID, func(p *models.Post) bool {
		p.Likes = toggleID(p.Likes, userID)
		return true
	})
}

func (m *MemPosts) AddComment(_ context.Context, postID primitive.ObjectID, c models.Comment) (models.Post, error) {
	return m.mutate(postID, func(p *models.Post) bool {
		if c.Likes == nil {
			c.Likes = []primitive.ObjectID{}
		}
		p.Comments = append(p.Comments, c)
		p.UpdatedAt = time.Now().UTC()
		return true
	})
}

func (m *MemPosts) RemoveComment(_ context.Context, postID, commentID primitive.ObjectID) (models.Post, error) {
	return m.mutate(postID, func(p *models.Post) bool {
		for i, c := range p.Comments {
			if c.ID == commentID {
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (m *MemPosts) ToggleCommentLike(_ context.Context, postID, commentID, userID primitive.ObjectID) (models.Post, error) {
	return m.mutate(postID, func(p *models.Post) bool {
		for i := range p.Comments {
			if p.Comments[i].ID == commentID {
				p.Comments[i].Likes = toggleID(p.Comments[i].Likes, userID)
				return true
			}
		}
		return false
	})
}

func (m *MemPosts) mutate(id primitive.ObjectID, fn func(*models.Post) bool) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return models.Post{}, mongo.ErrNoDocuments
	}
	p = clonePost(p)
	if !fn(&p) {
		return models.Post{}, mongo.ErrNoDocuments
	}
	m.byID[id] = p
	return clonePost(p), nil
}

func toggleID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return append(ids, id)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Files                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// MemFiles is an in-memory file store. URLs look like mem://<n>/<name>.
type MemFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int

	// FailDelete makes Delete fail for these URLs.
	FailDelete map[string]bool
	// Deleted records every URL passed to Delete, in order.
	Deleted []string
}

func NewMemFiles() *MemFiles {
	return &MemFiles{files: map[string][]byte{}, FailDelete: map[string]bool{}}
}

func (m *MemFiles) Put(_ context.Context, filename string, r io.Reader, _ int64, _ string) (models.Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Attachment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	url := fmt.Sprintf("mem://%d/%s", m.seq, filename)
	m.files[url] = data
	return models.Attachment{URL: url, Name: filename}, nil
}

// Seed stores a file directly and returns its attachment.
func (m *MemFiles) Seed(filename string) models.Attachment {
	a, _ := m.Put(context.Background(), filename, strings.NewReader(filename), 0, "")
	return a
}

func (m *MemFiles) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, url)
	if m.FailDelete[url] {
		return errors.New("simulated delete failure")
	}
	delete(m.files, url)
	return nil
}

// Exists reports whether url is still stored.
func (m *MemFiles) Exists(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[url]
	return ok
}

// Len returns the number of stored files.
func (m *MemFiles) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}
