package feed_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/service/feed"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	svc   *feed.Service
	posts *testutil.MemPosts
	users *testutil.MemUsers
	clock *testutil.Clock
}

func newEnv(t *testing.T, opts ...feed.Option) *env {
	t.Helper()
	e := &env{
		posts: testutil.NewMemPosts(),
		users: testutil.NewMemUsers(),
		clock: testutil.NewClock(time.Date(2025, 4, 1, 15, 0, 0, 0, time.UTC)),
	}
	opts = append([]feed.Option{feed.WithClock(e.clock.Now)}, opts...)
	e.svc = feed.New(e.posts, e.users, zap.NewNop(), opts...)
	return e
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

func TestCreatePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.users.Add("ada")

	p, err := e.svc.CreatePost(ctx, ada.ID, `Finished the <em>proof</em><script>x()</script>`)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if strings.Contains(p.Content, "script") || !strings.Contains(p.Content, "<em>proof</em>") {
		t.Errorf("content = %q", p.Content)
	}
	if p.Author.Username != "ada" || p.LikeCount != 0 || len(p.Comments) != 0 {
		t.Errorf("post view = %+v", p)
	}

	_, err = e.svc.CreatePost(ctx, ada.ID, "   ")
	wantKind(t, err, apperr.InvalidArgument)
	_, err = e.svc.CreatePost(ctx, ada.ID, "<script>only</script>")
	wantKind(t, err, apperr.InvalidArgument)
	_, err = e.svc.CreatePost(ctx, ada.ID, strings.Repeat("p", 1001))
	wantKind(t, err, apperr.InvalidArgument)
	_, err = e.svc.CreatePost(ctx, primitive.NilObjectID, "hi")
	wantKind(t, err, apperr.Unauthenticated)
}

func TestListPosts_NewestFirstWithLimit(t *testing.T) {
	e := newEnv(t, feed.WithListLimit(2))
	ctx := context.Background()
	ada := e.users.Add("ada")

	for _, c := range []string{"first", "second", "third"} {
		if _, err := e.svc.CreatePost(ctx, ada.ID, c); err != nil {
			t.Fatal(err)
		}
		e.clock.Advance(time.Minute)
	}

	got, err := e.svc.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(got) != 2 || got[0].Content != "third" || got[1].Content != "second" {
		t.Fatalf("posts = %+v", got)
	}
}

func TestDeletePost_AuthorOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.users.Add("ada")
	grace := e.users.Add("grace")
	p, _ := e.svc.CreatePost(ctx, ada.ID, "mine")

	wantKind(t, e.svc.DeletePost(ctx, p.ID, grace.ID), apperr.Forbidden)
	if err := e.svc.DeletePost(ctx, p.ID, ada.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	wantKind(t, e.svc.DeletePost(ctx, p.ID, ada.ID), apperr.NotFound)
}

func TestToggleLike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.users.Add("ada")
	grace := e.users.Add("grace")
	p, _ := e.svc.CreatePost(ctx, ada.ID, "like me")

	v, err := e.svc.ToggleLike(ctx, p.ID, grace.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if v.LikeCount != 1 || v.Likes[0] != grace.ID {
		t.Fatalf("after like: %+v", v.Likes)
	}
	v, err = e.svc.ToggleLike(ctx, p.ID, grace.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if v.LikeCount != 0 {
		t.Fatalf("after unlike: %+v", v.Likes)
	}

	_, err = e.svc.ToggleLike(ctx, primitive.NewObjectID(), grace.ID)
	wantKind(t, err, apperr.NotFound)
}

func TestToggleLike_ConcurrentUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.users.Add("ada")
	p, _ := e.svc.CreatePost(ctx, ada.ID, "popular")

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		u := e.users.Add("user" + string(rune('a'+i)))
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			if _, err := e.svc.ToggleLike(ctx, p.ID, id); err != nil {
				t.Errorf("ToggleLike: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	got, _ := e.posts.GetByID(ctx, p.ID)
	if len(got.Likes) != n {
		t.Fatalf("likes = %d, want %d", len(got.Likes), n)
	}
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.users.Add("ada")
	grace := e.users.Add("grace")
	p, _ := e.svc.CreatePost(ctx, ada.ID, "thoughts?")

	_, err := e.svc.AddComment(ctx, p.ID, grace.ID, strings.Repeat("c", 501))
	wantKind(t, err, apperr.InvalidArgument)
	_, err = e.svc.AddComment(ctx, primitive.NewObjectID(), grace.ID, "hello")
	wantKind(t, err, apperr.NotFound)

	v, err := e.svc.AddComment(ctx, p.ID, grace.ID, "agreed")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if len(v.Comments) != 1 || v.Comments[0].Author.Username != "grace" {
		t.Fatalf("comments = %+v", v.Comments)
	}
	cid := v.Comments[0].ID

	v, err = e.svc.ToggleCommentLike(ctx, p.ID, cid, ada.ID)
	if err != nil {
		t.Fatalf("ToggleCommentLike: %v", err)
	}
	if v.Comments[0].LikeCount != 1 {
		t.Fatalf("comment likes = %d", v.Comments[0].LikeCount)
	}
	_, err = e.svc.ToggleCommentLike(ctx, p.ID, primitive.NewObjectID(), ada.ID)
	wantKind(t, err, apperr.NotFound)

	// The post author cannot remove someone else's comment.
	_, err = e.svc.DeleteComment(ctx, p.ID, cid, ada.ID)
	wantKind(t, err, apperr.Forbidden)

	v, err = e.svc.DeleteComment(ctx, p.ID, cid, grace.ID)
	if err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if len(v.Comments) != 0 {
		t.Fatalf("comments after delete = %+v", v.Comments)
	}
	_, err = e.svc.DeleteComment(ctx, p.ID, cid, grace.ID)
	wantKind(t, err, apperr.NotFound)
}
