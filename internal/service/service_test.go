package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bloghub.com/internal/auth"
	"bloghub.com/internal/config"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/event"
	"bloghub.com/internal/model"
	"bloghub.com/internal/repository"
	"bloghub.com/internal/testutil"
)

// recorder captures published events in order.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(evt event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	users  *UserServiceImpl
	posts  *BlogPostServiceImpl
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.TestDB(t)
	userRepo := repository.NewUserRepo(db)
	postRepo := repository.NewBlogPostRepo(db)
	rec := &recorder{}

	return &fixture{
		users:  NewUserService(userRepo, postRepo, auth.NewPasswordHasher(bcrypt.MinCost), rec),
		posts:  NewBlogPostService(postRepo, config.PaginationConfig{DefaultSize: 10, MaxSize: 50}, rec),
		events: rec,
	}
}

func (f *fixture) user(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), domain.UserInput{
		Username: username,
		Password: "secret123",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, author *model.User, title string, published bool) *model.BlogPost {
	t.Helper()
	p, err := f.posts.CreateBlogPost(context.Background(), domain.PostInput{
		Title:     title,
		Content:   "content of " + title,
		Published: published,
	}, author)
	require.NoError(t, err)
	return p
}
