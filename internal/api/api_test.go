package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bloghub.com/internal/auth"
	"bloghub.com/internal/config"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/infra"
	"bloghub.com/internal/model"
	"bloghub.com/internal/repository"
	"bloghub.com/internal/service"
	"bloghub.com/internal/testutil"
)

type testApp struct {
	app    *fiber.App
	users  *service.UserServiceImpl
	posts  *service.BlogPostServiceImpl
	tokens *auth.TokenManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.TestDB(t)

	cfg := &config.Config{
		Server:     config.ServerConfig{AppName: "bloghub-test"},
		Auth:       config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, LoginRateLimit: 1000},
		Pagination: config.PaginationConfig{DefaultSize: 10, MaxSize: 50},
	}

	userRepo := repository.NewUserRepo(db)
	postRepo := repository.NewBlogPostRepo(db)
	users := service.NewUserService(userRepo, postRepo, auth.NewPasswordHasher(bcrypt.MinCost), nil)
	posts := service.NewBlogPostService(postRepo, cfg.Pagination, nil)

	enforcer, err := auth.InitCasbin(db)
	require.NoError(t, err)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	app := NewServer(cfg)
	NewRouter(app, Deps{
		Config:   cfg,
		Users:    users,
		Posts:    posts,
		Tokens:   tokens,
		Revoked:  infra.NewMemoryTokenStore(),
		Enforcer: enforcer,
		Feed:     infra.NewFeedHub(),
	}).RegisterRoutes()

	return &testApp{app: app, users: users, posts: posts, tokens: tokens}
}

func (a *testApp) user(t *testing.T, username string, role model.Role) (*model.User, string) {
	t.Helper()
	u, err := a.users.CreateUser(context.Background(), domain.UserInput{
		Username: username,
		Password: "secret123",
		Role:     role,
	})
	require.NoError(t, err)

	token, _, err := a.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) post(t *testing.T, author *model.User, title string, published bool) *model.BlogPost {
	t.Helper()
	p, err := a.posts.CreateBlogPost(context.Background(), domain.PostInput{
		Title:     title,
		Content:   "<p>about " + title + "</p>",
		Published: published,
	}, author)
	require.NoError(t, err)
	return p
}

// do sends a request with an optional JSON body and bearer token and decodes the JSON response.
func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestHealthAndLanding(t *testing.T) {
	a := newTestApp(t)
	alice, _ := a.user(t, "alice", model.RoleUser)
	a.post(t, alice, "hello", true)
	a.post(t, alice, "secret", false)

	status, body := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["Status"])

	for _, path := range []string{"/", "/home"} {
		status, body = a.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "bloghub-test", body["AppName"])
		assert.EqualValues(t, 1, body["PublishedPosts"])
	}
}

func TestBlogList_PaginationAndSearch(t *testing.T) {
	a := newTestApp(t)
	alice, _ := a.user(t, "alice", model.RoleUser)
	for i := 0; i < 3; i++ {
		a.post(t, alice, fmt.Sprintf("Go %d", i), true)
	}
	a.post(t, alice, "Rust", true)
	a.post(t, alice, "Go draft", false)

	status, body := a.do(t, http.MethodGet, "/blog?page=0&size=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	pagination := body["Pagination"].(map[string]any)
	assert.EqualValues(t, 4, pagination["Total"])
	assert.EqualValues(t, 2, pagination["TotalPage"])
	assert.Len(t, body["Data"], 2)

	status, body = a.do(t, http.MethodGet, "/blog?search=Go&size=abc", "", nil)
	require.Equal(t, http.StatusOK, status)
	pagination = body["Pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["Total"])
	assert.EqualValues(t, 10, pagination["PageSize"])
	assert.Equal(t, "Go", body["Search"])

	first := body["Data"].([]any)[0].(map[string]any)
	assert.Equal(t, "alice", first["Author"])
	assert.NotContains(t, first["Excerpt"], "<p>")

	status, body = a.do(t, http.MethodGet, "/blog?size=1000", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50, body["Pagination"].(map[string]any)["PageSize"])
}

func TestBlogDetail(t *testing.T) {
	a := newTestApp(t)
	alice, _ := a.user(t, "alice", model.RoleUser)
	live := a.post(t, alice, "live", true)
	draft := a.post(t, alice, "draft", false)

	status, body := a.do(t, http.MethodGet, fmt.Sprintf("/blog/%d", live.ID), "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "live", body["title"])

	status, _ = a.do(t, http.MethodGet, fmt.Sprintf("/blog/%d", draft.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodGet, "/blog/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodGet, "/blog/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuth_RegisterLoginLogout(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "newbie",
		"password": "secret123",
		"role":     "ADMIN",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "USER", body["User"].(map[string]any)["role"])
	assert.NotContains(t, body["User"], "password_hash")

	status, _ = a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "newbie",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "newbie", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "newbie", Password: "secret123"})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["Token"].(string)
	require.NotEmpty(t, token)

	status, body = a.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "newbie", body["username"])

	status, _ = a.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	// 注销后的令牌失效
	status, _ = a.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAccessControl(t *testing.T) {
	a := newTestApp(t)
	_, userToken := a.user(t, "alice", model.RoleUser)
	_, adminToken := a.user(t, "root", model.RoleAdmin)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"anonymous user area", "/user/dashboard", "", http.StatusUnauthorized},
		{"garbage token", "/user/dashboard", "not-a-jwt", http.StatusUnauthorized},
		{"user on user area", "/user/dashboard", userToken, http.StatusOK},
		{"user on admin area", "/admin/dashboard", userToken, http.StatusForbidden},
		{"admin on admin area", "/admin/dashboard", adminToken, http.StatusOK},
		{"admin inherits user area", "/user/dashboard", adminToken, http.StatusOK},
		{"anonymous admin area", "/admin/users", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := a.do(t, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestAccessControl_DeletedAccount(t *testing.T) {
	a := newTestApp(t)
	u, token := a.user(t, "ghost", model.RoleUser)
	require.NoError(t, a.users.DeleteUser(context.Background(), u.ID))

	status, _ := a.do(t, http.MethodGet, "/user/dashboard", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUserPosts_Lifecycle(t *testing.T) {
	a := newTestApp(t)
	_, token := a.user(t, "alice", model.RoleUser)

	status, body := a.do(t, http.MethodGet, "/user/posts/new", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Post")

	status, body = a.do(t, http.MethodPost, "/user/posts", token, domain.PostInput{Title: "first", Content: "hello"})
	require.Equal(t, http.StatusCreated, status)
	id := uint(body["id"].(float64))

	status, _ = a.do(t, http.MethodPost, "/user/posts", token, domain.PostInput{Title: ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(t, http.MethodGet, fmt.Sprintf("/user/posts/%d/edit", id), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "first", body["Post"].(map[string]any)["title"])

	status, body = a.do(t, http.MethodPost, fmt.Sprintf("/user/posts/%d", id), token,
		domain.PostInput{Title: "first (edited)", Content: "hello", Published: true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["published"])

	status, body = a.do(t, http.MethodGet, "/user/posts?search=edited", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["Data"], 1)

	status, body = a.do(t, http.MethodGet, "/user/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["TotalPosts"])
	assert.EqualValues(t, 1, body["PublishedPosts"])

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/user/posts/%d/delete", id), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = a.do(t, http.MethodGet, fmt.Sprintf("/user/posts/%d/edit", id), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUserPosts_OwnershipEnforced(t *testing.T) {
	a := newTestApp(t)
	alice, _ := a.user(t, "alice", model.RoleUser)
	_, bobToken := a.user(t, "bob", model.RoleUser)
	_, adminToken := a.user(t, "root", model.RoleAdmin)
	p := a.post(t, alice, "alice's", true)

	status, _ := a.do(t, http.MethodGet, fmt.Sprintf("/user/posts/%d/edit", p.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/user/posts/%d", p.ID), bobToken, domain.PostInput{Title: "hijacked"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/user/posts/%d/delete", p.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// 数据未被修改
	stored, err := a.posts.GetBlogPostByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice's", stored.Title)

	// 管理员可以通过用户路径编辑任何文章
	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/user/posts/%d", p.ID), adminToken,
		domain.PostInput{Title: "moderated", Published: true})
	assert.Equal(t, http.StatusOK, status)

	stored, err = a.posts.GetBlogPostByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderated", stored.Title)
	assert.Equal(t, alice.ID, stored.AuthorID)
}

func TestUserProfile(t *testing.T) {
	a := newTestApp(t)
	_, token := a.user(t, "alice", model.RoleUser)

	status, body := a.do(t, http.MethodGet, "/user/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["User"].(map[string]any)["username"])

	status, body = a.do(t, http.MethodPost, "/user/profile", token, map[string]any{
		"first_name": "Alice",
		"email":      "alice@example.com",
		"role":       "ADMIN",
	})
	require.Equal(t, http.StatusOK, status)
	user := body["User"].(map[string]any)
	assert.Equal(t, "Alice", user["first_name"])
	assert.Equal(t, "USER", user["role"])
}

func TestAdmin_Users(t *testing.T) {
	a := newTestApp(t)
	admin, token := a.user(t, "root", model.RoleAdmin)

	status, body := a.do(t, http.MethodPost, "/admin/users", token, map[string]any{
		"username": "editor",
		"password": "secret123",
		"role":     "ADMIN",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ADMIN", body["role"])
	editorID := uint(body["id"].(float64))

	status, body = a.do(t, http.MethodGet, "/admin/users", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["Data"], 2)

	status, body = a.do(t, http.MethodPost, fmt.Sprintf("/admin/users/%d", editorID), token, map[string]any{
		"role": "USER",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "USER", body["role"])

	status, _ = a.do(t, http.MethodGet, fmt.Sprintf("/admin/users/%d/edit", editorID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/admin/users/%d/delete", admin.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/admin/users/%d/delete", editorID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(t, http.MethodGet, fmt.Sprintf("/admin/users/%d/edit", editorID), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdmin_DeleteUserWithPosts(t *testing.T) {
	a := newTestApp(t)
	_, token := a.user(t, "root", model.RoleAdmin)
	alice, _ := a.user(t, "alice", model.RoleUser)
	a.post(t, alice, "keep me", true)

	status, _ := a.do(t, http.MethodPost, fmt.Sprintf("/admin/users/%d/delete", alice.ID), token, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAdmin_Posts(t *testing.T) {
	a := newTestApp(t)
	_, token := a.user(t, "root", model.RoleAdmin)
	alice, _ := a.user(t, "alice", model.RoleUser)

	status, body := a.do(t, http.MethodGet, "/admin/posts/new", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["Authors"], 2)

	// 必须显式指定作者
	status, _ = a.do(t, http.MethodPost, "/admin/posts", token, map[string]any{"title": "orphan"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodPost, "/admin/posts", token, map[string]any{"title": "ghost", "author_id": 999})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(t, http.MethodPost, "/admin/posts", token, map[string]any{
		"title":     "by admin for alice",
		"content":   "body",
		"published": true,
		"author_id": alice.ID,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, alice.ID, body["author_id"])
	id := uint(body["id"].(float64))

	status, body = a.do(t, http.MethodPost, fmt.Sprintf("/admin/posts/%d", id), token, domain.PostInput{Title: "retitled"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "retitled", body["title"])
	assert.Equal(t, false, body["published"])

	status, body = a.do(t, http.MethodGet, "/admin/posts", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["Data"], 1)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/admin/posts/%d/delete", id), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/admin/posts/%d/delete", id), token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = a.do(t, http.MethodGet, "/admin/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["TotalUsers"])
	assert.EqualValues(t, 0, body["TotalPosts"])
}

func TestFeed_RequiresUpgrade(t *testing.T) {
	a := newTestApp(t)

	status, _ := a.do(t, http.MethodGet, "/ws/feed", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}
