package api

import (
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"bloghub.com/internal/api/middleware"
	"bloghub.com/internal/auth"
	"bloghub.com/internal/config"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/infra"
)

// Deps 路由依赖
type Deps struct {
	Config   *config.Config
	Users    domain.UserService
	Posts    domain.BlogPostService
	Tokens   *auth.TokenManager
	Revoked  domain.TokenStore
	Enforcer *casbin.Enforcer
	Feed     *infra.FeedHub
}

// Router 负责注册所有路由
type Router struct {
	app  *fiber.App
	deps Deps
}

func NewRouter(app *fiber.App, deps Deps) *Router {
	return &Router{app: app, deps: deps}
}

// RegisterRoutes 注册所有业务路由
func (r *Router) RegisterRoutes() {
	d := r.deps

	// 1. 初始化各个 Handler
	homeHandler := NewHomeHandler(d.Posts, d.Config.Server.AppName)
	authHandler := NewAuthHandler(d.Users, d.Tokens, d.Revoked)
	userHandler := NewUserHandler(d.Users, d.Posts)
	adminHandler := NewAdminHandler(d.Users, d.Posts)

	// 2. 注册 WebSocket 路由 (不需要 JWT 中间件)
	if d.Feed != nil {
		InitFeed(r.app, d.Feed)
	}

	// 3. 注册公开路由
	r.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"Status":  "ok",
			"Message": "Service is healthy",
		})
	})
	r.app.Get("/", homeHandler.Landing)
	r.app.Get("/home", homeHandler.Landing)
	r.app.Get("/blog", homeHandler.BlogList)
	r.app.Get("/blog/:id", homeHandler.BlogDetail)

	authLimit := limiter.New(limiter.Config{
		Max:        d.Config.Auth.LoginRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"Error": "Too many attempts, try again later"})
		},
	})
	r.app.Post("/auth/register", authLimit, authHandler.Register)
	r.app.Post("/auth/login", authLimit, authHandler.Login)

	// 4. 受保护路由: JWT + Casbin
	protect := middleware.Authenticate(d.Tokens, d.Revoked, d.Users, d.Enforcer)

	r.registerAuthRoutes(protect, authHandler)
	r.registerUserRoutes(r.app.Group("/user", protect), userHandler)
	r.registerAdminRoutes(r.app.Group("/admin", protect), adminHandler)
}

// /auth 下的登录注册是公开的, 这里逐个挂载中间件
func (r *Router) registerAuthRoutes(protect fiber.Handler, h *AuthHandler) {
	r.app.Get("/auth/me", protect, h.Me)
	r.app.Post("/auth/logout", protect, h.Logout)
}

func (r *Router) registerUserRoutes(g fiber.Router, h *UserHandler) {
	g.Get("/dashboard", h.Dashboard)
	g.Get("/profile", h.Profile)
	g.Post("/profile", h.UpdateProfile)

	posts := g.Group("/posts")
	posts.Get("", h.MyPosts)
	posts.Get("/new", h.NewPostForm)
	posts.Post("", h.CreatePost)
	posts.Get("/:id/edit", h.EditPostForm)
	posts.Post("/:id", h.UpdatePost)
	posts.Post("/:id/delete", h.DeletePost)
}

func (r *Router) registerAdminRoutes(g fiber.Router, h *AdminHandler) {
	g.Get("/dashboard", h.Dashboard)

	users := g.Group("/users")
	users.Get("", h.ListUsers)
	users.Get("/new", h.NewUserForm)
	users.Post("", h.CreateUser)
	users.Get("/:id/edit", h.EditUserForm)
	users.Post("/:id", h.UpdateUser)
	users.Post("/:id/delete", h.DeleteUser)

	posts := g.Group("/posts")
	posts.Get("", h.ListPosts)
	posts.Get("/new", h.NewPostForm)
	posts.Post("", h.CreatePost)
	posts.Get("/:id/edit", h.EditPostForm)
	posts.Post("/:id", h.UpdatePost)
	posts.Post("/:id/delete", h.DeletePost)
}
