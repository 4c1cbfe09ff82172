package api

import (
	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/domain"
)

// HomeHandler 处理公开页面: 首页、博客列表、文章详情
type HomeHandler struct {
	posts   domain.BlogPostService
	appName string
}

// NewHomeHandler 创建首页处理器
func NewHomeHandler(posts domain.BlogPostService, appName string) *HomeHandler {
	return &HomeHandler{posts: posts, appName: appName}
}

// Landing 首页: 最新的已发布文章
// GET / , GET /home
func (h *HomeHandler) Landing(c *fiber.Ctx) error {
	latest, err := h.posts.GetPublishedBlogPosts(c.UserContext(), 0, 5)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"AppName":        h.appName,
		"PublishedPosts": latest.TotalItems,
		"Latest":         summarize(latest.Items),
		"Links": fiber.Map{
			"Blog":     "/blog",
			"Login":    "/auth/login",
			"Register": "/auth/register",
		},
	})
}

// BlogList 已发布文章分页, 支持关键字搜索
// GET /blog?page=0&size=10&search=go
func (h *HomeHandler) BlogList(c *fiber.Ctx) error {
	page, size := parsePaging(c)
	search := c.Query("search")

	result, err := h.posts.SearchPublishedPosts(c.UserContext(), search, page, size)
	if err != nil {
		return handleError(c, err)
	}

	return SendPaginatedResponse(c, summarize(result.Items), result, search)
}

// BlogDetail 文章详情, 未发布的文章返回 404
// GET /blog/:id
func (h *HomeHandler) BlogDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.GetPublishedBlogPostByID(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(post)
}
