package api

import (
	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/api/middleware"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/model"
)

// UserHandler 处理登录用户自己的文章和资料
type UserHandler struct {
	users domain.UserService
	posts domain.BlogPostService
}

func NewUserHandler(users domain.UserService, posts domain.BlogPostService) *UserHandler {
	return &UserHandler{users: users, posts: posts}
}

// Dashboard 当前用户及其全部文章
// GET /user/dashboard
func (h *UserHandler) Dashboard(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	posts, err := h.posts.GetBlogPostsByAuthor(c.UserContext(), user)
	if err != nil {
		return handleError(c, err)
	}

	published := 0
	for _, p := range posts {
		if p.Published {
			published++
		}
	}

	return c.JSON(fiber.Map{
		"User":           user,
		"Posts":          summarize(posts),
		"TotalPosts":     len(posts),
		"PublishedPosts": published,
	})
}

// MyPosts 当前用户的文章, 可按关键字过滤
// GET /user/posts?search=go
func (h *UserHandler) MyPosts(c *fiber.Ctx) error {
	search := c.Query("search")

	posts, err := h.posts.SearchPostsByAuthor(c.UserContext(), middleware.CurrentUser(c), search)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"Data":   summarize(posts),
		"Search": search,
	})
}

// NewPostForm 空白文章
// GET /user/posts/new
func (h *UserHandler) NewPostForm(c *fiber.Ctx) error {
	return c.JSON(blankPost())
}

// CreatePost 创建文章, 作者为当前用户
// POST /user/posts
func (h *UserHandler) CreatePost(c *fiber.Ctx) error {
	in, err := bindPost(c)
	if err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.CreateBlogPost(c.UserContext(), in, middleware.CurrentUser(c))
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// EditPostForm 编辑前取出文章, 非作者返回 403
// GET /user/posts/:id/edit
func (h *UserHandler) EditPostForm(c *fiber.Ctx) error {
	post, err := h.ownedPost(c, h.posts.CanEditPost)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Post": post})
}

// UpdatePost 更新文章
// POST /user/posts/:id
func (h *UserHandler) UpdatePost(c *fiber.Ctx) error {
	post, err := h.ownedPost(c, h.posts.CanEditPost)
	if err != nil {
		return handleError(c, err)
	}

	in, err := bindPost(c)
	if err != nil {
		return handleError(c, err)
	}

	updated, err := h.posts.UpdateBlogPost(c.UserContext(), post.ID, in)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(updated)
}

// DeletePost 删除文章
// POST /user/posts/:id/delete
func (h *UserHandler) DeletePost(c *fiber.Ctx) error {
	post, err := h.ownedPost(c, h.posts.CanDeletePost)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.posts.DeleteBlogPost(c.UserContext(), post.ID); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Post deleted", "ID": post.ID})
}

// Profile 当前用户资料
// GET /user/profile
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"User": middleware.CurrentUser(c)})
}

// UpdateProfile 更新资料, 角色字段被忽略
// POST /user/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	in, err := bindUser(c)
	if err != nil {
		return handleError(c, err)
	}

	user, err := h.users.UpdateProfile(c.UserContext(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Profile updated", "User": user})
}

// ownedPost loads the :id post and applies the permission predicate for the caller.
func (h *UserHandler) ownedPost(c *fiber.Ctx, allowed func(*model.User, *model.BlogPost) bool) (*model.BlogPost, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}

	post, err := h.posts.GetBlogPostByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !allowed(middleware.CurrentUser(c), post) {
		return nil, domain.NewForbiddenError("you do not have permission to modify this post")
	}
	return post, nil
}
