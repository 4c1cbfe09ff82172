package api

import (
	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/api/middleware"
	"bloghub.com/internal/domain"
)

// AdminHandler 管理员后台: 用户与文章的完整管理
type AdminHandler struct {
	users domain.UserService
	posts domain.BlogPostService
}

func NewAdminHandler(users domain.UserService, posts domain.BlogPostService) *AdminHandler {
	return &AdminHandler{users: users, posts: posts}
}

// AdminPostRequest 管理员创建文章时必须指定作者
type AdminPostRequest struct {
	domain.PostInput
	AuthorID uint `json:"author_id" form:"author_id"`
}

// Dashboard 总数与列表
// GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()

	users, err := h.users.GetAllUsers(ctx)
	if err != nil {
		return handleError(c, err)
	}
	posts, err := h.posts.GetAllBlogPosts(ctx)
	if err != nil {
		return handleError(c, err)
	}
	userCount, err := h.users.CountUsers(ctx)
	if err != nil {
		return handleError(c, err)
	}
	postCount, err := h.posts.CountBlogPosts(ctx)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"TotalUsers": userCount,
		"TotalPosts": postCount,
		"Users":      users,
		"Posts":      summarize(posts),
	})
}

// ===========================
// 用户管理
// ===========================

// ListUsers GET /admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.GetAllUsers(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Data": users})
}

// NewUserForm GET /admin/users/new
func (h *AdminHandler) NewUserForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"User":  domain.UserInput{},
		"Roles": []string{"USER", "ADMIN"},
	})
}

// CreateUser POST /admin/users
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	in, err := bindUser(c)
	if err != nil {
		return handleError(c, err)
	}

	user, err := h.users.CreateUser(c.UserContext(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// EditUserForm GET /admin/users/:id/edit
func (h *AdminHandler) EditUserForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	user, err := h.users.GetUserByID(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"User":  user,
		"Roles": []string{"USER", "ADMIN"},
	})
}

// UpdateUser POST /admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	in, err := bindUser(c)
	if err != nil {
		return handleError(c, err)
	}

	user, err := h.users.UpdateUser(c.UserContext(), id, in)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser POST /admin/users/:id/delete
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	if me := middleware.CurrentUser(c); me != nil && me.ID == id {
		return handleError(c, domain.NewBadRequestError("you cannot delete your own account"))
	}

	if err := h.users.DeleteUser(c.UserContext(), id); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "User deleted", "ID": id})
}

// ===========================
// 文章管理
// ===========================

// ListPosts GET /admin/posts
func (h *AdminHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.posts.GetAllBlogPosts(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Data": summarize(posts)})
}

// NewPostForm 空白文章及可选作者列表
// GET /admin/posts/new
func (h *AdminHandler) NewPostForm(c *fiber.Ctx) error {
	users, err := h.users.GetAllUsers(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	form := blankPost()
	form["Authors"] = users
	return c.JSON(form)
}

// CreatePost POST /admin/posts
func (h *AdminHandler) CreatePost(c *fiber.Ctx) error {
	var req AdminPostRequest
	if err := c.BodyParser(&req); err != nil {
		return handleError(c, domain.NewBadRequestError("Invalid request body"))
	}
	if req.AuthorID == 0 {
		return handleError(c, domain.NewBadRequestError("author_id is required"))
	}

	author, err := h.users.GetUserByID(c.UserContext(), req.AuthorID)
	if err != nil {
		if domain.StatusCode(err) == fiber.StatusNotFound {
			return handleError(c, domain.NewBadRequestError("author does not exist"))
		}
		return handleError(c, err)
	}

	post, err := h.posts.CreateBlogPost(c.UserContext(), req.PostInput, author)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// EditPostForm GET /admin/posts/:id/edit
func (h *AdminHandler) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.GetBlogPostByID(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Post": post})
}

// UpdatePost POST /admin/posts/:id
func (h *AdminHandler) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	in, err := bindPost(c)
	if err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.UpdateBlogPost(c.UserContext(), id, in)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(post)
}

// DeletePost POST /admin/posts/:id/delete
func (h *AdminHandler) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	if err := h.posts.DeleteBlogPost(c.UserContext(), id); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Post deleted", "ID": id})
}
