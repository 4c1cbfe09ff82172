package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/domain"
	"bloghub.com/internal/model"
	"bloghub.com/internal/service"
)

const excerptLength = 200

// Pagination 元数据结构
type Pagination struct {
	Page      int   `json:"Page"`      // 当前页码, 从 0 开始
	PageSize  int   `json:"PageSize"`  // 每页条数
	Total     int64 `json:"Total"`     // 总记录数
	TotalPage int   `json:"TotalPage"` // 总页数
}

// ListResponse 统一的分页响应结构
type ListResponse struct {
	Data       any        `json:"Data"`       // 数据列表
	Pagination Pagination `json:"Pagination"` // 分页信息
	Search     string     `json:"Search,omitempty"`
}

// SendPaginatedResponse 发送标准的分页响应
func SendPaginatedResponse[T any](c *fiber.Ctx, data any, page *model.Page[T], search string) error {
	return c.JSON(ListResponse{
		Data: data,
		Pagination: Pagination{
			Page:      page.Page,
			PageSize:  page.Size,
			Total:     page.TotalItems,
			TotalPage: page.TotalPages,
		},
		Search: search,
	})
}

// PostSummary is a post in a listing: content is reduced to a plain-text excerpt.
type PostSummary struct {
	ID        uint      `json:"ID"`
	Title     string    `json:"Title"`
	Excerpt   string    `json:"Excerpt"`
	Published bool      `json:"Published"`
	AuthorID  uint      `json:"AuthorID"`
	Author    string    `json:"Author"`
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`
}

func summarize(posts []model.BlogPost) []PostSummary {
	out := make([]PostSummary, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		s := PostSummary{
			ID:        p.ID,
			Title:     p.Title,
			Excerpt:   service.Excerpt(p.Content, excerptLength),
			Published: p.Published,
			AuthorID:  p.AuthorID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if p.Author != nil {
			s.Author = p.Author.Username
		}
		out = append(out, s)
	}
	return out
}

// handleError 把业务错误转换成 HTTP 响应
func handleError(c *fiber.Ctx, err error) error {
	status := domain.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "component", "api",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"Error": domain.PublicMessage(err)})
}

// parseID reads a positive numeric path parameter.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.NewBadRequestError("invalid " + name)
	}
	return uint(id), nil
}

// parsePaging reads ?page and ?size. Unparseable values fall back to 0 and -1;
// the service clamps them.
func parsePaging(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 0), c.QueryInt("size", -1)
}

func bindPost(c *fiber.Ctx) (domain.PostInput, error) {
	var in domain.PostInput
	if err := c.BodyParser(&in); err != nil {
		return in, domain.NewBadRequestError("Invalid request body")
	}
	return in, nil
}

func bindUser(c *fiber.Ctx) (domain.UserInput, error) {
	var in domain.UserInput
	if err := c.BodyParser(&in); err != nil {
		return in, domain.NewBadRequestError("Invalid request body")
	}
	return in, nil
}

func blankPost() fiber.Map {
	return fiber.Map{"Post": domain.PostInput{}}
}
