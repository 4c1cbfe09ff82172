package domain

import (
	"context"
	"time"

	"bloghub.com/internal/event"
	"bloghub.com/internal/model"
)

// ===========================
// 输入结构
// ===========================

// UserInput carries the mutable user fields from a form or JSON body.
// Empty strings mean "not supplied" on update.
type UserInput struct {
	Username  string     `json:"username" form:"username"`
	Email     string     `json:"email" form:"email"`
	Password  string     `json:"password" form:"password"`
	FirstName string     `json:"first_name" form:"first_name"`
	LastName  string     `json:"last_name" form:"last_name"`
	Role      model.Role `json:"role" form:"role"`
}

// PostInput carries the fields an author may set on a post.
type PostInput struct {
	Title     string `json:"title" form:"title"`
	Content   string `json:"content" form:"content"`
	Published bool   `json:"published" form:"published"`
}

// ===========================
// 用户服务接口
// ===========================

// UserService 定义用户相关的业务操作
type UserService interface {
	// 创建用户 (管理员路径, 可指定角色)
	CreateUser(ctx context.Context, in UserInput) (*model.User, error)
	// 自助注册 (角色固定为 USER)
	Register(ctx context.Context, in UserInput) (*model.User, error)
	// 用户名是否存在 (初始化数据使用)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// 更新用户 (管理员路径)
	UpdateUser(ctx context.Context, id uint, in UserInput) (*model.User, error)
	// 更新个人资料 (不允许修改角色)
	UpdateProfile(ctx context.Context, id uint, in UserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
	GetAllUsers(ctx context.Context) ([]model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	// 校验用户名和密码
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
}

// ===========================
// 文章服务接口
// ===========================

// BlogPostService 定义文章相关的业务操作
type BlogPostService interface {
	GetAllBlogPosts(ctx context.Context) ([]model.BlogPost, error)
	CountBlogPosts(ctx context.Context) (int64, error)
	// 已发布文章分页, 按创建时间倒序
	GetPublishedBlogPosts(ctx context.Context, page, size int) (*model.Page[model.BlogPost], error)
	// 已发布文章关键字搜索 (标题或内容, 区分大小写)
	SearchPublishedPosts(ctx context.Context, keyword string, page, size int) (*model.Page[model.BlogPost], error)
	GetBlogPostsByAuthor(ctx context.Context, author *model.User) ([]model.BlogPost, error)
	GetPublishedBlogPostsByAuthor(ctx context.Context, author *model.User) ([]model.BlogPost, error)
	SearchPostsByAuthor(ctx context.Context, author *model.User, keyword string) ([]model.BlogPost, error)
	GetBlogPostByID(ctx context.Context, id uint) (*model.BlogPost, error)
	// 仅返回已发布文章, 未发布视为不存在
	GetPublishedBlogPostByID(ctx context.Context, id uint) (*model.BlogPost, error)
	CreateBlogPost(ctx context.Context, in PostInput, author *model.User) (*model.BlogPost, error)
	// 只更新标题、内容、发布状态; 作者和创建时间不变
	UpdateBlogPost(ctx context.Context, id uint, in PostInput) (*model.BlogPost, error)
	DeleteBlogPost(ctx context.Context, id uint) error
	CanEditPost(user *model.User, post *model.BlogPost) bool
	CanDeletePost(user *model.User, post *model.BlogPost) bool
}

// ===========================
// 持久层接口
// ===========================

// UserRepository is the users table.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindAll(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	Save(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
}

// BlogPostRepository is the blog_posts table. Every list is ordered by
// creation time descending; page is zero-indexed.
type BlogPostRepository interface {
	FindAll(ctx context.Context) ([]model.BlogPost, error)
	FindPublished(ctx context.Context, page, size int) ([]model.BlogPost, int64, error)
	SearchPublished(ctx context.Context, keyword string, page, size int) ([]model.BlogPost, int64, error)
	FindByAuthor(ctx context.Context, authorID uint) ([]model.BlogPost, error)
	FindPublishedByAuthor(ctx context.Context, authorID uint) ([]model.BlogPost, error)
	SearchByAuthor(ctx context.Context, authorID uint, keyword string) ([]model.BlogPost, error)
	FindByID(ctx context.Context, id uint) (*model.BlogPost, error)
	Create(ctx context.Context, post *model.BlogPost) error
	Save(ctx context.Context, post *model.BlogPost) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
}

// ===========================
// 令牌注销接口
// ===========================

// TokenStore remembers revoked token ids until the token would have expired anyway.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ===========================
// 事件发布接口
// ===========================

// EventPublisher is implemented by *event.Bus.
type EventPublisher interface {
	Publish(evt event.Event)
}
