package constants

// 事件类型常量
const (
	// 文章事件
	EventPostCreated   = "post.created"
	EventPostUpdated   = "post.updated"
	EventPostDeleted   = "post.deleted"
	EventPostPublished = "post.published"

	// 用户事件
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// 事件来源
const (
	SourceUserService     = "user_service"
	SourceBlogPostService = "blog_post_service"
)
