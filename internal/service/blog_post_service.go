package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"bloghub.com/internal/config"
	"bloghub.com/internal/constants"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/event"
	"bloghub.com/internal/model"
)

// BlogPostServiceImpl 实现 domain.BlogPostService 接口
type BlogPostServiceImpl struct {
	posts  domain.BlogPostRepository
	paging config.PaginationConfig
	events domain.EventPublisher
	now    func() time.Time
}

// NewBlogPostService 创建文章服务. events 可以为 nil
func NewBlogPostService(
	posts domain.BlogPostRepository,
	paging config.PaginationConfig,
	events domain.EventPublisher,
) *BlogPostServiceImpl {
	if paging.DefaultSize < 1 {
		paging.DefaultSize = 10
	}
	if paging.MaxSize < paging.DefaultSize {
		paging.MaxSize = paging.DefaultSize
	}
	return &BlogPostServiceImpl{
		posts:  posts,
		paging: paging,
		events: events,
		now:    time.Now,
	}
}

// ClampPage 规范化分页参数: page 从 0 开始, size 限制在 [1, MaxSize]
func (s *BlogPostServiceImpl) ClampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = s.paging.DefaultSize
	}
	if size > s.paging.MaxSize {
		size = s.paging.MaxSize
	}
	return page, size
}

// GetAllBlogPosts 获取全部文章 (管理员)
func (s *BlogPostServiceImpl) GetAllBlogPosts(ctx context.Context) ([]model.BlogPost, error) {
	posts, err := s.posts.FindAll(ctx)
	if err != nil {
		return nil, domain.NewInternalError("failed to fetch blog posts", err)
	}
	return posts, nil
}

// CountBlogPosts 文章总数
func (s *BlogPostServiceImpl) CountBlogPosts(ctx context.Context) (int64, error) {
	n, err := s.posts.Count(ctx)
	if err != nil {
		return 0, domain.NewInternalError("failed to count blog posts", err)
	}
	return n, nil
}

// GetPublishedBlogPosts 已发布文章分页
func (s *BlogPostServiceImpl) GetPublishedBlogPosts(ctx context.Context, page, size int) (*model.Page[model.BlogPost], error) {
	page, size = s.ClampPage(page, size)

	posts, total, err := s.posts.FindPublished(ctx, page, size)
	if err != nil {
		return nil, domain.NewInternalError("failed to fetch published posts", err)
	}
	return model.NewPage(posts, page, size, total), nil
}

// SearchPublishedPosts 已发布文章搜索. 关键字为空时等同于 GetPublishedBlogPosts
func (s *BlogPostServiceImpl) SearchPublishedPosts(ctx context.Context, keyword string, page, size int) (*model.Page[model.BlogPost], error) {
	if strings.TrimSpace(keyword) == "" {
		return s.GetPublishedBlogPosts(ctx, page, size)
	}
	page, size = s.ClampPage(page, size)

	posts, total, err := s.posts.SearchPublished(ctx, keyword, page, size)
	if err != nil {
		return nil, domain.NewInternalError("failed to search posts", err)
	}
	return model.NewPage(posts, page, size, total), nil
}

// GetBlogPostsByAuthor 作者的全部文章
func (s *BlogPostServiceImpl) GetBlogPostsByAuthor(ctx context.Context, author *model.User) ([]model.BlogPost, error) {
	if author == nil {
		return nil, domain.NewBadRequestError("author is required")
	}
	posts, err := s.posts.FindByAuthor(ctx, author.ID)
	if err != nil {
		return nil, domain.NewInternalError("failed to fetch author posts", err)
	}
	return posts, nil
}

// GetPublishedBlogPostsByAuthor 作者已发布的文章
func (s *BlogPostServiceImpl) GetPublishedBlogPostsByAuthor(ctx context.Context, author *model.User) ([]model.BlogPost, error) {
	if author == nil {
		return nil, domain.NewBadRequestError("author is required")
	}
	posts, err := s.posts.FindPublishedByAuthor(ctx, author.ID)
	if err != nil {
		return nil, domain.NewInternalError("failed to fetch author posts", err)
	}
	return posts, nil
}

// SearchPostsByAuthor 在作者的文章中搜索
func (s *BlogPostServiceImpl) SearchPostsByAuthor(ctx context.Context, author *model.User, keyword string) ([]model.BlogPost, error) {
	if strings.TrimSpace(keyword) == "" {
		return s.GetBlogPostsByAuthor(ctx, author)
	}
	if author == nil {
		return nil, domain.NewBadRequestError("author is required")
	}
	posts, err := s.posts.SearchByAuthor(ctx, author.ID, keyword)
	if err != nil {
		return nil, domain.NewInternalError("failed to search author posts", err)
	}
	return posts, nil
}

// GetBlogPostByID 获取文章详情
func (s *BlogPostServiceImpl) GetBlogPostByID(ctx context.Context, id uint) (*model.BlogPost, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, postLookupError(err)
	}
	return post, nil
}

// GetPublishedBlogPostByID 获取已发布文章详情
func (s *BlogPostServiceImpl) GetPublishedBlogPostByID(ctx context.Context, id uint) (*model.BlogPost, error) {
	post, err := s.GetBlogPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, domain.NewNotFoundError("blog post not found")
	}
	return post, nil
}

// CreateBlogPost 创建文章. 作者必须存在
func (s *BlogPostServiceImpl) CreateBlogPost(ctx context.Context, in domain.PostInput, author *model.User) (*model.BlogPost, error) {
	if author == nil || author.ID == 0 {
		return nil, domain.NewBadRequestError("blog post author is required")
	}
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}

	post := &model.BlogPost{
		Title:     in.Title,
		Content:   in.Content,
		Published: in.Published,
		AuthorID:  author.ID,
		CreatedAt: s.now(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, domain.NewInternalError("failed to create blog post", err)
	}
	post.Author = author

	slog.Info("blog post created", "component", "blog_post_service", "post_id", post.ID, "author_id", author.ID)
	s.publish(constants.EventPostCreated, post)
	if post.Published {
		s.publish(constants.EventPostPublished, post)
	}
	return post, nil
}

// UpdateBlogPost 更新文章: 只修改标题、内容、发布状态
func (s *BlogPostServiceImpl) UpdateBlogPost(ctx context.Context, id uint, in domain.PostInput) (*model.BlogPost, error) {
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, postLookupError(err)
	}
	wasPublished := post.Published

	post.Title = in.Title
	post.Content = in.Content
	post.Published = in.Published

	if err := s.posts.Save(ctx, post); err != nil {
		return nil, postLookupError(err)
	}

	s.publish(constants.EventPostUpdated, post)
	if !wasPublished && post.Published {
		s.publish(constants.EventPostPublished, post)
	}
	return post, nil
}

// DeleteBlogPost 删除文章
func (s *BlogPostServiceImpl) DeleteBlogPost(ctx context.Context, id uint) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return postLookupError(err)
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return postLookupError(err)
	}

	slog.Info("blog post deleted", "component", "blog_post_service", "post_id", id)
	s.publish(constants.EventPostDeleted, post)
	return nil
}

// CanEditPost 管理员或文章作者可以编辑
func (s *BlogPostServiceImpl) CanEditPost(user *model.User, post *model.BlogPost) bool {
	return canManagePost(user, post)
}

// CanDeletePost 管理员或文章作者可以删除
func (s *BlogPostServiceImpl) CanDeletePost(user *model.User, post *model.BlogPost) bool {
	return canManagePost(user, post)
}

func canManagePost(user *model.User, post *model.BlogPost) bool {
	if user == nil || post == nil {
		return false
	}
	return user.Role == model.RoleAdmin || (user.ID != 0 && user.ID == post.AuthorID)
}

func (s *BlogPostServiceImpl) publish(eventType string, post *model.BlogPost) {
	if s.events == nil {
		return
	}
	s.events.Publish(event.Event{Type: eventType, Source: constants.SourceBlogPostService, Data: post})
}

func postLookupError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError("blog post not found")
	}
	return domain.NewInternalError("failed to load blog post", err)
}

func validatePostInput(in *domain.PostInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.NewBadRequestError("title is required")
	}
	if len(in.Title) > 255 {
		return domain.NewBadRequestError("title is too long")
	}
	return nil
}

// 确保实现了接口
var _ domain.BlogPostService = (*BlogPostServiceImpl)(nil)
