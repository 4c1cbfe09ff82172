package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bloghub.com/internal/domain"
	"bloghub.com/internal/model"
)

const newestFirst = "created_at DESC, id DESC"

// BlogPostRepo is the gorm-backed blog_posts table. Reads preload the author.
type BlogPostRepo struct {
	db *gorm.DB
}

func NewBlogPostRepo(db *gorm.DB) *BlogPostRepo {
	return &BlogPostRepo{db: db}
}

func (r *BlogPostRepo) posts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.BlogPost{})
}

func (r *BlogPostRepo) FindAll(ctx context.Context) ([]model.BlogPost, error) {
	posts := []model.BlogPost{}
	if err := r.posts(ctx).Preload("Author").Order(newestFirst).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *BlogPostRepo) FindPublished(ctx context.Context, page, size int) ([]model.BlogPost, int64, error) {
	return r.paginate(ctx, page, size, func(q *gorm.DB) *gorm.DB {
		return q.Where("published = ?", true)
	})
}

func (r *BlogPostRepo) SearchPublished(ctx context.Context, keyword string, page, size int) ([]model.BlogPost, int64, error) {
	return r.paginate(ctx, page, size, func(q *gorm.DB) *gorm.DB {
		return q.Where("published = ?", true).
			Where("("+containsExpr(r.db, "title")+" OR "+containsExpr(r.db, "content")+")", keyword, keyword)
	})
}

// paginate 统计总数并取出一页数据; 每次都从新的查询开始, 避免 Count 污染后续语句
func (r *BlogPostRepo) paginate(ctx context.Context, page, size int, scope func(*gorm.DB) *gorm.DB) ([]model.BlogPost, int64, error) {
	var total int64
	if err := r.posts(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := []model.BlogPost{}
	if err := r.posts(ctx).Scopes(scope).
		Preload("Author").
		Order(newestFirst).
		Limit(size).
		Offset(page * size).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *BlogPostRepo) FindByAuthor(ctx context.Context, authorID uint) ([]model.BlogPost, error) {
	posts := []model.BlogPost{}
	err := r.posts(ctx).Preload("Author").
		Where("author_id = ?", authorID).
		Order(newestFirst).
		Find(&posts).Error
	return posts, err
}

func (r *BlogPostRepo) FindPublishedByAuthor(ctx context.Context, authorID uint) ([]model.BlogPost, error) {
	posts := []model.BlogPost{}
	err := r.posts(ctx).Preload("Author").
		Where("author_id = ? AND published = ?", authorID, true).
		Order(newestFirst).
		Find(&posts).Error
	return posts, err
}

func (r *BlogPostRepo) SearchByAuthor(ctx context.Context, authorID uint, keyword string) ([]model.BlogPost, error) {
	posts := []model.BlogPost{}
	err := r.posts(ctx).Preload("Author").
		Where("author_id = ?", authorID).
		Where("("+containsExpr(r.db, "title")+" OR "+containsExpr(r.db, "content")+")", keyword, keyword).
		Order(newestFirst).
		Find(&posts).Error
	return posts, err
}

func (r *BlogPostRepo) FindByID(ctx context.Context, id uint) (*model.BlogPost, error) {
	var post model.BlogPost
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// Create inserts the post without touching its Author association.
func (r *BlogPostRepo) Create(ctx context.Context, post *model.BlogPost) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error)
}

// Save writes title, content and published only. author_id and created_at are never updated.
func (r *BlogPostRepo) Save(ctx context.Context, post *model.BlogPost) error {
	now := time.Now()
	result := r.posts(ctx).Where("id = ?", post.ID).Updates(map[string]any{
		"title":      post.Title,
		"content":    post.Content,
		"published":  post.Published,
		"updated_at": now,
	})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	post.UpdatedAt = now
	return nil
}

func (r *BlogPostRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.BlogPost{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BlogPostRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.posts(ctx).Count(&count).Error
	return count, err
}

func (r *BlogPostRepo) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := r.posts(ctx).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

var _ domain.BlogPostRepository = (*BlogPostRepo)(nil)
