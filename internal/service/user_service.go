package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"bloghub.com/internal/auth"
	"bloghub.com/internal/constants"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/event"
	"bloghub.com/internal/model"
)

const (
	maxUsernameLen    = 64
	minPasswordLength = 6
)

// UserServiceImpl 实现 domain.UserService 接口
type UserServiceImpl struct {
	users  domain.UserRepository
	posts  domain.BlogPostRepository
	hasher *auth.PasswordHasher
	events domain.EventPublisher
}

// NewUserService 创建用户服务. events 可以为 nil
func NewUserService(
	users domain.UserRepository,
	posts domain.BlogPostRepository,
	hasher *auth.PasswordHasher,
	events domain.EventPublisher,
) *UserServiceImpl {
	return &UserServiceImpl{
		users:  users,
		posts:  posts,
		hasher: hasher,
		events: events,
	}
}

// CreateUser 创建用户
func (s *UserServiceImpl) CreateUser(ctx context.Context, in domain.UserInput) (*model.User, error) {
	in = normalizeUserInput(in)
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if err := validateNewUser(in); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, domain.NewInternalError("failed to check username", err)
	}
	if exists {
		return nil, domain.NewConflictError("username already exists")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.NewInternalError("failed to hash password", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// 并发注册时由唯一索引兜底
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewConflictError("username already exists")
		}
		return nil, domain.NewInternalError("failed to create user", err)
	}

	slog.Info("user created", "component", "user_service", "user_id", user.ID, "username", user.Username, "role", user.Role)
	s.publish(constants.EventUserCreated, user)
	return user, nil
}

// Register 自助注册, 角色固定为 USER
func (s *UserServiceImpl) Register(ctx context.Context, in domain.UserInput) (*model.User, error) {
	in.Role = model.RoleUser
	return s.CreateUser(ctx, in)
}

// ExistsByUsername 用户名是否存在
func (s *UserServiceImpl) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	exists, err := s.users.ExistsByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, domain.NewInternalError("failed to check username", err)
	}
	return exists, nil
}

// GetUserByID 获取用户
func (s *UserServiceImpl) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// GetUserByUsername 按用户名获取用户
func (s *UserServiceImpl) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// UpdateUser 更新用户 (管理员)
func (s *UserServiceImpl) UpdateUser(ctx context.Context, id uint, in domain.UserInput) (*model.User, error) {
	return s.update(ctx, id, normalizeUserInput(in), true)
}

// UpdateProfile 更新个人资料, 忽略角色字段
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id uint, in domain.UserInput) (*model.User, error) {
	return s.update(ctx, id, normalizeUserInput(in), false)
}

func (s *UserServiceImpl) update(ctx context.Context, id uint, in domain.UserInput, allowRole bool) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err)
	}

	if in.Username != "" && in.Username != user.Username {
		if len(in.Username) > maxUsernameLen {
			return nil, domain.NewBadRequestError("username is too long")
		}
		exists, err := s.users.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return nil, domain.NewInternalError("failed to check username", err)
		}
		if exists {
			return nil, domain.NewConflictError("username already exists")
		}
		user.Username = in.Username
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName

	if allowRole && in.Role != "" {
		if !in.Role.Valid() {
			return nil, domain.NewBadRequestError("role must be ADMIN or USER")
		}
		user.Role = in.Role
	}

	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, domain.NewBadRequestError("password is too short")
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, domain.NewInternalError("failed to hash password", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewConflictError("username already exists")
		}
		return nil, domain.NewInternalError("failed to update user", err)
	}

	s.publish(constants.EventUserUpdated, user)
	return user, nil
}

// DeleteUser 删除用户. 仍有文章的用户不能删除
func (s *UserServiceImpl) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return userLookupError(err)
	}

	owned, err := s.posts.CountByAuthor(ctx, id)
	if err != nil {
		return domain.NewInternalError("failed to count user posts", err)
	}
	if owned > 0 {
		return domain.NewConflictError("user still authors blog posts; delete or reassign them first")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return userLookupError(err)
	}

	slog.Info("user deleted", "component", "user_service", "user_id", id, "username", user.Username)
	s.publish(constants.EventUserDeleted, user)
	return nil
}

// GetAllUsers 获取全部用户
func (s *UserServiceImpl) GetAllUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, domain.NewInternalError("failed to fetch users", err)
	}
	return users, nil
}

// CountUsers 用户总数
func (s *UserServiceImpl) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, domain.NewInternalError("failed to count users", err)
	}
	return n, nil
}

// Authenticate 校验用户名和密码. 用户不存在与密码错误返回同样的错误
func (s *UserServiceImpl) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewUnauthorizedError("invalid credentials")
		}
		return nil, domain.NewInternalError("failed to load user", err)
	}

	ok, err := s.hasher.Check(password, user.PasswordHash)
	if err != nil {
		slog.Warn("stored password hash is unreadable", "component", "user_service", "user_id", user.ID, "error", err)
		return nil, domain.NewUnauthorizedError("invalid credentials")
	}
	if !ok {
		return nil, domain.NewUnauthorizedError("invalid credentials")
	}
	return user, nil
}

func (s *UserServiceImpl) publish(eventType string, user *model.User) {
	if s.events == nil {
		return
	}
	s.events.Publish(event.Event{Type: eventType, Source: constants.SourceUserService, Data: user})
}

func userLookupError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError("user not found")
	}
	return domain.NewInternalError("failed to load user", err)
}

func normalizeUserInput(in domain.UserInput) domain.UserInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Role = model.Role(strings.ToUpper(strings.TrimSpace(string(in.Role))))
	return in
}

func validateNewUser(in domain.UserInput) error {
	if in.Username == "" {
		return domain.NewBadRequestError("username is required")
	}
	if len(in.Username) > maxUsernameLen {
		return domain.NewBadRequestError("username is too long")
	}
	if len(in.Password) < minPasswordLength {
		return domain.NewBadRequestError("password must be at least 6 characters")
	}
	if !in.Role.Valid() {
		return domain.NewBadRequestError("role must be ADMIN or USER")
	}
	return validateEmail(in.Email)
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.NewBadRequestError("email is not valid")
	}
	return nil
}

// 确保实现了接口
var _ domain.UserService = (*UserServiceImpl)(nil)
