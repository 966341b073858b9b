package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
)

// CreateUserInput はユーザー作成の入力。RoleIDs はカンマ区切り
type CreateUserInput struct {
	Email    string
	Password string
	Fullname *string
	RoleIDs  string
}

// UpdateUserInput は部分更新の入力。nil のフィールドは変更しない
type UpdateUserInput struct {
	Email    *string
	Password *string
	Fullname *string
	RoleIDs  *string
}

// AdminUserService provides admin-only user management operations.
type AdminUserService interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type adminUserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

// NewAdminUserService creates an AdminUserService.
func NewAdminUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository) AdminUserService {
	return &adminUserService{userRepo: userRepo, roleRepo: roleRepo}
}

func (s *adminUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.List(ctx)
}

func (s *adminUserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *adminUserService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	ids, err := s.validateRoles(ctx, in.RoleIDs)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Fullname:     in.Fullname,
		RoleIDs:      model.FormatRoleIDs(ids),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user created", "user_id", u.ID, "role_ids", u.RoleIDs)
	return u, nil
}

func (s *adminUserService) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.RoleIDs != nil {
		ids, err := s.validateRoles(ctx, *in.RoleIDs)
		if err != nil {
			return nil, err
		}
		if err := s.guardLastAdmin(ctx, u, ids); err != nil {
			return nil, err
		}
		u.RoleIDs = model.FormatRoleIDs(ids)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		u.Email = email
	}
	if in.Fullname != nil {
		u.Fullname = in.Fullname
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, ErrPasswordRequired
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

func (s *adminUserService) DeleteUser(ctx context.Context, id int64) error {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardLastAdmin(ctx, u, nil); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("user deleted", "user_id", id)
	return nil
}

// validateRoles は "1,2" 形式を解析し、重複を除いたうえで全ロールの存在を確認する
func (s *adminUserService) validateRoles(ctx context.Context, raw string) ([]int64, error) {
	parsed, err := model.ParseRoleIDs(raw)
	if err != nil {
		return nil, ErrInvalidRoleIDs
	}
	seen := make(map[int64]bool, len(parsed))
	ids := make([]int64, 0, len(parsed))
	for _, id := range parsed {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrRoleRequired
	}
	n, err := s.roleRepo.CountExisting(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count roles: %w", err)
	}
	if n != len(ids) {
		return nil, ErrRoleNotFound
	}
	return ids, nil
}

// guardLastAdmin は u が唯一の管理者で、next に admin ロールが含まれない場合 ErrLastAdmin を返す。
// next が nil の場合は削除を意味する
func (s *adminUserService) guardLastAdmin(ctx context.Context, u *model.User, next []int64) error {
	admin, err := s.roleRepo.FindByName(ctx, model.AdminRoleName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find admin role: %w", err)
	}
	if !u.HasRole(admin.ID) {
		return nil
	}
	for _, id := range next {
		if id == admin.ID {
			return nil
		}
	}
	count, err := s.userRepo.CountByRole(ctx, admin.ID)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	return nil
}
