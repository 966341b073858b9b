package service

import (
	"context"
	"errors"
	"strings"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
)

// RoleService はロール管理のインターフェース
type RoleService interface {
	ListRoles(ctx context.Context) ([]*model.Role, error)
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	UpdateRole(ctx context.Context, id int64, name string) (*model.Role, error)
	DeleteRole(ctx context.Context, id int64) error
}

type roleService struct {
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
}

// NewRoleService は RoleService を生成する
func NewRoleService(roleRepo repository.RoleRepository, userRepo repository.UserRepository) RoleService {
	return &roleService{roleRepo: roleRepo, userRepo: userRepo}
}

func (s *roleService) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return s.roleRepo.List(ctx)
}

func (s *roleService) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameRequired
	}
	role := &model.Role{Name: name}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) UpdateRole(ctx context.Context, id int64, name string) (*model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameRequired
	}
	role := &model.Role{ID: id, Name: name}
	if err := s.roleRepo.Update(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, err
	}
	return role, nil
}

// DeleteRole はユーザーに割り当てられていないロールだけを削除する
func (s *roleService) DeleteRole(ctx context.Context, id int64) error {
	if _, err := s.roleRepo.FindByID(ctx, id); err != nil {
		return err
	}
	n, err := s.userRepo.CountByRole(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrRoleInUse
	}
	return s.roleRepo.Delete(ctx, id)
}
