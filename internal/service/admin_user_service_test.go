package service

import (
	"context"
	"errors"
	"testing"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
)

func strp(s string) *string { return &s }

// ---------------------------------------------------------------------------
// AdminUserService.CreateUser tests
// ---------------------------------------------------------------------------

func TestAdminUserService_CreateUser_NormalizesRoles(t *testing.T) {
	var created *model.User
	users := &mockUserRepository{
		createFunc: func(_ context.Context, u *model.User) error {
			u.ID = 3
			created = u
			return nil
		},
	}
	svc := NewAdminUserService(users, defaultRoles())

	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: " new@example.com ", Password: "pw", RoleIDs: "2, 1,2,",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 3 || created.Email != "new@example.com" || created.RoleIDs != "2,1" {
		t.Errorf("unexpected user %+v", created)
	}
	if created.PasswordHash == "" || created.PasswordHash == "pw" {
		t.Error("password must be hashed")
	}
}

func TestAdminUserService_CreateUser_Errors(t *testing.T) {
	existing := &mockUserRepository{
		findByEmailFunc: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: 1, Email: email}, nil
		},
	}
	tests := []struct {
		name  string
		users *mockUserRepository
		in    CreateUserInput
		want  error
	}{
		{"duplicate email", existing, CreateUserInput{Email: "a@b.c", Password: "pw", RoleIDs: "1"}, ErrUserExists},
		{"bad role ids", &mockUserRepository{}, CreateUserInput{Email: "a@b.c", Password: "pw", RoleIDs: "1,x"}, ErrInvalidRoleIDs},
		{"no roles", &mockUserRepository{}, CreateUserInput{Email: "a@b.c", Password: "pw", RoleIDs: " , "}, ErrRoleRequired},
		{"unknown role", &mockUserRepository{}, CreateUserInput{Email: "a@b.c", Password: "pw", RoleIDs: "1,7"}, ErrRoleNotFound},
		{"no email", &mockUserRepository{}, CreateUserInput{Password: "pw", RoleIDs: "1"}, ErrEmailRequired},
		{"no password", &mockUserRepository{}, CreateUserInput{Email: "a@b.c", RoleIDs: "1"}, ErrPasswordRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAdminUserService(tt.users, defaultRoles())
			if _, err := svc.CreateUser(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// AdminUserService.UpdateUser tests
// ---------------------------------------------------------------------------

func adminUsers(admins int) *mockUserRepository {
	return &mockUserRepository{
		findByIDFunc: func(_ context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Email: "admin@example.com", RoleIDs: "1"}, nil
		},
		countByRoleFunc: func(_ context.Context, roleID int64) (int, error) {
			if roleID != 1 {
				return 0, nil
			}
			return admins, nil
		},
	}
}

func TestAdminUserService_UpdateUser_LastAdminKeepsRole(t *testing.T) {
	svc := NewAdminUserService(adminUsers(1), defaultRoles())

	_, err := svc.UpdateUser(context.Background(), 1, UpdateUserInput{RoleIDs: strp("2")})
	if !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}

	u, err := svc.UpdateUser(context.Background(), 1, UpdateUserInput{RoleIDs: strp("2,1")})
	if err != nil {
		t.Fatalf("keeping admin must succeed: %v", err)
	}
	if u.RoleIDs != "2,1" {
		t.Errorf("role_ids = %q", u.RoleIDs)
	}
}

func TestAdminUserService_UpdateUser_AnotherAdminExists(t *testing.T) {
	svc := NewAdminUserService(adminUsers(2), defaultRoles())
	if _, err := svc.UpdateUser(context.Background(), 1, UpdateUserInput{RoleIDs: strp("2")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdminUserService_UpdateUser_PartialFields(t *testing.T) {
	var saved *model.User
	users := adminUsers(1)
	users.updateFunc = func(_ context.Context, u *model.User) error {
		saved = u
		return nil
	}
	svc := NewAdminUserService(users, defaultRoles())

	if _, err := svc.UpdateUser(context.Background(), 1, UpdateUserInput{Fullname: strp("Root")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Email != "admin@example.com" || saved.RoleIDs != "1" || *saved.Fullname != "Root" || saved.PasswordHash != "" {
		t.Errorf("unexpected saved user %+v", saved)
	}
}

func TestAdminUserService_UpdateUser_DuplicateEmail(t *testing.T) {
	users := adminUsers(2)
	users.updateFunc = func(context.Context, *model.User) error { return repository.ErrDuplicate }
	svc := NewAdminUserService(users, defaultRoles())

	if _, err := svc.UpdateUser(context.Background(), 1, UpdateUserInput{Email: strp("x@y.z")}); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestAdminUserService_UpdateUser_NotFound(t *testing.T) {
	svc := NewAdminUserService(&mockUserRepository{}, defaultRoles())
	if _, err := svc.UpdateUser(context.Background(), 9, UpdateUserInput{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// AdminUserService.DeleteUser tests
// ---------------------------------------------------------------------------

func TestAdminUserService_DeleteUser(t *testing.T) {
	svc := NewAdminUserService(adminUsers(1), defaultRoles())
	if err := svc.DeleteUser(context.Background(), 1); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin, got %v", err)
	}

	deleted := false
	users := adminUsers(3)
	users.deleteFunc = func(context.Context, int64) error { deleted = true; return nil }
	svc = NewAdminUserService(users, defaultRoles())
	if err := svc.DeleteUser(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("repository Delete was not called")
	}
}
