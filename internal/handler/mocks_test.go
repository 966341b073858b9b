package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/internal/service"
	"github.com/morf1ng/105site/internal/storage"
	"github.com/morf1ng/105site/pkg/auth"
)

// ---------------------------------------------------------------------------
// Mock ProjectService
// ---------------------------------------------------------------------------

type mockProjectService struct {
	listFunc    func(ctx context.Context) ([]*model.ProjectSummary, error)
	getByIDFunc func(ctx context.Context, id int64) (*model.Project, error)
	createFunc  func(ctx context.Context, in *service.ProjectInput) (*model.Project, error)
	updateFunc  func(ctx context.Context, id int64, in *service.ProjectInput) (*model.Project, error)
	deleteFunc  func(ctx context.Context, id int64) error
}

func (m *mockProjectService) List(ctx context.Context) ([]*model.ProjectSummary, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []*model.ProjectSummary{}, nil
}
func (m *mockProjectService) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockProjectService) Create(ctx context.Context, in *service.ProjectInput) (*model.Project, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return &model.Project{ID: 1, Title: in.Title, URL: in.URL}, nil
}
func (m *mockProjectService) Update(ctx context.Context, id int64, in *service.ProjectInput) (*model.Project, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, in)
	}
	return &model.Project{ID: id, Title: in.Title, URL: in.URL}, nil
}
func (m *mockProjectService) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc   func(ctx context.Context, email, password string) (auth.TokenPair, error)
	refreshFunc func(ctx context.Context, token string) (auth.TokenPair, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return auth.TokenPair{}, service.ErrInvalidCredentials
}
func (m *mockAuthService) Refresh(ctx context.Context, token string) (auth.TokenPair, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, token)
	}
	return auth.TokenPair{}, service.ErrInvalidRefreshToken
}

// ---------------------------------------------------------------------------
// Mock AdminUserService
// ---------------------------------------------------------------------------

type mockAdminUserService struct {
	listUsersFunc  func(ctx context.Context) ([]*model.User, error)
	getUserFunc    func(ctx context.Context, id int64) (*model.User, error)
	createUserFunc func(ctx context.Context, in service.CreateUserInput) (*model.User, error)
	updateUserFunc func(ctx context.Context, id int64, in service.UpdateUserInput) (*model.User, error)
	deleteUserFunc func(ctx context.Context, id int64) error
}

func (m *mockAdminUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx)
	}
	return []*model.User{}, nil
}
func (m *mockAdminUserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockAdminUserService) CreateUser(ctx context.Context, in service.CreateUserInput) (*model.User, error) {
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, in)
	}
	return &model.User{ID: 1, Email: in.Email, RoleIDs: in.RoleIDs}, nil
}
func (m *mockAdminUserService) UpdateUser(ctx context.Context, id int64, in service.UpdateUserInput) (*model.User, error) {
	if m.updateUserFunc != nil {
		return m.updateUserFunc(ctx, id, in)
	}
	return &model.User{ID: id}, nil
}
func (m *mockAdminUserService) DeleteUser(ctx context.Context, id int64) error {
	if m.deleteUserFunc != nil {
		return m.deleteUserFunc(ctx, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock RoleService
// ---------------------------------------------------------------------------

type mockRoleService struct {
	createRoleFunc func(ctx context.Context, name string) (*model.Role, error)
	deleteRoleFunc func(ctx context.Context, id int64) error
}

func (m *mockRoleService) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return []*model.Role{{ID: 1, Name: "admin"}}, nil
}
func (m *mockRoleService) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	if m.createRoleFunc != nil {
		return m.createRoleFunc(ctx, name)
	}
	return &model.Role{ID: 2, Name: name}, nil
}
func (m *mockRoleService) UpdateRole(ctx context.Context, id int64, name string) (*model.Role, error) {
	return &model.Role{ID: id, Name: name}, nil
}
func (m *mockRoleService) DeleteRole(ctx context.Context, id int64) error {
	if m.deleteRoleFunc != nil {
		return m.deleteRoleFunc(ctx, id)
	}
	return nil
}

type mockTables []string

func (m mockTables) ListTables(context.Context) ([]string, error) { return m, nil }

// ---------------------------------------------------------------------------
// Router fixture
// ---------------------------------------------------------------------------

type routerFixture struct {
	handler  http.Handler
	issuer   *auth.TokenIssuer
	projects *mockProjectService
	users    *mockAdminUserService
	roles    *mockRoleService
	auth     *mockAuthService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("handler-test-secret")
	if err != nil {
		t.Fatal(err)
	}
	f := &routerFixture{
		issuer:   issuer,
		projects: &mockProjectService{},
		users:    &mockAdminUserService{},
		roles:    &mockRoleService{},
		auth:     &mockAuthService{},
	}
	f.handler = NewRouter(RouterConfig{
		Handler:  New(&mockDB{}, "*"),
		Projects: NewProjectHandler(f.projects),
		Auth:     NewAuthHandler(f.auth),
		Users:    NewAdminUserHandler(f.users),
		Roles:    NewRoleHandler(f.roles),
		Uploads:  NewUploadHandler(storage.NewLocalStorage(t.TempDir())),
		Tables:   mockTables{"project", "users"},
		Issuer:   issuer,
		Metrics:  NewMetrics(),
	})
	return f
}

// token は roles を持つアクセストークンを返す
func (f *routerFixture) token(t *testing.T, roles ...string) string {
	t.Helper()
	pair, err := f.issuer.Issue(1, roles)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + pair.AccessToken
}
