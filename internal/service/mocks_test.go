package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/internal/storage"
)

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepository struct {
	listFunc        func(ctx context.Context) ([]*model.User, error)
	findByIDFunc    func(ctx context.Context, id int64) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	createFunc      func(ctx context.Context, u *model.User) error
	updateFunc      func(ctx context.Context, u *model.User) error
	deleteFunc      func(ctx context.Context, id int64) error
	countByRoleFunc func(ctx context.Context, roleID int64) (int, error)
}

func (m *mockUserRepository) List(ctx context.Context) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}
func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, repository.ErrNotFound
}
func (m *mockUserRepository) Create(ctx context.Context, u *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, u)
	}
	u.ID = 1
	return nil
}
func (m *mockUserRepository) Update(ctx context.Context, u *model.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, u)
	}
	return nil
}
func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}
func (m *mockUserRepository) CountByRole(ctx context.Context, roleID int64) (int, error) {
	if m.countByRoleFunc != nil {
		return m.countByRoleFunc(ctx, roleID)
	}
	return 0, nil
}

// ---------------------------------------------------------------------------
// Mock RoleRepository
// ---------------------------------------------------------------------------

// mockRoleRepository は roles を固定データとして振る舞う
type mockRoleRepository struct {
	roles      []*model.Role
	createFunc func(ctx context.Context, r *model.Role) error
	updateFunc func(ctx context.Context, r *model.Role) error
	deleteFunc func(ctx context.Context, id int64) error
}

func (m *mockRoleRepository) List(ctx context.Context) ([]*model.Role, error) {
	return m.roles, nil
}
func (m *mockRoleRepository) FindByID(ctx context.Context, id int64) (*model.Role, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (m *mockRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (m *mockRoleRepository) Create(ctx context.Context, r *model.Role) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, r)
	}
	r.ID = int64(len(m.roles) + 1)
	return nil
}
func (m *mockRoleRepository) Update(ctx context.Context, r *model.Role) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, r)
	}
	return nil
}
func (m *mockRoleRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}
func (m *mockRoleRepository) CountExisting(ctx context.Context, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, err := m.FindByID(ctx, id); err == nil {
			n++
		}
	}
	return n, nil
}

func defaultRoles() *mockRoleRepository {
	return &mockRoleRepository{roles: []*model.Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "editor"}}}
}

// ---------------------------------------------------------------------------
// Mock ProjectRepository
// ---------------------------------------------------------------------------

type mockProjectRepository struct {
	listFunc    func(ctx context.Context) ([]*model.ProjectSummary, error)
	getByIDFunc func(ctx context.Context, id int64) (*model.Project, error)
	createFunc  func(ctx context.Context, p *model.Project) error
	updateFunc  func(ctx context.Context, p *model.Project) error
	deleteFunc  func(ctx context.Context, id int64) error
}

func (m *mockProjectRepository) List(ctx context.Context) ([]*model.ProjectSummary, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}
func (m *mockProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockProjectRepository) Create(ctx context.Context, p *model.Project) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	return nil
}
func (m *mockProjectRepository) Update(ctx context.Context, p *model.Project) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, p)
	}
	return nil
}
func (m *mockProjectRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// memProjectRepository は一件だけ保持するインメモリ実装
type memProjectRepository struct {
	mockProjectRepository
	stored *model.Project
}

func newMemProjectRepository() *memProjectRepository {
	m := &memProjectRepository{}
	m.createFunc = func(_ context.Context, p *model.Project) error {
		p.ID = 1
		cp := *p
		m.stored = &cp
		return nil
	}
	m.updateFunc = func(_ context.Context, p *model.Project) error {
		cp := *p
		m.stored = &cp
		return nil
	}
	m.getByIDFunc = func(_ context.Context, id int64) (*model.Project, error) {
		if m.stored == nil || m.stored.ID != id {
			return nil, repository.ErrNotFound
		}
		cp := *m.stored
		return &cp, nil
	}
	m.deleteFunc = func(_ context.Context, id int64) error {
		m.stored = nil
		return nil
	}
	return m
}

// ---------------------------------------------------------------------------
// In-memory Storage
// ---------------------------------------------------------------------------

type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	types   map[string]string
	deleted []string
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader, contentType string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = b
	s.types[key] = contentType
	return key, nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Size: int64(len(b))}, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}
