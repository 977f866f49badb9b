package store

import (
	"context"
	"sort"
	"sync"

	"project-service/internal/models"
)

// Memory is an in-process store backing both repositories. It is used by
// tests and by STORE_DRIVER=memory.
type Memory struct {
	mu            sync.RWMutex
	projects      map[int64]models.Project
	updates       map[int64]models.ChantierUpdate
	nextProjectID int64
	nextUpdateID  int64
}

func NewMemory() *Memory {
	return &Memory{
		projects: make(map[int64]models.Project),
		updates:  make(map[int64]models.ChantierUpdate),
	}
}

// Projects returns the project repository view of m.
func (m *Memory) Projects() ProjectRepository { return memoryProjects{m} }

// Updates returns the chantier update repository view of m.
func (m *Memory) Updates() UpdateRepository { return memoryUpdates{m} }

type memoryProjects struct{ m *Memory }

func (r memoryProjects) Insert(ctx context.Context, p *models.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextProjectID++
	p.ID = r.m.nextProjectID
	r.m.projects[p.ID] = cloneProject(*p)
	return nil
}

func (r memoryProjects) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneProject(p)
	return &out, nil
}

func (r memoryProjects) FindAll(ctx context.Context) ([]models.Project, error) {
	return r.filter(func(models.Project) bool { return true }), nil
}

func (r memoryProjects) FindByArtisanID(ctx context.Context, artisanID int64) ([]models.Project, error) {
	return r.filter(func(p models.Project) bool { return p.ArtisanID == artisanID }), nil
}

func (r memoryProjects) filter(keep func(models.Project) bool) []models.Project {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := []models.Project{}
	for _, p := range r.m.projects {
		if keep(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memoryProjects) Update(ctx context.Context, p *models.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.projects[p.ID]; !ok {
		return ErrNotFound
	}
	r.m.projects[p.ID] = cloneProject(*p)
	return nil
}

func (r memoryProjects) DeleteByID(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.projects, id)
	for uid, u := range r.m.updates {
		if u.ProjectID == id {
			delete(r.m.updates, uid)
		}
	}
	return nil
}

type memoryUpdates struct{ m *Memory }

func (r memoryUpdates) Insert(ctx context.Context, u *models.ChantierUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.projects[u.ProjectID]; !ok {
		return ErrNotFound
	}
	r.m.nextUpdateID++
	u.ID = r.m.nextUpdateID
	r.m.updates[u.ID] = cloneUpdate(*u)
	return nil
}

func (r memoryUpdates) FindByProjectID(ctx context.Context, projectID int64) ([]models.ChantierUpdate, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := []models.ChantierUpdate{}
	for _, u := range r.m.updates {
		if u.ProjectID == projectID {
			out = append(out, cloneUpdate(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return out, nil
}

func (r memoryUpdates) LatestByProjectIDs(ctx context.Context, projectIDs []int64) (map[int64]models.ChantierUpdate, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	wanted := make(map[int64]bool, len(projectIDs))
	for _, id := range projectIDs {
		wanted[id] = true
	}
	latest := make(map[int64]models.ChantierUpdate, len(projectIDs))
	for _, u := range r.m.updates {
		if !wanted[u.ProjectID] {
			continue
		}
		if cur, ok := latest[u.ProjectID]; !ok || newerFirst(u, cur) {
			latest[u.ProjectID] = cloneUpdate(u)
		}
	}
	return latest, nil
}

// newerFirst orders by created_at DESC, id DESC.
func newerFirst(a, b models.ChantierUpdate) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func cloneProject(p models.Project) models.Project {
	p.Description = cloneString(p.Description)
	p.Location = cloneString(p.Location)
	if p.StartDate != nil {
		d := *p.StartDate
		p.StartDate = &d
	}
	if p.EndDate != nil {
		d := *p.EndDate
		p.EndDate = &d
	}
	if p.Budget != nil {
		b := *p.Budget
		p.Budget = &b
	}
	return p
}

func cloneUpdate(u models.ChantierUpdate) models.ChantierUpdate {
	u.Note = cloneString(u.Note)
	return u
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
