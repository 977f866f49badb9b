// Package service holds the business rules of the project tracker.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"project-service/internal/models"
	"project-service/internal/store"
)

const (
	resourceProject = "project"

	minProgress = 0
	maxProgress = 100
)

// ProjectService handles project and chantier update business logic
type ProjectService struct {
	projects store.ProjectRepository
	updates  store.UpdateRepository
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a ProjectService.
type Option func(*ProjectService)

// WithLogger sets the logger used for mutation events.
func WithLogger(l *slog.Logger) Option {
	return func(s *ProjectService) { s.logger = l }
}

// WithClock replaces the clock that stamps chantier updates.
func WithClock(now func() time.Time) Option {
	return func(s *ProjectService) { s.now = now }
}

// NewProjectService creates a new project service
func NewProjectService(projects store.ProjectRepository, updates store.UpdateRepository, opts ...Option) *ProjectService {
	s := &ProjectService{
		projects: projects,
		updates:  updates,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCreate checks a create request without persisting anything.
func (s *ProjectService) ValidateCreate(req models.CreateProjectRequest) error {
	return Validate(req)
}

// Create persists a new project in the default status
func (s *ProjectService) Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	p := &models.Project{
		ArtisanID:   *req.ArtisanID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Status:      models.DefaultStatus,
	}
	if err := s.projects.Insert(ctx, p); err != nil {
		return nil, &StoreError{Op: "create project", Err: err}
	}

	s.logger.InfoContext(ctx, "project created", "project_id", p.ID, "artisan_id", p.ArtisanID)
	return p, nil
}

// ListAll returns every project
func (s *ProjectService) ListAll(ctx context.Context) ([]models.Project, error) {
	projects, err := s.projects.FindAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list projects", Err: err}
	}
	return projects, nil
}

// Get returns a single project
func (s *ProjectService) Get(ctx context.Context, id int64) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, s.classify(err, "get project", id)
	}
	return p, nil
}

// ListByArtisan returns the projects owned by artisanID
func (s *ProjectService) ListByArtisan(ctx context.Context, artisanID int64) ([]models.Project, error) {
	projects, err := s.projects.FindByArtisanID(ctx, artisanID)
	if err != nil {
		return nil, &StoreError{Op: "list artisan projects", Err: err}
	}
	return projects, nil
}

// Update overwrites only the supplied fields; status is never touched here
func (s *ProjectService) Update(ctx context.Context, id int64, req models.UpdateProjectRequest) (*models.Project, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Location != nil {
		p.Location = req.Location
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		p.EndDate = req.EndDate
	}
	if req.Budget != nil {
		p.Budget = req.Budget
	}

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, s.classify(err, "update project", id)
	}
	return p, nil
}

// UpdateStatus sets the status unconditionally; any status may follow any other
func (s *ProjectService) UpdateStatus(ctx context.Context, id int64, req models.UpdateStatusRequest) (*models.Project, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := p.Status
	p.Status = req.Status
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, s.classify(err, "update project status", id)
	}

	s.logger.InfoContext(ctx, "project status changed", "project_id", id, "from", previous, "to", p.Status)
	return p, nil
}

// AddUpdate records a progress report against an existing project
func (s *ProjectService) AddUpdate(ctx context.Context, id int64, req models.CreateChantierUpdateRequest) (*models.ChantierUpdate, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if pct := *req.ProgressPercent; pct < minProgress || pct > maxProgress {
		return nil, invalidField("progressPercent", "range", "must be between 0 and 100")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	u := &models.ChantierUpdate{
		ProjectID:       id,
		ProgressPercent: *req.ProgressPercent,
		Note:            req.Note,
		CreatedAt:       s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.updates.Insert(ctx, u); err != nil {
		return nil, s.classify(err, "add chantier update", id)
	}

	s.logger.InfoContext(ctx, "chantier update added", "project_id", id, "update_id", u.ID, "progress", u.ProgressPercent)
	return u, nil
}

// ListUpdates returns the updates of an existing project, newest first
func (s *ProjectService) ListUpdates(ctx context.Context, id int64) ([]models.ChantierUpdate, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	updates, err := s.updates.FindByProjectID(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "list chantier updates", Err: err}
	}
	return updates, nil
}

// UpdateHistory returns the updates stored for a project, newest first.
// A project that no longer exists yields an empty history.
func (s *ProjectService) UpdateHistory(ctx context.Context, id int64) ([]models.ChantierUpdate, error) {
	updates, err := s.updates.FindByProjectID(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "list chantier updates", Err: err}
	}
	return updates, nil
}

// LatestUpdates returns the newest update per project for the given ids.
func (s *ProjectService) LatestUpdates(ctx context.Context, ids []int64) (map[int64]models.ChantierUpdate, error) {
	latest, err := s.updates.LatestByProjectIDs(ctx, ids)
	if err != nil {
		return nil, &StoreError{Op: "load latest chantier updates", Err: err}
	}
	return latest, nil
}

// Delete removes a project together with its chantier updates
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	if err := s.projects.DeleteByID(ctx, id); err != nil {
		return s.classify(err, "delete project", id)
	}
	s.logger.InfoContext(ctx, "project deleted", "project_id", id)
	return nil
}

func (s *ProjectService) classify(err error, op string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resourceProject, ID: id}
	}
	return &StoreError{Op: op, Err: err}
}
