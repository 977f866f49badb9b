// Package store persists projects and their chantier updates.
package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"project-service/internal/models"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("not found")

// ProjectRepository is the data access contract for the projects table.
type ProjectRepository interface {
	Insert(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, id int64) (*models.Project, error)
	FindAll(ctx context.Context) ([]models.Project, error)
	FindByArtisanID(ctx context.Context, artisanID int64) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	DeleteByID(ctx context.Context, id int64) error
}

// UpdateRepository is the data access contract for the chantier_updates table.
type UpdateRepository interface {
	Insert(ctx context.Context, u *models.ChantierUpdate) error
	// FindByProjectID returns updates newest first.
	FindByProjectID(ctx context.Context, projectID int64) ([]models.ChantierUpdate, error)
	// LatestByProjectIDs returns the newest update of each listed project that has one.
	LatestByProjectIDs(ctx context.Context, projectIDs []int64) (map[int64]models.ChantierUpdate, error)
}

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
