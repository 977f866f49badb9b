package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"project-service/internal/models"
)

const fkViolation = "23503"

// Open creates a pgx pool for dsn, verifies it with a ping and exposes it as *sql.DB.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, *sql.DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not create connection pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "database ping failed")
	}

	return pool, stdlib.OpenDBFromPool(pool), nil
}

const projectColumns = `id, artisan_id, title, description, location, start_date, end_date, budget, status`

// ProjectPostgresRepository stores projects in PostgreSQL.
type ProjectPostgresRepository struct {
	db querier
}

func NewProjectPostgresRepository(db *sql.DB) *ProjectPostgresRepository {
	return &ProjectPostgresRepository{db: db}
}

func (r *ProjectPostgresRepository) Insert(ctx context.Context, p *models.Project) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO projects (artisan_id, title, description, location, start_date, end_date, budget, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		p.ArtisanID, p.Title, nullString(p.Description), nullString(p.Location),
		nullDate(p.StartDate), nullDate(p.EndDate), nullFloat(p.Budget), string(p.Status),
	).Scan(&p.ID)
	if err != nil {
		return errors.Wrap(err, "could not insert project")
	}
	return nil
}

func (r *ProjectPostgresRepository) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not load project %d", id)
	}
	return p, nil
}

func (r *ProjectPostgresRepository) FindAll(ctx context.Context) ([]models.Project, error) {
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id ASC`)
}

func (r *ProjectPostgresRepository) FindByArtisanID(ctx context.Context, artisanID int64) ([]models.Project, error) {
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects WHERE artisan_id = $1 ORDER BY id ASC`, artisanID)
}

func (r *ProjectPostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "could not list projects")
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.Wrap(err, "could not scan project")
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "could not iterate projects")
	}
	return projects, nil
}

func (r *ProjectPostgresRepository) Update(ctx context.Context, p *models.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET artisan_id = $1, title = $2, description = $3, location = $4,
		    start_date = $5, end_date = $6, budget = $7, status = $8
		WHERE id = $9`,
		p.ArtisanID, p.Title, nullString(p.Description), nullString(p.Location),
		nullDate(p.StartDate), nullDate(p.EndDate), nullFloat(p.Budget), string(p.Status), p.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "could not update project %d", p.ID)
	}
	return requireAffected(res)
}

// DeleteByID removes the project; its updates go with it through ON DELETE CASCADE.
func (r *ProjectPostgresRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "could not delete project %d", id)
	}
	return requireAffected(res)
}

// UpdatePostgresRepository stores chantier updates in PostgreSQL.
type UpdatePostgresRepository struct {
	db querier
}

func NewUpdatePostgresRepository(db *sql.DB) *UpdatePostgresRepository {
	return &UpdatePostgresRepository{db: db}
}

func (r *UpdatePostgresRepository) Insert(ctx context.Context, u *models.ChantierUpdate) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chantier_updates (project_id, progress_percent, note, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		u.ProjectID, u.ProgressPercent, nullString(u.Note), u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			// the project vanished between the existence check and the insert
			return ErrNotFound
		}
		return errors.Wrap(err, "could not insert chantier update")
	}
	return nil
}

func (r *UpdatePostgresRepository) FindByProjectID(ctx context.Context, projectID int64) ([]models.ChantierUpdate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, progress_percent, note, created_at
		FROM chantier_updates
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "could not list chantier updates")
	}
	defer rows.Close()

	updates := []models.ChantierUpdate{}
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "could not scan chantier update")
		}
		updates = append(updates, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "could not iterate chantier updates")
	}
	return updates, nil
}

func (r *UpdatePostgresRepository) LatestByProjectIDs(ctx context.Context, projectIDs []int64) (map[int64]models.ChantierUpdate, error) {
	latest := make(map[int64]models.ChantierUpdate, len(projectIDs))
	if len(projectIDs) == 0 {
		return latest, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (project_id) id, project_id, progress_percent, note, created_at
		FROM chantier_updates
		WHERE project_id = ANY($1)
		ORDER BY project_id, created_at DESC, id DESC`, pq.Array(projectIDs))
	if err != nil {
		return nil, errors.Wrap(err, "could not load latest chantier updates")
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "could not scan chantier update")
		}
		latest[u.ProjectID] = *u
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "could not iterate chantier updates")
	}
	return latest, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*models.Project, error) {
	var (
		p                  models.Project
		description, loc   sql.NullString
		startDate, endDate sql.NullTime
		budget             sql.NullFloat64
		status             string
	)
	if err := s.Scan(&p.ID, &p.ArtisanID, &p.Title, &description, &loc, &startDate, &endDate, &budget, &status); err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if loc.Valid {
		p.Location = &loc.String
	}
	if startDate.Valid {
		d := models.Date{Time: startDate.Time.UTC()}
		p.StartDate = &d
	}
	if endDate.Valid {
		d := models.Date{Time: endDate.Time.UTC()}
		p.EndDate = &d
	}
	if budget.Valid {
		p.Budget = &budget.Float64
	}
	p.Status = models.ProjectStatus(status)
	return &p, nil
}

func scanUpdate(s scanner) (*models.ChantierUpdate, error) {
	var (
		u    models.ChantierUpdate
		note sql.NullString
	)
	if err := s.Scan(&u.ID, &u.ProjectID, &u.ProgressPercent, &note, &u.CreatedAt); err != nil {
		return nil, err
	}
	if note.Valid {
		u.Note = &note.String
	}
	return &u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not read affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullDate(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
