package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

// ProjectFilter selects projects for List. Zero values mean "any".
type ProjectFilter struct {
	OwnerID string
	Status  models.ProjectStatus
	Limit   int
	Offset  int
}

// ProjectRepository defines the interface for content project data access.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.ContentProject) error
	Get(ctx context.Context, id uuid.UUID) (*models.ContentProject, error)
	List(ctx context.Context, filter ProjectFilter) ([]*models.ContentProject, int, error)
	// TransitionStatus moves a project to a new status, enforcing models.CanTransition
	// against the stored status under a row lock.
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.ProjectStatus) error
	// BeginRegeneration clears prior generated content, records the new
	// content types and tone, and moves the project to generating in one transaction.
	BeginRegeneration(ctx context.Context, id uuid.UUID, contentTypes []models.ContentType, tone string) (*models.ContentProject, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	// PurgeDeleted permanently removes projects soft-deleted before the cutoff.
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	// FailStale marks live projects stuck in generating since before the cutoff as failed.
	FailStale(ctx context.Context, before time.Time) (int64, error)
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

const projectColumns = `id, owner_id, title, description, original_prompt, target_platforms,
	content_types, tone, brand_guidelines, status, created_at, updated_at, deleted_at`

// Create inserts a new project. ID and timestamps are assigned if unset.
func (r *projectRepository) Create(ctx context.Context, project *models.ContentProject) error {
	conn, err := connFromContext(ctx)
	if err != nil {
		return err
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = models.ProjectStatusDraft
	}

	query := `
		INSERT INTO content_projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL)`

	_, err = conn.Exec(ctx, query,
		project.ID,
		project.OwnerID,
		project.Title,
		project.Description,
		project.OriginalPrompt,
		platformsToStrings(project.TargetPlatforms),
		contentTypesToStrings(project.ContentTypes),
		project.Tone,
		nullableJSON(project.BrandGuidelines),
		string(project.Status),
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a live (not soft-deleted) project by ID.
func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.ContentProject, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + projectColumns + ` FROM content_projects WHERE id = $1 AND deleted_at IS NULL`

	project, err := scanProject(conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// List returns live projects newest first, plus the total matching count.
func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]*models.ContentProject, int, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	where := `WHERE deleted_at IS NULL
		AND ($1 = '' OR owner_id = $1)
		AND ($2 = '' OR status = $2)`

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM content_projects `+where,
		filter.OwnerID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + projectColumns + ` FROM content_projects ` + where + `
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`

	rows, err := conn.Query(ctx, query, filter.OwnerID, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.ContentProject, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, total, nil
}

// TransitionStatus moves a live project to status `to`.
// Returns apperrors.ErrNotFound or an error wrapping apperrors.ErrInvalidTransition.
func (r *projectRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to models.ProjectStatus) error {
	conn, err := connFromContext(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if _, err := lockStatus(ctx, tx, id, to); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE content_projects SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(to)); err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status transition: %w", err)
	}
	return nil
}

func (r *projectRepository) BeginRegeneration(ctx context.Context, id uuid.UUID, contentTypes []models.ContentType, tone string) (*models.ContentProject, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if _, err := lockStatus(ctx, tx, id, models.ProjectStatusGenerating); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM generated_content WHERE project_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear generated content: %w", err)
	}

	query := `
		UPDATE content_projects
		SET status = $2, content_types = $3, tone = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + projectColumns

	project, err := scanProject(tx.QueryRow(ctx, query, id,
		string(models.ProjectStatusGenerating), contentTypesToStrings(contentTypes), tone))
	if err != nil {
		return nil, fmt.Errorf("failed to update project for regeneration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit regeneration: %w", err)
	}
	return project, nil
}

// SoftDelete hides a project from Get and List. Content rows are kept.
func (r *projectRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	conn, err := connFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := conn.Exec(ctx,
		`UPDATE content_projects SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a project by ID.
// Generated content is deleted via CASCADE.
func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	conn, err := connFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := conn.Exec(ctx, `DELETE FROM content_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result, err := conn.Exec(ctx,
		`DELETE FROM content_projects WHERE deleted_at IS NOT NULL AND deleted_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted projects: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *projectRepository) FailStale(ctx context.Context, before time.Time) (int64, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result, err := conn.Exec(ctx, `
		UPDATE content_projects SET status = $1, updated_at = now()
		WHERE status = $2 AND deleted_at IS NULL AND updated_at < $3`,
		models.ProjectStatusFailed, models.ProjectStatusGenerating, before)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale projects: %w", err)
	}
	return result.RowsAffected(), nil
}

// lockStatus reads a live project's status FOR UPDATE and checks the transition.
func lockStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, to models.ProjectStatus) (models.ProjectStatus, error) {
	var current string
	err := tx.QueryRow(ctx,
		`SELECT status FROM content_projects WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to lock project: %w", err)
	}

	from := models.ProjectStatus(current)
	if err := models.CanTransition(from, to); err != nil {
		return from, err
	}
	return from, nil
}

func scanProject(row pgx.Row) (*models.ContentProject, error) {
	var p models.ContentProject
	var platforms, contentTypes []string
	var guidelines []byte
	var status string

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.OriginalPrompt,
		&platforms,
		&contentTypes,
		&p.Tone,
		&guidelines,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.TargetPlatforms = stringsToPlatforms(platforms)
	p.ContentTypes = stringsToContentTypes(contentTypes)
	p.Status = models.ProjectStatus(status)
	if len(guidelines) > 0 {
		p.BrandGuidelines = guidelines
	}
	return &p, nil
}

// Ensure projectRepository implements ProjectRepository at compile time.
var _ ProjectRepository = (*projectRepository)(nil)
