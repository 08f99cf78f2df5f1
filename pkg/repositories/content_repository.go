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

// ContentRepository defines the interface for generated content data access.
type ContentRepository interface {
	// Create persists one generated unit in a single statement.
	Create(ctx context.Context, content *models.GeneratedContent) error
	Get(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error)
	// UpdateText replaces the text and hashtags of a content row.
	UpdateText(ctx context.Context, id uuid.UUID, text, hashtags string) (*models.GeneratedContent, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type contentRepository struct{}

// NewContentRepository creates a new generated content repository.
func NewContentRepository() ContentRepository {
	return &contentRepository{}
}

const contentColumns = `id, project_id, platform, content_type, generated_text, generated_hashtags,
	media_urls, tone, parameters, model_used, quality_score, estimated_cost_usd, created_at, updated_at`

func (r *contentRepository) Create(ctx context.Context, content *models.GeneratedContent) error {
	conn, err := connFromContext(ctx)
	if err != nil {
		return err
	}

	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	now := time.Now().UTC()
	content.CreatedAt = now
	content.UpdatedAt = now
	if content.MediaURLs == nil {
		content.MediaURLs = []string{}
	}

	params, err := content.Parameters.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal generation parameters: %w", err)
	}

	query := `
		INSERT INTO generated_content (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = conn.Exec(ctx, query,
		content.ID,
		content.ProjectID,
		string(content.Platform),
		string(content.ContentType),
		content.GeneratedText,
		content.GeneratedHashtags,
		content.MediaURLs,
		content.Tone,
		params,
		content.ModelUsed,
		content.QualityScore,
		content.EstimatedCostUSD,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create generated content: %w", err)
	}
	return nil
}

func (r *contentRepository) Get(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// Content of soft-deleted projects is not addressable.
	query := `
		SELECT ` + prefixed("c", contentColumns) + `
		FROM generated_content c
		JOIN content_projects p ON p.id = c.project_id
		WHERE c.id = $1 AND p.deleted_at IS NULL`

	content, err := scanContent(conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get generated content: %w", err)
	}
	return content, nil
}

// ListByProject returns a project's content in creation order.
func (r *contentRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + contentColumns + ` FROM generated_content WHERE project_id = $1 ORDER BY created_at, id`

	rows, err := conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated content: %w", err)
	}
	defer rows.Close()

	contents := make([]*models.GeneratedContent, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generated content: %w", err)
		}
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generated content: %w", err)
	}
	return contents, nil
}

func (r *contentRepository) UpdateText(ctx context.Context, id uuid.UUID, text, hashtags string) (*models.GeneratedContent, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE generated_content c
		SET generated_text = $2, generated_hashtags = $3, updated_at = now()
		FROM content_projects p
		WHERE c.id = $1 AND p.id = c.project_id AND p.deleted_at IS NULL
		RETURNING ` + prefixed("c", contentColumns)

	content, err := scanContent(conn.QueryRow(ctx, query, id, text, hashtags))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update generated content: %w", err)
	}
	return content, nil
}

func (r *contentRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	conn, err := connFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result, err := conn.Exec(ctx, `DELETE FROM generated_content WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete generated content: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanContent(row pgx.Row) (*models.GeneratedContent, error) {
	var c models.GeneratedContent
	var platform, contentType string
	var params []byte

	err := row.Scan(
		&c.ID,
		&c.ProjectID,
		&platform,
		&contentType,
		&c.GeneratedText,
		&c.GeneratedHashtags,
		&c.MediaURLs,
		&c.Tone,
		&params,
		&c.ModelUsed,
		&c.QualityScore,
		&c.EstimatedCostUSD,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Platform = models.Platform(platform)
	c.ContentType = models.ContentType(contentType)
	if err := c.Parameters.Scan(params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation parameters: %w", err)
	}
	return &c, nil
}

// Ensure contentRepository implements ContentRepository at compile time.
var _ ContentRepository = (*contentRepository)(nil)
