package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
	"github.com/ekaya-inc/ekaya-content/pkg/repositories"
	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

// Pagination defaults for ListProjects.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// JobQueue accepts background tasks.
type JobQueue interface {
	Enqueue(task workqueue.Task) error
}

// ProjectWithContent is a project and its generated content.
type ProjectWithContent struct {
	*models.ContentProject
	GeneratedContent []*models.GeneratedContent `json:"generated_content"`
}

// ProjectPage is one page of projects.
type ProjectPage struct {
	Projects []*models.ContentProject `json:"projects"`
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	PerPage  int                      `json:"per_page"`
}

// ContentService manages content projects and dispatches their generation.
// Calls expect a context carrying the caller's database scope.
type ContentService interface {
	// Generate validates the request, stores a project and queues its generation.
	// The returned project is already in the generating status.
	Generate(ctx context.Context, ownerID string, req GenerateRequest) (*models.ContentProject, error)
	GetProject(ctx context.Context, id uuid.UUID) (*ProjectWithContent, error)
	ListProjects(ctx context.Context, ownerID, status string, page, perPage int) (*ProjectPage, error)
	// Regenerate clears a finished project's content and queues generation again,
	// optionally with new content types and tone.
	Regenerate(ctx context.Context, id uuid.UUID, req RegenerateRequest) (*models.ContentProject, error)
	ListContent(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error)
	UpdateContent(ctx context.Context, contentID uuid.UUID, req UpdateContentRequest) (*models.GeneratedContent, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

type contentService struct {
	projects repositories.ProjectRepository
	contents repositories.ContentRepository
	runner   GenerationRunner
	queue    JobQueue
	logger   *zap.Logger
}

// NewContentService creates a content service.
func NewContentService(
	projects repositories.ProjectRepository,
	contents repositories.ContentRepository,
	runner GenerationRunner,
	queue JobQueue,
	logger *zap.Logger,
) ContentService {
	return &contentService{
		projects: projects,
		contents: contents,
		runner:   runner,
		queue:    queue,
		logger:   logger.Named("content-service"),
	}
}

var _ ContentService = (*contentService)(nil)

func (s *contentService) Generate(ctx context.Context, ownerID string, req GenerateRequest) (*models.ContentProject, error) {
	in, err := ValidateGenerationRequest(req)
	if err != nil {
		return nil, err
	}

	project := &models.ContentProject{
		OwnerID:         ownerID,
		Title:           in.Title,
		Description:     in.Description,
		OriginalPrompt:  in.Prompt,
		TargetPlatforms: in.Platforms,
		ContentTypes:    in.ContentTypes,
		Tone:            in.Tone,
		BrandGuidelines: in.BrandGuidelines,
		Status:          models.ProjectStatusDraft,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if err := s.dispatch(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Generation queued",
		zap.String("project_id", project.ID.String()),
		zap.String("owner_id", ownerID),
		zap.Int("platforms", len(project.TargetPlatforms)),
		zap.Int("content_types", len(project.ContentTypes)))
	return project, nil
}

// dispatch moves a draft project to generating before queueing it, so a
// status read never shows draft for a queued job.
func (s *contentService) dispatch(ctx context.Context, project *models.ContentProject) error {
	if project.Status != models.ProjectStatusGenerating {
		if err := s.projects.TransitionStatus(ctx, project.ID, models.ProjectStatusGenerating); err != nil {
			return fmt.Errorf("failed to start generation: %w", err)
		}
		project.Status = models.ProjectStatusGenerating
	}
	return s.enqueue(ctx, project)
}

// enqueue queues a generating project. If the queue refuses the task the
// project is marked failed so it never stays generating without a worker.
func (s *contentService) enqueue(ctx context.Context, project *models.ContentProject) error {
	task := NewGenerationTask(s.runner, JobSpecFromProject(project))
	err := s.queue.Enqueue(task)
	if err == nil {
		return nil
	}

	s.logger.Warn("Could not queue generation",
		zap.String("project_id", project.ID.String()),
		zap.Error(err))
	if terr := s.projects.TransitionStatus(ctx, project.ID, models.ProjectStatusFailed); terr != nil {
		s.logger.Error("Failed to mark unqueued project failed",
			zap.String("project_id", project.ID.String()),
			zap.Error(terr))
	} else {
		project.Status = models.ProjectStatusFailed
	}
	return err
}

func (s *contentService) GetProject(ctx context.Context, id uuid.UUID) (*ProjectWithContent, error) {
	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.contents.ListByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return &ProjectWithContent{ContentProject: project, GeneratedContent: content}, nil
}

func (s *contentService) ListProjects(ctx context.Context, ownerID, status string, page, perPage int) (*ProjectPage, error) {
	filter := repositories.ProjectFilter{OwnerID: ownerID}
	if status = strings.TrimSpace(status); status != "" {
		st := models.ProjectStatus(strings.ToLower(status))
		if !models.IsValidProjectStatus(st) {
			return nil, &ValidationError{Details: []string{fmt.Sprintf("unknown status %q", status)}}
		}
		filter.Status = st
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	projects, total, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []*models.ContentProject{}
	}
	return &ProjectPage{Projects: projects, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *contentService) Regenerate(ctx context.Context, id uuid.UUID, req RegenerateRequest) (*models.ContentProject, error) {
	contentTypes, tone, err := ValidateRegenerateRequest(req)
	if err != nil {
		return nil, err
	}

	current, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(contentTypes) == 0 {
		contentTypes = current.ContentTypes
	}
	if tone == "" {
		tone = current.Tone
	}
	if countUnits(current.TargetPlatforms, contentTypes) == 0 {
		return nil, &ValidationError{Details: []string{
			"none of the requested content types is supported by the project's platforms",
		}}
	}

	project, err := s.projects.BeginRegeneration(ctx, id, contentTypes, tone)
	if err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Regeneration queued",
		zap.String("project_id", id.String()),
		zap.Int("content_types", len(contentTypes)))
	return project, nil
}

func (s *contentService) ListContent(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	content, err := s.contents.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return content, nil
}

func (s *contentService) UpdateContent(ctx context.Context, contentID uuid.UUID, req UpdateContentRequest) (*models.GeneratedContent, error) {
	current, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if current.IsError() {
		return nil, &ValidationError{Details: []string{"failed content cannot be edited; regenerate the project instead"}}
	}

	spec, ok := models.LookupPlatform(current.Platform)
	if !ok {
		return nil, fmt.Errorf("content %s has unknown platform %q", contentID, current.Platform)
	}
	if err := ValidateUpdateContentRequest(req, spec); err != nil {
		return nil, err
	}

	text := current.GeneratedText
	if req.Text != nil {
		text = strings.TrimSpace(*req.Text)
	}
	hashtags := current.GeneratedHashtags
	if req.Hashtags != nil {
		hashtags = strings.Join(req.Hashtags, " ")
	}

	updated, err := s.contents.UpdateText(ctx, contentID, text, hashtags)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *contentService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if err := s.projects.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.logger.Info("Project deleted", zap.String("project_id", id.String()))
	return nil
}
