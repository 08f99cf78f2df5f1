package services

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

func newContentServiceFixture(t *testing.T, queue JobQueue) (*runnerFixture, ContentService) {
	t.Helper()
	f := newRunnerFixture(t)
	svc := NewContentService(f.projects, f.contents, f.runner, queue, zap.NewNop())
	return f, svc
}

func sortedUnitKeys(rows []*models.GeneratedContent) []unitKey {
	keys := unitKeys(rows)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].platform != keys[j].platform {
			return keys[i].platform < keys[j].platform
		}
		return keys[i].ct < keys[j].ct
	})
	return keys
}

func TestContentService_GenerateDispatchesAsGenerating(t *testing.T) {
	queue := &holdQueue{}
	f, svc := newContentServiceFixture(t, queue)

	project, err := svc.Generate(context.Background(), "user-1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ProjectStatusGenerating, project.Status)
	assert.Equal(t, models.ProjectStatusGenerating, f.projects.status(project.ID),
		"status must be generating before the job runs")
	assert.Equal(t, "user-1", project.OwnerID)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, "generate:"+project.ID.String(), queue.tasks[0].Name())
}

func TestContentService_GenerateRunsToReady(t *testing.T) {
	queue := &inlineQueue{}
	f, svc := newContentServiceFixture(t, queue)

	project, err := svc.Generate(context.Background(), "user-1", validRequest())
	require.NoError(t, err)

	require.Len(t, queue.errs, 1)
	require.NoError(t, queue.errs[0])
	assert.Equal(t, models.ProjectStatusReady, f.projects.status(project.ID))
	assert.Equal(t, []models.ProjectStatus{models.ProjectStatusGenerating, models.ProjectStatusReady}, f.projects.transitions)

	got, err := svc.GetProject(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Len(t, got.GeneratedContent, 4, "instagram and twitter each get text and image")
}

func TestContentService_GenerateValidationHasNoSideEffects(t *testing.T) {
	queue := &holdQueue{}
	f, svc := newContentServiceFixture(t, queue)

	req := validRequest()
	req.Platforms = []string{"myspace"}
	_, err := svc.Generate(context.Background(), "user-1", req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, f.projects.projects)
	assert.Empty(t, queue.tasks)
}

func TestContentService_GenerateQueueFullMarksFailed(t *testing.T) {
	queue := &inlineQueue{rejectWith: apperrors.ErrQueueFull}
	f, svc := newContentServiceFixture(t, queue)

	_, err := svc.Generate(context.Background(), "user-1", validRequest())
	require.ErrorIs(t, err, apperrors.ErrQueueFull)

	require.Len(t, f.projects.projects, 1)
	for id := range f.projects.projects {
		assert.Equal(t, models.ProjectStatusFailed, f.projects.status(id))
	}
}

func TestContentService_RegenerateTwiceSameShape(t *testing.T) {
	queue := &inlineQueue{}
	f, svc := newContentServiceFixture(t, queue)

	req := validRequest()
	req.Platforms = []string{"instagram", "linkedin"}
	req.ContentTypes = []string{"text", "carousel"}
	project, err := svc.Generate(context.Background(), "user-1", req)
	require.NoError(t, err)
	first := sortedUnitKeys(f.contents.forProject(project.ID))
	require.Len(t, first, 3)

	for range 2 {
		_, err := svc.Regenerate(context.Background(), project.ID, RegenerateRequest{})
		require.NoError(t, err)
		assert.Equal(t, first, sortedUnitKeys(f.contents.forProject(project.ID)))
		assert.Equal(t, models.ProjectStatusReady, f.projects.status(project.ID))
	}
	for _, err := range queue.errs {
		assert.NoError(t, err)
	}
}

func TestContentService_RegenerateWithNewContentTypes(t *testing.T) {
	queue := &inlineQueue{}
	f, svc := newContentServiceFixture(t, queue)

	project, err := svc.Generate(context.Background(), "user-1", validRequest())
	require.NoError(t, err)

	updated, err := svc.Regenerate(context.Background(), project.ID,
		RegenerateRequest{ContentTypes: []string{"video"}, Tone: "bold"})
	require.NoError(t, err)
	assert.Equal(t, []models.ContentType{models.ContentTypeVideo}, updated.ContentTypes)
	assert.Equal(t, "bold", updated.Tone)

	rows := f.contents.forProject(project.ID)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, models.ContentTypeVideo, r.ContentType)
		assert.Equal(t, "bold", r.Tone)
	}
}

func TestContentService_RegenerateWhileGenerating(t *testing.T) {
	queue := &holdQueue{}
	_, svc := newContentServiceFixture(t, queue)

	project, err := svc.Generate(context.Background(), "user-1", validRequest())
	require.NoError(t, err)

	_, err = svc.Regenerate(context.Background(), project.ID, RegenerateRequest{})
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Len(t, queue.tasks, 1)
}

func TestContentService_RegenerateMissingProject(t *testing.T) {
	_, svc := newContentServiceFixture(t, &holdQueue{})

	_, err := svc.Regenerate(context.Background(), uuid.New(), RegenerateRequest{})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestContentService_RegenerateUnsupportedTypes(t *testing.T) {
	queue := &inlineQueue{}
	_, svc := newContentServiceFixture(t, queue)

	req := validRequest()
	req.Platforms = []string{"tiktok"}
	req.ContentTypes = []string{"video"}
	project, err := svc.Generate(context.Background(), "user-1", req)
	require.NoError(t, err)

	_, err = svc.Regenerate(context.Background(), project.ID, RegenerateRequest{ContentTypes: []string{"text"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestContentService_ListProjects(t *testing.T) {
	_, svc := newContentServiceFixture(t, &holdQueue{})
	ctx := context.Background()

	for range 3 {
		_, err := svc.Generate(ctx, "user-1", validRequest())
		require.NoError(t, err)
	}
	_, err := svc.Generate(ctx, "user-2", validRequest())
	require.NoError(t, err)

	page, err := svc.ListProjects(ctx, "user-1", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPerPage, page.PerPage)
	assert.Len(t, page.Projects, 3)

	page, err = svc.ListProjects(ctx, "user-1", "generating", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Projects, 1)

	page, err = svc.ListProjects(ctx, "user-1", "ready", 1, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, page.PerPage)
	assert.NotNil(t, page.Projects)
	assert.Empty(t, page.Projects)

	_, err = svc.ListProjects(ctx, "user-1", "archived", 1, 20)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestContentService_UpdateContent(t *testing.T) {
	queue := &inlineQueue{}
	f, svc := newContentServiceFixture(t, queue)

	req := validRequest()
	req.Platforms = []string{"twitter"}
	req.ContentTypes = []string{"text"}
	project, err := svc.Generate(context.Background(), "user-1", req)
	require.NoError(t, err)
	rows := f.contents.forProject(project.ID)
	require.Len(t, rows, 1)

	text := "Edited copy"
	updated, err := svc.UpdateContent(context.Background(), rows[0].ID, UpdateContentRequest{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "Edited copy", updated.GeneratedText)
	assert.Equal(t, rows[0].GeneratedHashtags, updated.GeneratedHashtags, "hashtags unchanged when omitted")

	updated, err = svc.UpdateContent(context.Background(), rows[0].ID, UpdateContentRequest{Hashtags: []string{"#one", "#two"}})
	require.NoError(t, err)
	assert.Equal(t, "#one #two", updated.GeneratedHashtags)
	assert.Equal(t, "Edited copy", updated.GeneratedText)

	_, err = svc.UpdateContent(context.Background(), uuid.New(), UpdateContentRequest{Text: &text})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestContentService_UpdateErrorRowRejected(t *testing.T) {
	f, svc := newContentServiceFixture(t, &holdQueue{})
	row := models.NewErrorContent(uuid.New(), models.PlatformTwitter, models.ContentTypeText, "neutral",
		models.GenerationParameters{}, "rejected", "nope")
	require.NoError(t, f.contents.Create(context.Background(), row))

	text := "fix"
	_, err := svc.UpdateContent(context.Background(), row.ID, UpdateContentRequest{Text: &text})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestContentService_DeleteProject(t *testing.T) {
	_, svc := newContentServiceFixture(t, &holdQueue{})
	ctx := context.Background()

	project, err := svc.Generate(ctx, "user-1", validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, project.ID))

	_, err = svc.GetProject(ctx, project.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.ListContent(ctx, project.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, svc.DeleteProject(ctx, project.ID), apperrors.ErrNotFound)
}

func TestContentService_RunnerErrorSurfacesOnTask(t *testing.T) {
	queue := &inlineQueue{}
	f, svc := newContentServiceFixture(t, queue)
	f.contents.createErr = func(*models.GeneratedContent) error { return errors.New("disk full") }

	project, err := svc.Generate(context.Background(), "user-1", validRequest())
	require.NoError(t, err, "generation is accepted even though the background run fails")

	require.Len(t, queue.errs, 1)
	assert.Error(t, queue.errs[0])
	assert.Equal(t, models.ProjectStatusFailed, f.projects.status(project.ID))
}
