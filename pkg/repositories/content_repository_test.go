//go:build integration

package repositories

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

func TestContentRepository_CreateAndList(t *testing.T) {
	tc := setupRepoTest(t)
	ctx, done := tc.systemContext()
	defer done()

	p := tc.createProject(ctx, models.ProjectStatusGenerating)

	ok := &models.GeneratedContent{
		ProjectID:         p.ID,
		Platform:          models.PlatformInstagram,
		ContentType:       models.ContentTypeCarousel,
		GeneratedText:     "Carousel for instagram",
		GeneratedHashtags: "#coffee #autumn",
		MediaURLs:         []string{"https://cdn/1.png", "https://cdn/2.png", "https://cdn/3.png"},
		Tone:              "creative",
		Parameters: models.GenerationParameters{
			Prompt:   "Announce our autumn coffee blend",
			Provider: "openai",
		},
		ModelUsed:        "dall-e-3",
		QualityScore:     0.8,
		EstimatedCostUSD: 0.12,
	}
	if err := tc.content.Create(ctx, ok); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	failed := models.NewErrorContent(p.ID, models.PlatformTwitter, models.ContentTypeVideo, "direct",
		models.GenerationParameters{Prompt: "Announce our autumn coffee blend", Provider: "runway"},
		"timeout", "video still processing")
	if err := tc.content.Create(ctx, failed); err != nil {
		t.Fatalf("Create error row failed: %v", err)
	}

	rows, err := tc.content.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ID != ok.ID || len(first.MediaURLs) != 3 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Parameters.Version != models.GenerationParametersVersion || first.Parameters.Provider != "openai" {
		t.Errorf("unexpected parameters: %+v", first.Parameters)
	}
	if first.EstimatedCostUSD != 0.12 {
		t.Errorf("expected cost 0.12, got %v", first.EstimatedCostUSD)
	}

	second := rows[1]
	if !second.IsError() || second.QualityScore != 0 {
		t.Errorf("expected error row, got model=%q quality=%v", second.ModelUsed, second.QualityScore)
	}
	if second.Parameters.Error == nil || second.Parameters.Error.Kind != "timeout" {
		t.Errorf("expected timeout error kind, got %+v", second.Parameters.Error)
	}
	if len(second.MediaURLs) != 0 {
		t.Errorf("expected empty media urls, got %v", second.MediaURLs)
	}
}

func TestContentRepository_UpdateText(t *testing.T) {
	tc := setupRepoTest(t)
	ctx, done := tc.systemContext()
	defer done()

	p := tc.createProject(ctx, models.ProjectStatusReady)
	c := &models.GeneratedContent{
		ProjectID:     p.ID,
		Platform:      models.PlatformLinkedIn,
		ContentType:   models.ContentTypeText,
		GeneratedText: "draft",
		ModelUsed:     "gpt-4.1-mini",
		QualityScore:  0.75,
	}
	if err := tc.content.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := tc.content.UpdateText(ctx, c.ID, "final copy", "#launch")
	if err != nil {
		t.Fatalf("UpdateText failed: %v", err)
	}
	if updated.GeneratedText != "final copy" || updated.GeneratedHashtags != "#launch" {
		t.Errorf("unexpected update result: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Error("expected updated_at not before created_at")
	}

	if _, err := tc.content.UpdateText(ctx, uuid.New(), "x", ""); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestContentRepository_HiddenWhenProjectSoftDeleted(t *testing.T) {
	tc := setupRepoTest(t)
	ctx, done := tc.systemContext()
	defer done()

	p := tc.createProject(ctx, models.ProjectStatusReady)
	c := &models.GeneratedContent{
		ProjectID:   p.ID,
		Platform:    models.PlatformFacebook,
		ContentType: models.ContentTypeText,
		ModelUsed:   "gpt-4.1-mini",
	}
	if err := tc.content.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := tc.repo.SoftDelete(ctx, p.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	if _, err := tc.content.Get(ctx, c.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for content of deleted project, got %v", err)
	}
}

func TestContentRepository_DeleteByProject(t *testing.T) {
	tc := setupRepoTest(t)
	ctx, done := tc.systemContext()
	defer done()

	p := tc.createProject(ctx, models.ProjectStatusReady)
	for _, platform := range []models.Platform{models.PlatformTwitter, models.PlatformFacebook} {
		c := &models.GeneratedContent{
			ProjectID:   p.ID,
			Platform:    platform,
			ContentType: models.ContentTypeText,
			ModelUsed:   "gpt-4.1-mini",
		}
		if err := tc.content.Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	n, err := tc.content.DeleteByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteByProject failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows deleted, got %d", n)
	}
}
