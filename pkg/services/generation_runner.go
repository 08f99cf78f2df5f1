package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/database"
	"github.com/ekaya-inc/ekaya-content/pkg/llm"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
	"github.com/ekaya-inc/ekaya-content/pkg/prompts"
	"github.com/ekaya-inc/ekaya-content/pkg/providers"
	"github.com/ekaya-inc/ekaya-content/pkg/repositories"
)

// Quality scores recorded for successful units.
const (
	textQualityScore     = 0.75
	imageQualityScore    = 0.85
	videoQualityScore    = 0.8
	carouselQualityScore = 0.8
)

const (
	defaultVideoSeconds   = 30
	defaultCarouselSlides = 3
	defaultMediaQuality   = "standard"
	// markFailedTimeout bounds the best-effort status write after an orchestration fault.
	markFailedTimeout = 10 * time.Second
)

// JobSpec is the input of one generation run.
type JobSpec struct {
	ProjectID       uuid.UUID
	Prompt          string
	Platforms       []models.Platform
	ContentTypes    []models.ContentType
	Tone            string
	BrandGuidelines string
}

// JobSpecFromProject builds the run input from a stored project.
func JobSpecFromProject(p *models.ContentProject) JobSpec {
	return JobSpec{
		ProjectID:       p.ID,
		Prompt:          p.OriginalPrompt,
		Platforms:       p.TargetPlatforms,
		ContentTypes:    p.ContentTypes,
		Tone:            p.Tone,
		BrandGuidelines: p.BrandGuidelinesText(),
	}
}

// RunnerConfig configures a GenerationRunner.
type RunnerConfig struct {
	// UnitTimeout bounds one (platform, content type) unit. Zero means no limit.
	UnitTimeout time.Duration
	// CarouselSlides is the number of images in a carousel unit.
	CarouselSlides int
}

// GenerationRunner executes generation jobs in the background.
type GenerationRunner interface {
	// Run generates one row per (platform, content type) unit, then marks the
	// project ready. A failing unit is recorded as an error row and never stops
	// the run. An error is returned only for orchestration faults, after the
	// project has been marked failed.
	Run(ctx context.Context, spec JobSpec) error
	// Abandon marks a job's project failed without running it.
	Abandon(ctx context.Context, spec JobSpec, reason string)
}

type generationRunner struct {
	projects   repositories.ProjectRepository
	contents   repositories.ContentRepository
	scope      database.ScopeFunc
	dispatcher *providers.Dispatcher
	costs      *CostEstimator
	cfg        RunnerConfig
	logger     *zap.Logger
}

// NewGenerationRunner creates a runner. scope supplies the database
// connection for each repository call; background jobs run without an owner.
func NewGenerationRunner(
	projects repositories.ProjectRepository,
	contents repositories.ContentRepository,
	scope database.ScopeFunc,
	dispatcher *providers.Dispatcher,
	costs *CostEstimator,
	cfg RunnerConfig,
	logger *zap.Logger,
) GenerationRunner {
	if cfg.CarouselSlides <= 0 {
		cfg.CarouselSlides = defaultCarouselSlides
	}
	return &generationRunner{
		projects:   projects,
		contents:   contents,
		scope:      scope,
		dispatcher: dispatcher,
		costs:      costs,
		cfg:        cfg,
		logger:     logger.Named("generation-runner"),
	}
}

var _ GenerationRunner = (*generationRunner)(nil)

// withScope runs fn with a scoped connection held only for its duration,
// so slow provider calls never pin a pool connection.
func (r *generationRunner) withScope(ctx context.Context, fn func(ctx context.Context) error) error {
	scopedCtx, cleanup, err := r.scope(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire database scope: %w", err)
	}
	defer cleanup()
	return fn(scopedCtx)
}

func (r *generationRunner) Run(ctx context.Context, spec JobSpec) error {
	log := r.logger.With(zap.String("project_id", spec.ProjectID.String()))
	start := time.Now()

	var project *models.ContentProject
	err := r.withScope(ctx, func(ctx context.Context) error {
		var err error
		project, err = r.projects.Get(ctx, spec.ProjectID)
		return err
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		log.Info("Project no longer exists, skipping generation")
		return nil
	}
	if err != nil {
		return r.fail(ctx, spec.ProjectID, fmt.Errorf("failed to load project: %w", err))
	}
	if project.Status != models.ProjectStatusGenerating {
		log.Warn("Project is not generating, skipping stale job", zap.String("status", string(project.Status)))
		return nil
	}

	log.Info("Generation started",
		zap.Int("platforms", len(spec.Platforms)),
		zap.Int("content_types", len(spec.ContentTypes)))

	var units, failed int
	for _, platform := range spec.Platforms {
		pspec, ok := models.LookupPlatform(platform)
		if !ok {
			log.Warn("Skipping unknown platform", zap.String("platform", string(platform)))
			continue
		}
		for _, ct := range spec.ContentTypes {
			if !pspec.Supports(ct) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return r.fail(ctx, spec.ProjectID, fmt.Errorf("generation interrupted: %w", err))
			}

			row := r.runUnit(ctx, spec, pspec, ct)
			if err := r.withScope(ctx, func(ctx context.Context) error {
				return r.contents.Create(ctx, row)
			}); err != nil {
				return r.fail(ctx, spec.ProjectID,
					fmt.Errorf("failed to save %s %s content: %w", platform, ct, err))
			}

			units++
			if row.IsError() {
				failed++
			}
		}
	}

	if err := r.withScope(ctx, func(ctx context.Context) error {
		return r.projects.TransitionStatus(ctx, spec.ProjectID, models.ProjectStatusReady)
	}); err != nil {
		return r.fail(ctx, spec.ProjectID, fmt.Errorf("failed to mark project ready: %w", err))
	}

	log.Info("Generation finished",
		zap.Int("units", units),
		zap.Int("failed_units", failed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *generationRunner) Abandon(ctx context.Context, spec JobSpec, reason string) {
	_ = r.fail(ctx, spec.ProjectID, errors.New(reason))
}

// fail marks the project failed, best effort, and returns cause.
// The write uses a fresh deadline so a cancelled run can still record failure.
func (r *generationRunner) fail(ctx context.Context, projectID uuid.UUID, cause error) error {
	r.logger.Error("Generation failed",
		zap.String("project_id", projectID.String()),
		zap.Error(cause))

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()

	err := r.withScope(writeCtx, func(ctx context.Context) error {
		return r.projects.TransitionStatus(ctx, projectID, models.ProjectStatusFailed)
	})
	if err != nil {
		r.logger.Error("Failed to mark project failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}
	return cause
}

// unitFailure describes why a unit produced no content.
type unitFailure struct {
	kind   string
	detail string
}

func failureFromResult(res providers.Result) *unitFailure {
	if res.Error == nil {
		return &unitFailure{kind: string(providers.ErrorKindInternal), detail: "provider returned no result"}
	}
	return &unitFailure{kind: string(res.Error.Kind), detail: res.Error.Detail()}
}

// runUnit generates one unit and always returns a row to persist.
func (r *generationRunner) runUnit(ctx context.Context, spec JobSpec, pspec *models.PlatformSpec, ct models.ContentType) (row *models.GeneratedContent) {
	ctx = llm.WithUnitContext(ctx, spec.ProjectID, string(pspec.Name), string(ct))
	if r.cfg.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.UnitTimeout)
		defer cancel()
	}

	if spec.Tone == "" {
		spec.Tone = models.DefaultTone
	}
	tone := spec.Tone
	params := models.GenerationParameters{
		Version:     models.GenerationParametersVersion,
		Prompt:      spec.Prompt,
		Platform:    pspec.Name,
		ContentType: ct,
		Tone:        tone,
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Content unit panicked", append(llm.ContextFields(ctx),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))...)
			row = models.NewErrorContent(spec.ProjectID, pspec.Name, ct, tone, params,
				string(providers.ErrorKindInternal), fmt.Sprintf("unexpected failure: %v", p))
		}
	}()

	var (
		content *models.GeneratedContent
		failure *unitFailure
	)
	switch ct {
	case models.ContentTypeText:
		content, failure = r.generateText(ctx, spec, pspec, &params)
	case models.ContentTypeImage:
		content, failure = r.generateImage(ctx, spec, pspec, &params)
	case models.ContentTypeVideo:
		content, failure = r.generateVideo(ctx, spec, pspec, &params)
	case models.ContentTypeCarousel:
		content, failure = r.generateCarousel(ctx, spec, pspec, &params)
	default:
		failure = &unitFailure{kind: string(providers.ErrorKindUnsupportedKind), detail: fmt.Sprintf("unsupported content type %q", ct)}
	}

	if failure != nil {
		r.logger.Warn("Content unit failed", append(llm.ContextFields(ctx),
			zap.String("error_kind", failure.kind),
			zap.String("error", failure.detail))...)
		return models.NewErrorContent(spec.ProjectID, pspec.Name, ct, tone, params, failure.kind, failure.detail)
	}

	content.ID = uuid.New()
	content.ProjectID = spec.ProjectID
	content.Platform = pspec.Name
	content.ContentType = ct
	content.Tone = tone
	content.Parameters = params
	if content.MediaURLs == nil {
		content.MediaURLs = []string{}
	}
	return content
}

func (r *generationRunner) generateText(ctx context.Context, spec JobSpec, pspec *models.PlatformSpec, params *models.GenerationParameters) (*models.GeneratedContent, *unitFailure) {
	req := providers.Request{
		Prompt:       prompts.TextUserPrompt(pspec, spec.Prompt, spec.Tone),
		SystemPrompt: prompts.TextSystemPrompt(pspec, spec.Tone, spec.BrandGuidelines),
		Platform:     string(pspec.Name),
		Tone:         spec.Tone,
		MaxLength:    pspec.MaxTextLength,
	}
	params.ProviderPrompt = req.Prompt

	res := r.dispatcher.GenerateDefault(ctx, providers.KindText, req)
	params.Provider = string(res.Provider)
	if !res.Success {
		return nil, failureFromResult(res)
	}

	post := fitToPlatform(res.Asset.Text, pspec)
	if post.Body == "" {
		return nil, &unitFailure{kind: string(providers.ErrorKindRejected), detail: "generated text contained no body"}
	}

	return &models.GeneratedContent{
		GeneratedText:     post.Body,
		GeneratedHashtags: strings.Join(post.Hashtags, " "),
		ModelUsed:         res.Asset.Model,
		QualityScore:      textQualityScore,
		EstimatedCostUSD:  r.costs.Estimate(res.Provider, providers.KindText, defaultMediaQuality, 0),
	}, nil
}

func (r *generationRunner) generateImage(ctx context.Context, spec JobSpec, pspec *models.PlatformSpec, params *models.GenerationParameters) (*models.GeneratedContent, *unitFailure) {
	req := providers.Request{
		Prompt:      prompts.ImagePrompt(pspec, spec.Prompt, spec.Tone),
		Platform:    string(pspec.Name),
		Tone:        spec.Tone,
		Quality:     defaultMediaQuality,
		AspectRatio: pspec.ImageAspectRatio,
	}
	params.ProviderPrompt = req.Prompt
	params.Quality = req.Quality

	res := r.dispatcher.GenerateDefault(ctx, providers.KindImage, req)
	params.Provider = string(res.Provider)
	if !res.Success {
		return nil, failureFromResult(res)
	}

	return &models.GeneratedContent{
		GeneratedText:    assetDescription(res.Asset, req.Prompt),
		MediaURLs:        []string{res.Asset.URL},
		ModelUsed:        res.Asset.Model,
		QualityScore:     imageQualityScore,
		EstimatedCostUSD: r.costs.Estimate(res.Provider, providers.KindImage, assetQuality(res.Asset, req.Quality), 0),
	}, nil
}

func (r *generationRunner) generateVideo(ctx context.Context, spec JobSpec, pspec *models.PlatformSpec, params *models.GenerationParameters) (*models.GeneratedContent, *unitFailure) {
	secs := pspec.DefaultVideoSeconds
	if secs <= 0 {
		secs = defaultVideoSeconds
	}
	req := providers.Request{
		Prompt:          prompts.VideoPrompt(pspec, spec.Prompt, spec.Tone, secs),
		Platform:        string(pspec.Name),
		Tone:            spec.Tone,
		Quality:         defaultMediaQuality,
		AspectRatio:     pspec.ImageAspectRatio,
		DurationSeconds: secs,
	}
	params.ProviderPrompt = req.Prompt
	params.Quality = req.Quality
	params.DurationSecs = secs

	res := r.dispatcher.GenerateDefault(ctx, providers.KindVideo, req)
	params.Provider = string(res.Provider)
	if !res.Success {
		return nil, failureFromResult(res)
	}

	duration := res.Asset.DurationSeconds
	if duration <= 0 {
		duration = secs
	}
	return &models.GeneratedContent{
		GeneratedText:    assetDescription(res.Asset, req.Prompt),
		MediaURLs:        []string{res.Asset.URL},
		ModelUsed:        res.Asset.Model,
		QualityScore:     videoQualityScore,
		EstimatedCostUSD: r.costs.Estimate(res.Provider, providers.KindVideo, assetQuality(res.Asset, req.Quality), duration),
	}, nil
}

// generateCarousel creates the slides on one provider. Any failed slide
// fails the unit.
func (r *generationRunner) generateCarousel(ctx context.Context, spec JobSpec, pspec *models.PlatformSpec, params *models.GenerationParameters) (*models.GeneratedContent, *unitFailure) {
	id, ok := r.dispatcher.Registry().Default(providers.KindImage)
	if !ok {
		return nil, &unitFailure{kind: string(providers.ErrorKindNotConfigured), detail: "no image provider configured"}
	}
	params.Provider = string(id)
	params.Quality = defaultMediaQuality

	total := r.cfg.CarouselSlides
	reqs := make([]providers.Request, total)
	for i := range reqs {
		reqs[i] = providers.Request{
			Prompt:      prompts.CarouselSlidePrompt(pspec, spec.Prompt, spec.Tone, i+1, total),
			Platform:    string(pspec.Name),
			Tone:        spec.Tone,
			Quality:     defaultMediaQuality,
			AspectRatio: pspec.ImageAspectRatio,
		}
	}
	params.ProviderPrompt = prompts.ImagePrompt(pspec, spec.Prompt, spec.Tone)

	results := r.dispatcher.GenerateBatch(ctx, id, providers.KindImage, reqs)

	urls := make([]string, 0, len(results))
	var cost float64
	var model string
	for i, res := range results {
		if !res.Success {
			f := failureFromResult(res)
			f.detail = fmt.Sprintf("slide %d of %d: %s", i+1, total, f.detail)
			return nil, f
		}
		urls = append(urls, res.Asset.URL)
		cost += r.costs.Estimate(res.Provider, providers.KindImage, assetQuality(res.Asset, defaultMediaQuality), 0)
		model = res.Asset.Model
	}

	return &models.GeneratedContent{
		GeneratedText:    fmt.Sprintf("%d-slide carousel for %s: %s", total, pspec.Name, spec.Prompt),
		MediaURLs:        urls,
		ModelUsed:        model,
		QualityScore:     carouselQualityScore,
		EstimatedCostUSD: roundCost(cost),
	}, nil
}

func assetDescription(a *providers.Asset, fallback string) string {
	if a.PromptUsed != "" {
		return a.PromptUsed
	}
	return fallback
}

func assetQuality(a *providers.Asset, fallback string) string {
	if q := a.Metadata["quality"]; q != "" {
		return q
	}
	return fallback
}
