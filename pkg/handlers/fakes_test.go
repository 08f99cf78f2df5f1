package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
	"github.com/ekaya-inc/ekaya-content/pkg/providers"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-content/pkg/services"
	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

// fakeAuthService authenticates every request as claims, or rejects all
// requests when claims is nil.
type fakeAuthService struct {
	claims *auth.Claims
}

func (f *fakeAuthService) ValidateRequest(r *http.Request) (*auth.Claims, error) {
	if f.claims == nil {
		return nil, auth.ErrMissingAuthorization
	}
	return f.claims, nil
}

func userClaims(sub string, roles ...string) *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Roles:            roles,
	}
}

// guardRecorder records which rate limit scopes and owner scoping were applied.
type guardRecorder struct {
	mu       sync.Mutex
	scopes   []ratelimit.Scope
	ownerHit int
}

func (g *guardRecorder) lastScope() ratelimit.Scope {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.scopes) == 0 {
		return ""
	}
	return g.scopes[len(g.scopes)-1]
}

func testGuards(claims *auth.Claims) (Guards, *guardRecorder) {
	rec := &guardRecorder{}
	return Guards{
		Auth: auth.NewMiddleware(&fakeAuthService{claims: claims}, zap.NewNop()),
		Owner: func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				rec.mu.Lock()
				rec.ownerHit++
				rec.mu.Unlock()
				next(w, r)
			}
		},
		RateLimit: func(scope ratelimit.Scope) RouteMiddleware {
			return func(next http.HandlerFunc) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					rec.mu.Lock()
					rec.scopes = append(rec.scopes, scope)
					rec.mu.Unlock()
					next(w, r)
				}
			}
		},
	}, rec
}

type fakeContentService struct {
	generateFn      func(ctx context.Context, ownerID string, req services.GenerateRequest) (*models.ContentProject, error)
	getProjectFn    func(ctx context.Context, id uuid.UUID) (*services.ProjectWithContent, error)
	listProjectsFn  func(ctx context.Context, ownerID, status string, page, perPage int) (*services.ProjectPage, error)
	regenerateFn    func(ctx context.Context, id uuid.UUID, req services.RegenerateRequest) (*models.ContentProject, error)
	listContentFn   func(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error)
	updateContentFn func(ctx context.Context, contentID uuid.UUID, req services.UpdateContentRequest) (*models.GeneratedContent, error)
	deleteErr       error
	deleted         []uuid.UUID
}

var errNotStubbed = errors.New("not stubbed")

func (f *fakeContentService) Generate(ctx context.Context, ownerID string, req services.GenerateRequest) (*models.ContentProject, error) {
	if f.generateFn == nil {
		return nil, errNotStubbed
	}
	return f.generateFn(ctx, ownerID, req)
}

func (f *fakeContentService) GetProject(ctx context.Context, id uuid.UUID) (*services.ProjectWithContent, error) {
	if f.getProjectFn == nil {
		return nil, errNotStubbed
	}
	return f.getProjectFn(ctx, id)
}

func (f *fakeContentService) ListProjects(ctx context.Context, ownerID, status string, page, perPage int) (*services.ProjectPage, error) {
	if f.listProjectsFn == nil {
		return nil, errNotStubbed
	}
	return f.listProjectsFn(ctx, ownerID, status, page, perPage)
}

func (f *fakeContentService) Regenerate(ctx context.Context, id uuid.UUID, req services.RegenerateRequest) (*models.ContentProject, error) {
	if f.regenerateFn == nil {
		return nil, errNotStubbed
	}
	return f.regenerateFn(ctx, id, req)
}

func (f *fakeContentService) ListContent(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error) {
	if f.listContentFn == nil {
		return nil, errNotStubbed
	}
	return f.listContentFn(ctx, projectID)
}

func (f *fakeContentService) UpdateContent(ctx context.Context, contentID uuid.UUID, req services.UpdateContentRequest) (*models.GeneratedContent, error) {
	if f.updateContentFn == nil {
		return nil, errNotStubbed
	}
	return f.updateContentFn(ctx, contentID, req)
}

func (f *fakeContentService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMediaService struct {
	providers  []providers.ProviderInfo
	gotKind    providers.Kind
	generateFn func(ctx context.Context, req services.MediaRequest) (*providers.FanOutResult, error)
	estimate   services.CostEstimate
	estimateIn struct {
		provider providers.ProviderID
		kind     providers.Kind
		quality  string
		duration int
	}
}

func (f *fakeMediaService) Providers(kind providers.Kind) []providers.ProviderInfo {
	f.gotKind = kind
	return f.providers
}

func (f *fakeMediaService) Generate(ctx context.Context, req services.MediaRequest) (*providers.FanOutResult, error) {
	if f.generateFn == nil {
		return nil, errNotStubbed
	}
	return f.generateFn(ctx, req)
}

func (f *fakeMediaService) EstimateCost(provider providers.ProviderID, kind providers.Kind, quality string, duration int) services.CostEstimate {
	f.estimateIn.provider = provider
	f.estimateIn.kind = kind
	f.estimateIn.quality = quality
	f.estimateIn.duration = duration
	return f.estimate
}

type fakeLimiter struct {
	identifiers []string
	deleted     int
	err         error
}

func (f *fakeLimiter) ResetIdentifier(ctx context.Context, identifier string) (int, error) {
	f.identifiers = append(f.identifiers, identifier)
	return f.deleted, f.err
}

type fakeQueue struct {
	stats workqueue.Stats
	tasks []workqueue.TaskSnapshot
}

func (f *fakeQueue) Stats() workqueue.Stats             { return f.stats }
func (f *fakeQueue) GetTasks() []workqueue.TaskSnapshot { return f.tasks }

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }
