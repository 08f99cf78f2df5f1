package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/providers"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-content/pkg/services"
)

func newMediaMux(t *testing.T, svc *fakeMediaService) (*http.ServeMux, *guardRecorder) {
	t.Helper()
	guards, rec := testGuards(userClaims("user-1"))
	mux := http.NewServeMux()
	NewMediaHandler(svc, zap.NewNop()).RegisterRoutes(mux, guards)
	return mux, rec
}

func TestMediaHandler_Providers(t *testing.T) {
	svc := &fakeMediaService{
		providers: []providers.ProviderInfo{
			{ID: providers.ProviderRunway, Name: "Runway", Capabilities: []providers.Kind{providers.KindVideo}, Status: "available"},
		},
	}
	mux, guards := newMediaMux(t, svc)

	rec := serve(mux, http.MethodGet, "/media/providers?kind=VIDEO", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, providers.KindVideo, svc.gotKind)
	assert.Zero(t, guards.ownerHit)

	var resp ProvidersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Providers, 1)
	assert.Equal(t, providers.ProviderRunway, resp.Providers[0].ID)

	rec = serve(mux, http.MethodGet, "/media/providers?kind=audio", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaHandler_CostEstimate(t *testing.T) {
	svc := &fakeMediaService{
		estimate: services.CostEstimate{Provider: providers.ProviderRunway, Kind: providers.KindVideo, Quality: "standard", DurationSeconds: 10, EstimatedCostUSD: 5.0},
	}
	mux, _ := newMediaMux(t, svc)

	rec := serve(mux, http.MethodGet, "/media/cost-estimate?provider=Runway&kind=video&duration=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, providers.ProviderRunway, svc.estimateIn.provider)
	assert.Equal(t, providers.KindVideo, svc.estimateIn.kind)
	assert.Equal(t, 10, svc.estimateIn.duration)

	var est services.CostEstimate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&est))
	assert.InDelta(t, 5.0, est.EstimatedCostUSD, 1e-9)

	tests := []struct {
		name   string
		target string
	}{
		{"missing provider", "/media/cost-estimate?kind=image"},
		{"bad kind", "/media/cost-estimate?provider=openai&kind=gif"},
		{"bad duration", "/media/cost-estimate?provider=runway&kind=video&duration=long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMediaHandler_Generate(t *testing.T) {
	var got services.MediaRequest
	svc := &fakeMediaService{
		generateFn: func(ctx context.Context, req services.MediaRequest) (*providers.FanOutResult, error) {
			got = req
			return &providers.FanOutResult{
				Success: true,
				Kind:    providers.KindImage,
				Results: []providers.Result{
					{Success: true, Provider: providers.ProviderOpenAI, Kind: providers.KindImage, EstimatedCostUSD: 0.04},
					{Success: false, Provider: providers.ProviderLeonardo, Kind: providers.KindImage,
						Error: providers.NewError(providers.ErrorKindRejected, providers.ProviderLeonardo, "content policy", nil)},
				},
				SuccessfulCount: 1,
				Total:           2,
			}, nil
		},
	}
	mux, guards := newMediaMux(t, svc)

	rec := serve(mux, http.MethodPost, "/media/generate",
		`{"prompt":"A lighthouse at dusk","kind":"image","providers":[" OpenAI ","leonardo"],"style":"cinematic","quality":"hd","duration":"8"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ratelimit.ScopeAPIMedia, guards.lastScope())
	assert.Equal(t, []providers.ProviderID{providers.ProviderOpenAI, providers.ProviderLeonardo}, got.Providers)
	assert.Equal(t, "cinematic", got.Style)
	assert.Equal(t, "hd", got.Quality)
	assert.Equal(t, 8, got.Duration)

	var resp providers.FanOutResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.SuccessfulCount)
	assert.Equal(t, 2, resp.Total)
}

func TestMediaHandler_Generate_BadDuration(t *testing.T) {
	mux, _ := newMediaMux(t, &fakeMediaService{})

	rec := serve(mux, http.MethodPost, "/media/generate", `{"prompt":"A lighthouse at dusk","kind":"video","duration":"ten"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaHandler_Generate_ValidationError(t *testing.T) {
	svc := &fakeMediaService{
		generateFn: func(ctx context.Context, req services.MediaRequest) (*providers.FanOutResult, error) {
			return nil, &services.ValidationError{Details: []string{"duration must be between 0 and 60 seconds"}}
		},
	}
	mux, _ := newMediaMux(t, svc)

	rec := serve(mux, http.MethodPost, "/media/generate", `{"prompt":"A lighthouse at dusk","kind":"video","duration":90}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ValidationErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"duration must be between 0 and 60 seconds"}, body.Details)
}

func TestMediaHandler_Styles(t *testing.T) {
	mux, guards := newMediaMux(t, &fakeMediaService{})

	rec := serve(mux, http.MethodGet, "/media/styles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ratelimit.ScopeAPIGeneral, guards.lastScope())

	var all StylesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	require.Len(t, all.Styles, 4)
	assert.Equal(t, providers.StyleArtistic, all.Styles[0].Name)
	assert.NotEmpty(t, all.Styles[0].Description)

	rec = serve(mux, http.MethodGet, "/media/styles?provider=Runway", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var none StylesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&none))
	assert.Empty(t, none.Styles, "runway has no style templates")
}

func TestMediaHandler_QualityPresets(t *testing.T) {
	mux, _ := newMediaMux(t, &fakeMediaService{})

	rec := serve(mux, http.MethodGet, "/media/quality-presets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QualityPresetsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	names := make([]string, len(resp.QualityPresets))
	for i, p := range resp.QualityPresets {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"draft", "standard", "premium", "professional"}, names)
	assert.Equal(t, 75, resp.QualityPresets[3].Steps)
}
