package services

import (
	"math"
	"strings"

	"github.com/ekaya-inc/ekaya-content/pkg/providers"
)

// DefaultCostUSD is charged for combinations missing from the price table.
const DefaultCostUSD = 0.050

type costKey struct {
	provider providers.ProviderID
	kind     providers.Kind
	quality  string
}

// Video prices are per second; everything else is per generation.
var costTable = map[costKey]float64{
	{providers.ProviderOpenAI, providers.KindImage, "standard"}:        0.040,
	{providers.ProviderOpenAI, providers.KindImage, "hd"}:              0.080,
	{providers.ProviderStability, providers.KindImage, "draft"}:        0.020,
	{providers.ProviderStability, providers.KindImage, "standard"}:     0.040,
	{providers.ProviderStability, providers.KindImage, "premium"}:      0.080,
	{providers.ProviderStability, providers.KindImage, "professional"}: 0.120,
	{providers.ProviderRunway, providers.KindVideo, "standard"}:        0.50,
	{providers.ProviderRunway, providers.KindVideo, "premium"}:         1.00,
	{providers.ProviderLeonardo, providers.KindImage, "standard"}:      0.030,
	{providers.ProviderLeonardo, providers.KindImage, "premium"}:       0.060,
	{providers.ProviderMidjourney, providers.KindImage, "standard"}:    0.025,
	{providers.ProviderMidjourney, providers.KindImage, "premium"}:     0.050,
	{providers.ProviderGoogleVeo, providers.KindVideo, "standard"}:     0.40,
	{providers.ProviderOpenAI, providers.KindText, "standard"}:         0.002,
	{providers.ProviderAnthropic, providers.KindText, "standard"}:      0.002,
	{providers.ProviderMock, providers.KindText, "standard"}:           0,
	{providers.ProviderMock, providers.KindImage, "standard"}:          0,
	{providers.ProviderMock, providers.KindVideo, "standard"}:          0,
}

// CostEstimator prices a generation from a static table. It has no state
// and is safe to call on the request path.
type CostEstimator struct{}

// NewCostEstimator creates a cost estimator.
func NewCostEstimator() *CostEstimator {
	return &CostEstimator{}
}

// Estimate returns the estimated cost in USD, rounded to three decimals.
// An empty quality means standard. Video prices scale with durationSecs;
// a non-positive duration prices the video as a single unit.
func (e *CostEstimator) Estimate(provider providers.ProviderID, kind providers.Kind, quality string, durationSecs int) float64 {
	quality = strings.ToLower(strings.TrimSpace(quality))
	if quality == "" {
		quality = "standard"
	}

	price, ok := costTable[costKey{provider, kind, quality}]
	if !ok {
		price = DefaultCostUSD
	}
	if kind == providers.KindVideo && durationSecs > 0 {
		price *= float64(durationSecs)
	}
	return roundCost(price)
}

func roundCost(usd float64) float64 {
	return math.Round(usd*1000) / 1000
}
