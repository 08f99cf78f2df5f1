package providers

import (
	"slices"
	"strings"
)

// Style template names.
const (
	StylePhotorealistic = "photorealistic"
	StyleArtistic       = "artistic"
	StyleMinimalist     = "minimalist"
	StyleCinematic      = "cinematic"
)

var styleTemplates = map[string]map[ProviderID]string{
	StylePhotorealistic: {
		ProviderOpenAI:     "photorealistic, high resolution, professional photography",
		ProviderStability:  "photorealistic, ultra detailed, 8k resolution, professional lighting",
		ProviderMidjourney: "photorealistic --style raw --quality 2",
		ProviderLeonardo:   "photorealistic, hyperrealistic, ultra detailed",
	},
	StyleArtistic: {
		ProviderOpenAI:     "artistic, creative, stylized, vibrant colors",
		ProviderStability:  "artistic style, creative composition, vibrant palette",
		ProviderMidjourney: "artistic --stylize 750",
		ProviderLeonardo:   "artistic style, creative interpretation",
	},
	StyleMinimalist: {
		ProviderOpenAI:     "minimalist, clean, simple, modern design",
		ProviderStability:  "minimalist design, clean composition, simple",
		ProviderMidjourney: "minimalist --style raw",
		ProviderLeonardo:   "minimalist, clean design, simple composition",
	},
	StyleCinematic: {
		ProviderOpenAI:     "cinematic, dramatic lighting, movie-like quality",
		ProviderStability:  "cinematic lighting, dramatic composition, film quality",
		ProviderMidjourney: "cinematic --ar 16:9",
		ProviderLeonardo:   "cinematic style, dramatic lighting",
	},
}

var styleDescriptions = map[string]string{
	StylePhotorealistic: "High-quality, realistic photography style",
	StyleArtistic:       "Creative, stylized artistic interpretation",
	StyleMinimalist:     "Clean, simple, modern design",
	StyleCinematic:      "Movie-like quality with dramatic lighting",
}

// StyleInfo describes a style template and the providers that have one.
type StyleInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Providers   []ProviderID `json:"providers"`
}

// Styles lists style templates by name. A non-empty provider keeps only the
// styles that provider has a template for.
func Styles(provider ProviderID) []StyleInfo {
	out := make([]StyleInfo, 0, len(styleTemplates))
	for name, byProvider := range styleTemplates {
		if _, ok := byProvider[provider]; provider != "" && !ok {
			continue
		}
		ids := make([]ProviderID, 0, len(byProvider))
		for id := range byProvider {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		out = append(out, StyleInfo{Name: name, Description: styleDescriptions[name], Providers: ids})
	}
	slices.SortFunc(out, func(a, b StyleInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// IsKnownStyle reports whether a style template exists.
func IsKnownStyle(style string) bool {
	_, ok := styleTemplates[strings.ToLower(style)]
	return ok
}

// ApplyStyle appends the provider's style template to a prompt.
// Unknown styles or providers without a template leave the prompt unchanged.
func ApplyStyle(provider ProviderID, style, prompt string) string {
	tmpl, ok := styleTemplates[strings.ToLower(style)][provider]
	if !ok {
		return prompt
	}
	return prompt + ", " + tmpl
}

// QualityPreset holds sampler settings for a quality level.
type QualityPreset struct {
	Quality  string  `json:"quality"`
	Steps    int     `json:"steps"`
	Guidance float64 `json:"guidance"`
}

// qualityOrder lists presets from fastest to slowest.
var qualityOrder = []string{"draft", "standard", "premium", "professional"}

var qualityDescriptions = map[string]string{
	"draft":        "Fast generation, lower quality",
	"standard":     "Balanced quality and speed",
	"premium":      "High quality, slower generation",
	"professional": "Highest quality, longest generation time",
}

// QualityPresetInfo is a named preset with its description.
type QualityPresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	QualityPreset
}

var qualityPresets = map[string]QualityPreset{
	"draft":        {Quality: "standard", Steps: 20, Guidance: 7.5},
	"standard":     {Quality: "hd", Steps: 30, Guidance: 10},
	"premium":      {Quality: "ultra", Steps: 50, Guidance: 12},
	"professional": {Quality: "ultra", Steps: 75, Guidance: 15},
}

// QualityPresets lists the presets from fastest to slowest.
func QualityPresets() []QualityPresetInfo {
	out := make([]QualityPresetInfo, 0, len(qualityOrder))
	for _, name := range qualityOrder {
		out = append(out, QualityPresetInfo{Name: name, Description: qualityDescriptions[name], QualityPreset: qualityPresets[name]})
	}
	return out
}

// LookupQuality returns the preset for a quality name, falling back to standard.
func LookupQuality(name string) QualityPreset {
	if p, ok := qualityPresets[strings.ToLower(name)]; ok {
		return p
	}
	return qualityPresets["standard"]
}

type dimensions struct {
	Width  int
	Height int
}

var stabilityDimensions = map[string]dimensions{
	"1:1":  {1024, 1024},
	"16:9": {1344, 768},
	"9:16": {768, 1344},
	"4:3":  {1152, 896},
	"3:4":  {896, 1152},
}

func stabilitySize(aspect string) dimensions {
	if d, ok := stabilityDimensions[aspect]; ok {
		return d
	}
	return stabilityDimensions["1:1"]
}

// dalleSize maps an aspect ratio onto the sizes DALL-E 3 accepts.
func dalleSize(aspect string) string {
	switch aspect {
	case "9:16":
		return "1024x1792"
	case "16:9", "1.91:1":
		return "1792x1024"
	}
	return "1024x1024"
}
