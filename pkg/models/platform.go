package models

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var platformsYAML []byte

// PlatformSpec holds the publishing constraints and prompt hints for a platform.
type PlatformSpec struct {
	Name                  Platform          `yaml:"-" json:"name"`
	MaxTextLength         int               `yaml:"max_text_length" json:"max_text_length"`
	MaxHashtags           int               `yaml:"max_hashtags" json:"max_hashtags"`
	HashtagCount          int               `yaml:"hashtag_count" json:"hashtag_count"`
	SupportedContentTypes []ContentType     `yaml:"supported_content_types" json:"supported_content_types"`
	ImageStyle            string            `yaml:"image_style" json:"image_style"`
	ImageAspectRatio      string            `yaml:"image_aspect_ratio" json:"image_aspect_ratio"`
	DefaultVideoSeconds   int               `yaml:"default_video_seconds" json:"default_video_seconds"`
	Tones                 map[string]string `yaml:"tones" json:"-"`
}

// Supports reports whether the platform accepts the content type.
func (p *PlatformSpec) Supports(ct ContentType) bool {
	return slices.Contains(p.SupportedContentTypes, ct)
}

// ToneSuggestions returns the suggested tone labels in sorted order.
func (p *PlatformSpec) ToneSuggestions() []string {
	tones := make([]string, 0, len(p.Tones))
	for t := range p.Tones {
		tones = append(tones, t)
	}
	sort.Strings(tones)
	return tones
}

// ToneInstruction returns the writing instruction for a tone, or "" when the
// tone is not one of the platform's suggestions.
func (p *PlatformSpec) ToneInstruction(tone string) string {
	return p.Tones[tone]
}

var platformSpecs map[Platform]*PlatformSpec

func init() {
	specs, err := parsePlatformSpecs(platformsYAML)
	if err != nil {
		panic(fmt.Sprintf("models: invalid embedded platforms.yaml: %v", err))
	}
	platformSpecs = specs
}

func parsePlatformSpecs(data []byte) (map[Platform]*PlatformSpec, error) {
	raw := make(map[Platform]*PlatformSpec)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for name, spec := range raw {
		if spec == nil {
			return nil, fmt.Errorf("platform %q has no settings", name)
		}
		spec.Name = name
		if spec.MaxTextLength <= 0 {
			return nil, fmt.Errorf("platform %q: max_text_length must be positive", name)
		}
		for _, ct := range spec.SupportedContentTypes {
			if !IsValidContentType(ct) {
				return nil, fmt.Errorf("platform %q: unknown content type %q", name, ct)
			}
		}
	}
	return raw, nil
}

// LookupPlatform returns the spec for a platform.
func LookupPlatform(p Platform) (*PlatformSpec, bool) {
	spec, ok := platformSpecs[p]
	return spec, ok
}

// IsValidPlatform checks if the platform is known.
func IsValidPlatform(p Platform) bool {
	_, ok := platformSpecs[p]
	return ok
}

// Platforms returns every platform spec ordered by name.
func Platforms() []*PlatformSpec {
	out := make([]*PlatformSpec, 0, len(platformSpecs))
	for _, spec := range platformSpecs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
