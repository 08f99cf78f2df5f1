package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform is a target social network.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
)

// ContentType is the form of one generated content unit.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeCarousel ContentType = "carousel"
)

// ValidContentTypes contains all valid content type values.
var ValidContentTypes = []ContentType{
	ContentTypeText,
	ContentTypeImage,
	ContentTypeVideo,
	ContentTypeCarousel,
}

// IsValidContentType checks if the given content type is valid.
func IsValidContentType(c ContentType) bool {
	for _, v := range ValidContentTypes {
		if v == c {
			return true
		}
	}
	return false
}

// ModelUsedError marks a GeneratedContent row recording a failed unit.
const ModelUsedError = "error"

// DefaultTone is recorded on rows when the request did not name a tone.
const DefaultTone = "neutral"

// GenerationParametersVersion is the current layout of GenerationParameters.
const GenerationParametersVersion = 1

// UnitError describes why a content unit failed.
type UnitError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// GenerationParameters records what was sent to which provider for one unit.
// Stored as JSONB; Version allows the layout to evolve without guessing.
type GenerationParameters struct {
	Version        int         `json:"version"`
	Prompt         string      `json:"prompt"`
	ProviderPrompt string      `json:"provider_prompt,omitempty"`
	Provider       string      `json:"provider,omitempty"`
	Platform       Platform    `json:"platform"`
	ContentType    ContentType `json:"content_type"`
	Tone           string      `json:"tone,omitempty"`
	Quality        string      `json:"quality,omitempty"`
	DurationSecs   int         `json:"duration_seconds,omitempty"`
	Error          *UnitError  `json:"error,omitempty"`
}

// Value implements driver.Valuer for database serialization.
func (p GenerationParameters) Value() (driver.Value, error) {
	if p.Version == 0 {
		p.Version = GenerationParametersVersion
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for database deserialization.
func (p *GenerationParameters) Scan(value interface{}) error {
	if value == nil {
		*p = GenerationParameters{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into GenerationParameters", value)
	}

	if err := json.Unmarshal(data, p); err != nil {
		return err
	}
	if p.Version == 0 {
		p.Version = GenerationParametersVersion
	}
	return nil
}

// GeneratedContent is one generated unit for a (platform, content type) pair.
type GeneratedContent struct {
	ID                uuid.UUID            `json:"id"`
	ProjectID         uuid.UUID            `json:"project_id"`
	Platform          Platform             `json:"platform"`
	ContentType       ContentType          `json:"content_type"`
	GeneratedText     string               `json:"generated_text"`
	GeneratedHashtags string               `json:"generated_hashtags"`
	MediaURLs         []string             `json:"media_urls"`
	Tone              string               `json:"tone"`
	Parameters        GenerationParameters `json:"generation_parameters"`
	ModelUsed         string               `json:"model_used"`
	QualityScore      float64              `json:"quality_score"`
	EstimatedCostUSD  float64              `json:"estimated_cost_usd"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// IsError reports whether this row records a failed unit.
func (c *GeneratedContent) IsError() bool {
	return c.ModelUsed == ModelUsedError
}

// Hashtags splits GeneratedHashtags into individual tags.
func (c *GeneratedContent) Hashtags() []string {
	return strings.Fields(c.GeneratedHashtags)
}

// NewErrorContent builds the row persisted when a unit fails.
func NewErrorContent(projectID uuid.UUID, platform Platform, contentType ContentType, tone string, params GenerationParameters, kind, detail string) *GeneratedContent {
	params.Version = GenerationParametersVersion
	params.Platform = platform
	params.ContentType = contentType
	params.Error = &UnitError{Kind: kind, Detail: detail}

	return &GeneratedContent{
		ID:                uuid.New(),
		ProjectID:         projectID,
		Platform:          platform,
		ContentType:       contentType,
		GeneratedText:     "Error generating content: " + detail,
		GeneratedHashtags: "#" + string(platform) + " #error",
		MediaURLs:         []string{},
		Tone:              tone,
		Parameters:        params,
		ModelUsed:         ModelUsedError,
		QualityScore:      0,
	}
}
