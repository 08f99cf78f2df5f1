package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ekaya-inc/ekaya-content/pkg/inputcheck"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

// Request field limits.
const (
	MinPromptLength        = 10
	MaxPromptLength        = 4000
	MaxTitleLength         = 200
	MaxToneLength          = 100
	MaxBrandGuidelineBytes = 10 * 1024
)

// ValidationError collects every problem found in a request.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Details = append(e.Details, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Details) == 0 {
		return nil
	}
	return e
}

// GenerateRequest is the body of a generation request.
type GenerateRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Prompt          string          `json:"prompt"`
	Platforms       []string        `json:"platforms"`
	ContentTypes    []string        `json:"content_types"`
	Tone            string          `json:"tone"`
	BrandGuidelines json.RawMessage `json:"brand_guidelines,omitempty"`
}

// RegenerateRequest optionally replaces the content types and tone of a project.
// Empty fields keep the project's current values.
type RegenerateRequest struct {
	ContentTypes []string `json:"content_types"`
	Tone         string   `json:"tone"`
}

// UpdateContentRequest edits the text of a generated content row.
type UpdateContentRequest struct {
	Text     *string  `json:"text"`
	Hashtags []string `json:"hashtags"`
}

// GenerationInput is a validated and normalized GenerateRequest.
type GenerationInput struct {
	Title           string
	Description     string
	Prompt          string
	Platforms       []models.Platform
	ContentTypes    []models.ContentType
	Tone            string
	BrandGuidelines json.RawMessage
}

// ValidateGenerationRequest checks a generation request and returns its
// normalized form. All problems are reported together in a *ValidationError.
func ValidateGenerationRequest(req GenerateRequest) (*GenerationInput, error) {
	verr := &ValidationError{}
	in := &GenerationInput{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Prompt:      strings.TrimSpace(req.Prompt),
		Tone:        strings.TrimSpace(req.Tone),
	}

	switch n := utf8.RuneCountInString(in.Prompt); {
	case n == 0:
		verr.add("prompt is required")
	case n < MinPromptLength:
		verr.add("prompt must be at least %d characters", MinPromptLength)
	case n > MaxPromptLength:
		verr.add("prompt must be at most %d characters", MaxPromptLength)
	}

	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		verr.add("title must be at most %d characters", MaxTitleLength)
	}
	if utf8.RuneCountInString(in.Tone) > MaxToneLength {
		verr.add("tone must be at most %d characters", MaxToneLength)
	}

	in.Platforms = parsePlatforms(req.Platforms, verr)

	contentTypes := req.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = []string{string(models.ContentTypeText)}
	}
	in.ContentTypes = parseContentTypes(contentTypes, verr)

	if len(in.Platforms) > 0 && len(in.ContentTypes) > 0 && countUnits(in.Platforms, in.ContentTypes) == 0 {
		verr.add("none of the requested content types is supported by the selected platforms")
	}

	guidelines, err := normalizeBrandGuidelines(req.BrandGuidelines)
	if err != nil {
		verr.add("%s", err.Error())
	}
	in.BrandGuidelines = guidelines

	for _, f := range inputcheck.CheckFields("prompt", in.Prompt, "title", in.Title, "description", in.Description) {
		verr.add("%s %s", f.Field, f.Reason())
	}

	if in.Title == "" && len(in.Platforms) > 0 {
		in.Title = defaultTitle(in.Platforms)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return in, nil
}

// ValidateRegenerateRequest parses the optional overrides of a regenerate request.
func ValidateRegenerateRequest(req RegenerateRequest) ([]models.ContentType, string, error) {
	verr := &ValidationError{}
	tone := strings.TrimSpace(req.Tone)
	if utf8.RuneCountInString(tone) > MaxToneLength {
		verr.add("tone must be at most %d characters", MaxToneLength)
	}
	var contentTypes []models.ContentType
	if len(req.ContentTypes) > 0 {
		contentTypes = parseContentTypes(req.ContentTypes, verr)
	}
	if err := verr.orNil(); err != nil {
		return nil, "", err
	}
	return contentTypes, tone, nil
}

// ValidateUpdateContentRequest checks an edit against the platform's limits.
func ValidateUpdateContentRequest(req UpdateContentRequest, spec *models.PlatformSpec) error {
	verr := &ValidationError{}
	if req.Text == nil && req.Hashtags == nil {
		verr.add("text or hashtags is required")
	}
	if req.Text != nil {
		if n := utf8.RuneCountInString(*req.Text); n > spec.MaxTextLength {
			verr.add("text must be at most %d characters for %s", spec.MaxTextLength, spec.Name)
		}
		if f := inputcheck.CheckField("text", *req.Text); f != nil && f.IsXSS {
			verr.add("text %s", f.Reason())
		}
	}
	if spec.MaxHashtags > 0 && len(req.Hashtags) > spec.MaxHashtags {
		verr.add("at most %d hashtags allowed for %s", spec.MaxHashtags, spec.Name)
	}
	for _, tag := range req.Hashtags {
		if hashtagPattern.FindString(tag) != tag {
			verr.add("invalid hashtag %q", tag)
		}
	}
	return verr.orNil()
}

func parsePlatforms(raw []string, verr *ValidationError) []models.Platform {
	if len(raw) == 0 {
		verr.add("at least one platform is required")
		return nil
	}
	seen := make(map[models.Platform]bool, len(raw))
	out := make([]models.Platform, 0, len(raw))
	for _, s := range raw {
		p := models.Platform(strings.ToLower(strings.TrimSpace(s)))
		if !models.IsValidPlatform(p) {
			verr.add("unknown platform %q", s)
			continue
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func parseContentTypes(raw []string, verr *ValidationError) []models.ContentType {
	seen := make(map[models.ContentType]bool, len(raw))
	out := make([]models.ContentType, 0, len(raw))
	for _, s := range raw {
		ct := models.ContentType(strings.ToLower(strings.TrimSpace(s)))
		if !models.IsValidContentType(ct) {
			verr.add("unknown content type %q", s)
			continue
		}
		if !seen[ct] {
			seen[ct] = true
			out = append(out, ct)
		}
	}
	return out
}

// normalizeBrandGuidelines accepts a JSON string (plain text) or a JSON
// object or array. JSON null means no guidelines.
func normalizeBrandGuidelines(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if len(trimmed) > MaxBrandGuidelineBytes {
		return nil, fmt.Errorf("brand_guidelines must be at most %d bytes", MaxBrandGuidelineBytes)
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("brand_guidelines must be text or a JSON object")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("brand_guidelines must be text or a JSON object")
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
	case '{', '[':
	default:
		return nil, fmt.Errorf("brand_guidelines must be text or a JSON object")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("brand_guidelines must be text or a JSON object")
	}
	return buf.Bytes(), nil
}

// countUnits returns the number of (platform, content type) units a job will produce.
func countUnits(platforms []models.Platform, contentTypes []models.ContentType) int {
	n := 0
	for _, p := range platforms {
		spec, ok := models.LookupPlatform(p)
		if !ok {
			continue
		}
		for _, ct := range contentTypes {
			if spec.Supports(ct) {
				n++
			}
		}
	}
	return n
}

func defaultTitle(platforms []models.Platform) string {
	caser := cases.Title(language.English)
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = caser.String(string(p))
	}
	return "Content for " + strings.Join(names, ", ")
}
