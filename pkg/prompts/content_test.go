package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

func platform(t *testing.T, p models.Platform) *models.PlatformSpec {
	t.Helper()
	spec, ok := models.LookupPlatform(p)
	require.True(t, ok)
	return spec
}

func TestTextSystemPrompt(t *testing.T) {
	spec := platform(t, models.PlatformTwitter)

	prompt := TextSystemPrompt(spec, "direct", "Always mention our app")

	assert.Contains(t, prompt, "Maximum length: 280 characters")
	assert.Contains(t, prompt, "at most 3 hashtags")
	assert.Contains(t, prompt, spec.ToneInstruction("direct"))
	assert.Contains(t, prompt, "Brand guidelines:\nAlways mention our app")
}

func TestTextSystemPrompt_NoBrandGuidelines(t *testing.T) {
	prompt := TextSystemPrompt(platform(t, models.PlatformLinkedIn), "", "")

	assert.NotContains(t, prompt, "Brand guidelines")
	assert.NotContains(t, prompt, "Tone and style")
}

func TestTextUserPrompt_DefaultTone(t *testing.T) {
	prompt := TextUserPrompt(platform(t, models.PlatformInstagram), "spring sale", "")

	assert.Contains(t, prompt, "spring sale")
	assert.Contains(t, prompt, "Tone: neutral")
}

func TestImagePrompt(t *testing.T) {
	spec := platform(t, models.PlatformInstagram)

	prompt := ImagePrompt(spec, "coffee beans", "vintage")

	assert.True(t, strings.HasPrefix(prompt, "Create a 1:1 aspect ratio image for instagram about: coffee beans"))
	assert.Contains(t, prompt, "retro, nostalgic, classic, timeless aesthetic")
	assert.Contains(t, prompt, spec.ImageStyle)
}

func TestImagePrompt_UnknownToneUsedVerbatim(t *testing.T) {
	prompt := ImagePrompt(platform(t, models.PlatformFacebook), "x", "cozy")
	assert.Contains(t, prompt, "- cozy aesthetic")
}

func TestCarouselSlidePrompt(t *testing.T) {
	prompt := CarouselSlidePrompt(platform(t, models.PlatformInstagram), "x", "", 2, 3)
	assert.Contains(t, prompt, "Slide 2 of 3")
}

func TestVideoPrompt(t *testing.T) {
	prompt := VideoPrompt(platform(t, models.PlatformTikTok), "dance challenge", "playful", 15)

	assert.Contains(t, prompt, "15-second vertical video for tiktok")
	assert.Contains(t, prompt, "colorful, fun, energetic, whimsical")
}
