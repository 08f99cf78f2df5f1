// Package prompts builds the prompts sent to text, image and video providers.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

// toneStyles maps a tone of voice onto visual style keywords.
var toneStyles = map[string]string{
	"professional": "clean, minimalist, sophisticated, high-end",
	"casual":       "relaxed, friendly, approachable, natural",
	"playful":      "colorful, fun, energetic, whimsical",
	"elegant":      "refined, luxurious, tasteful, premium",
	"modern":       "contemporary, sleek, cutting-edge, innovative",
	"vintage":      "retro, nostalgic, classic, timeless",
	"bold":         "striking, dramatic, high-contrast, powerful",
}

// ToneStyle returns visual keywords for a tone. Unknown tones are used verbatim.
func ToneStyle(tone string) string {
	if s, ok := toneStyles[strings.ToLower(tone)]; ok {
		return s
	}
	return tone
}

// TextSystemPrompt builds the system message for platform copy.
func TextSystemPrompt(spec *models.PlatformSpec, tone, brandGuidelines string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert social media content creator specialising in %s.\n\n", spec.Name)
	b.WriteString("Platform guidelines:\n")
	fmt.Fprintf(&b, "- Maximum length: %d characters\n", spec.MaxTextLength)
	fmt.Fprintf(&b, "- Use at most %d hashtags\n", spec.HashtagCount)

	if instruction := spec.ToneInstruction(tone); instruction != "" {
		b.WriteString("\nTone and style:\n")
		b.WriteString(instruction)
		b.WriteString("\n")
	}

	if brandGuidelines != "" {
		b.WriteString("\nBrand guidelines:\n")
		b.WriteString(brandGuidelines)
		b.WriteString("\n")
	}

	b.WriteString("\nGeneral rules:\n")
	b.WriteString("- Make the content engaging and actionable\n")
	b.WriteString("- Use a natural, human voice\n")
	b.WriteString("- Put relevant hashtags at the end\n")
	b.WriteString("- Keep the content specific to the platform\n")

	return b.String()
}

// TextUserPrompt builds the user message for platform copy.
func TextUserPrompt(spec *models.PlatformSpec, topic, tone string) string {
	if tone == "" {
		tone = models.DefaultTone
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write social media content for %s about the following topic:\n%s\n\n", spec.Name, topic)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- At most %d characters\n", spec.MaxTextLength)
	fmt.Fprintf(&b, "- Platform: %s\n", spec.Name)
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	b.WriteString("- Add relevant hashtags\n")
	b.WriteString("- Make it engaging and platform-specific\n")
	return b.String()
}

// ImagePrompt builds an image generation prompt from the topic, the
// platform's visual style and the tone.
func ImagePrompt(spec *models.PlatformSpec, topic, tone string) string {
	aspect := spec.ImageAspectRatio
	if aspect == "" {
		aspect = "1:1"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s aspect ratio image for %s about: %s\n\n", aspect, spec.Name, topic)
	b.WriteString("Style requirements:\n")
	fmt.Fprintf(&b, "- %s\n", spec.ImageStyle)
	if tone != "" {
		fmt.Fprintf(&b, "- %s aesthetic\n", ToneStyle(tone))
	}
	b.WriteString("- High resolution, professional quality\n")
	b.WriteString("- Optimized for social media engagement\n")
	b.WriteString("- No text overlays\n")
	b.WriteString("- Focus on visual storytelling")
	return b.String()
}

// CarouselSlidePrompt builds the image prompt for one slide of a carousel.
// slide is 1-based.
func CarouselSlidePrompt(spec *models.PlatformSpec, topic, tone string, slide, total int) string {
	return fmt.Sprintf("%s\n- Slide %d of %d in a cohesive carousel series; keep palette and subject consistent across slides",
		ImagePrompt(spec, topic, tone), slide, total)
}

// VideoPrompt builds a short-form video prompt.
func VideoPrompt(spec *models.PlatformSpec, topic, tone string, durationSecs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %d-second %s video for %s about: %s.", durationSecs, aspectWord(spec.ImageAspectRatio), spec.Name, topic)
	fmt.Fprintf(&b, " Visual style: %s.", spec.ImageStyle)
	if tone != "" {
		fmt.Fprintf(&b, " Mood: %s.", ToneStyle(tone))
	}
	b.WriteString(" Smooth camera movement, strong opening shot, no on-screen text.")
	return b.String()
}

func aspectWord(aspect string) string {
	switch aspect {
	case "9:16":
		return "vertical"
	case "1:1":
		return "square"
	}
	return "widescreen"
}
