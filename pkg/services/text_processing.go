package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

// hashtagPattern matches a hashtag made of letters, digits and underscores
// in any script.
var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// ExtractHashtags returns the hashtags in text in order of first appearance,
// without duplicates (compared case-insensitively).
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, m)
	}
	return tags
}

// CleanText drops lines that consist mostly of hashtags, so the body can be
// stored separately from its tag block.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		tags := len(hashtagPattern.FindAllString(line, -1))
		words := max(len(strings.Fields(line)), 1)
		if tags > 0 && float64(tags)/float64(words) > 0.5 {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// TruncateText shortens text to at most maxLen characters, cutting at the
// last word boundary when one is close enough and appending an ellipsis.
// A non-positive maxLen leaves text unchanged.
func TruncateText(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string([]rune(text)[:maxLen])
	}

	runes := []rune(text)[:maxLen-3]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \n\t"); i > len(cut)*3/4 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n\t.,;:") + "..."
}

// postText is the text of a post split into body and hashtags, fitted to a platform.
type postText struct {
	Body     string
	Hashtags []string
}

// fitToPlatform separates hashtags from the body and applies the platform's
// hashtag cap and length limit.
func fitToPlatform(raw string, spec *models.PlatformSpec) postText {
	tags := ExtractHashtags(raw)
	if spec.MaxHashtags > 0 && len(tags) > spec.MaxHashtags {
		tags = tags[:spec.MaxHashtags]
	}
	return postText{
		Body:     TruncateText(CleanText(raw), spec.MaxTextLength),
		Hashtags: tags,
	}
}
