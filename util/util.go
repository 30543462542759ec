package util

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

//go:embed version.txt
var embeddedVersion string

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

// NormalizeInput flattens newlines and trims surrounding whitespace.
func NormalizeInput(text string) string {
	normalized := strings.Replace(text, "\r\n", " ", -1)
	normalized = strings.Replace(normalized, "\n", " ", -1)
	return strings.TrimSpace(normalized)
}

// StripHTML removes markup and entities from third-party post bodies.
func StripHTML(text string) string {
	stripped := tagPattern.ReplaceAllString(text, " ")
	stripped = html.UnescapeString(stripped)
	return strings.TrimSpace(spacePattern.ReplaceAllString(stripped, " "))
}

// NormalizeTags lower-cases tags, strips a leading '#' and drops empties and
// duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ParseTagInput splits "#art #music" style input into normalized tags.
func ParseTagInput(input string) []string {
	return NormalizeTags(strings.Fields(input))
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05 MST"
}

// PrettyPrint renders v as indented JSON. Fields tagged json:"-" (secrets)
// are left out.
func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}

func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
