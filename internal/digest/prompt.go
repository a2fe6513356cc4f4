package digest

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/rssking/rssking/internal/rssking"
)

//go:embed prompt.txt
var promptTemplate string

// Bounds on user-supplied text before it lands in a prompt.
const (
	maxInterestsLen = 2000
	maxNameLen      = 100
	maxStarredLen   = 200
	snippetLen      = 200
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// buildPrompt renders the curator prompt for one user. Everything
// user-controlled is sanitized and length-capped first.
func buildPrompt(items []rssking.Item, profile rssking.Profile, starred []string, windowHours, maxPicks int) string {
	interests := sanitize(profile.Interests, maxInterestsLen)
	if interests == "" {
		interests = "(not specified - use general news judgment)"
	}

	name := sanitize(profile.DisplayName, maxNameLen)
	if name == "" {
		name = "this user"
	}

	starredBlock := "(none yet)"
	if len(starred) > 0 {
		lines := make([]string, 0, len(starred))
		for _, title := range starred {
			lines = append(lines, "- "+sanitize(title, maxStarredLen))
		}
		starredBlock = strings.Join(lines, "\n")
	}

	var articles strings.Builder
	for i, item := range items {
		fmt.Fprintf(&articles, "%d. [%s] %s", i+1, item.SourceName, item.Title)
		if item.Summary != "" {
			fmt.Fprintf(&articles, " - %s", clip(item.Summary, snippetLen))
		}
		articles.WriteString("\n")
	}

	return fmt.Sprintf(promptTemplate,
		name,
		interests,
		starredBlock,
		windowHours,
		len(items),
		strings.TrimRight(articles.String(), "\n"),
		maxPicks,
	)
}

// sanitize strips control characters and limits length before embedding the
// text in a prompt.
func sanitize(s string, max int) string {
	s = controlChars.ReplaceAllString(strings.TrimSpace(s), "")
	return clip(s, max)
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
