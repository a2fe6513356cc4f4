package ingest

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rssking/rssking/internal/rssking"
)

// Scoring weights. Signals are additive and none excludes another: an entry
// can collect several bonuses and the noise penalty at once, and the total
// has no floor or ceiling.
const (
	tierOneWeight     = 40.0
	tierTwoWeight     = 20.0 // also the fallback for unknown tiers
	timeDecayMax      = 50.0
	multiSourceBump   = 40.0
	metadataBump      = 30.0
	titlePatternBump  = 20.0
	noisePenalty      = -30.0
	multiSourceMinCnt = 3
)

var breakingPattern = regexp.MustCompile(`(?i)\b(breaking|urgent|flash|alert|exclusive)\b`)

// Provider tags that mark an entry as editorially promoted.
var metadataTags = map[string]struct{}{
	"featured":     {},
	"breaking":     {},
	"top-news":     {},
	"editors-pick": {},
}

var noiseKeywords = []string{
	"sponsored", "advertisement", "buy now", "subscribe now",
	"limited offer", "click here",
}

// Score computes the relevance score for a candidate: tier weight, linear
// time decay over the retention window, multi-source correlation, provider
// metadata, headline patterns, and a noise penalty. It is deterministic for
// a fixed now, and rounds to 2 decimal places.
func Score(c rssking.Candidate, feedCount int, retention time.Duration, now time.Time) float64 {
	score := tierWeight(c.Feed.Tier)

	// Time decay: full bump for brand new entries, scaling linearly to zero
	// at the edge of the retention window. Undated entries contribute nothing.
	if c.PublishedAt != nil {
		age := now.Sub(*c.PublishedAt)
		decay := 1 - age.Hours()/retention.Hours()
		if decay < 0 {
			decay = 0
		}
		if decay > 1 {
			decay = 1
		}
		score += decay * timeDecayMax
	}

	if feedCount >= multiSourceMinCnt {
		score += multiSourceBump
	}

	for _, tag := range c.Tags {
		if _, ok := metadataTags[strings.ToLower(tag)]; ok {
			score += metadataBump
			break
		}
	}

	if breakingPattern.MatchString(c.Title) {
		score += titlePatternBump
	}

	combined := strings.ToLower(c.Title + " " + c.Summary)
	for _, kw := range noiseKeywords {
		if strings.Contains(combined, kw) {
			score += noisePenalty
			break
		}
	}

	return math.Round(score*100) / 100
}

func tierWeight(tier int) float64 {
	if tier == 1 {
		return tierOneWeight
	}

	return tierTwoWeight
}
