// Package policy blocks chat text that tries to move a conversation off the
// marketplace by sharing contact details.
package policy

import (
	"regexp"
	"strings"
)

// Rule names reported in Result.Rule.
const (
	RulePhone      = "phone"
	RuleEmail      = "email"
	RuleSocial     = "social"
	RuleObfuscated = "obfuscated"
)

// ViolationMessage is the user-facing text for any blocked message.
const ViolationMessage = "Sharing contact information is not allowed in chat"

// Keywords naming off-platform messaging apps, matched as plain substrings.
// Short ones such as "imo" also trip inside ordinary words.
var socialKeywords = []string{
	"instagram", "facebook", "snapchat", "twitter", "x.com", "tiktok",
	"telegram", "whatsapp", "wa.me", "imo", "wechat", "viber",
}

var (
	phonePattern      = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	emailPattern      = regexp.MustCompile(`[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	obfuscatedAtWord  = regexp.MustCompile(`\b(at|where|arroba)\b`)
	obfuscatedDotWord = regexp.MustCompile(`\b(dot|punkt|dotcom)\b`)
)

// Options tunes the filter.
type Options struct {
	// ObfuscatedWords enables the standalone at/where/arroba and
	// dot/punkt/dotcom checks. They reject ordinary prose such as
	// "meet at noon".
	ObfuscatedWords bool
}

// DefaultOptions is the production strictness.
func DefaultOptions() Options {
	return Options{ObfuscatedWords: true}
}

// Result describes the first rule a text tripped.
type Result struct {
	Blocked bool
	Rule    string
	Reason  string
}

// Filter checks message text. It holds no mutable state and is safe for
// concurrent use.
type Filter struct {
	opts Options
}

// NewFilter constructs a Filter.
func NewFilter(opts Options) *Filter {
	return &Filter{opts: opts}
}

// Violates reports whether text must be rejected.
func (f *Filter) Violates(text string) bool {
	return f.Check(text).Blocked
}

// Check evaluates text against each rule in turn.
func (f *Filter) Check(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}
	lower := strings.ToLower(text)

	if phonePattern.MatchString(lower) {
		return blocked(RulePhone, "phone number")
	}
	if emailPattern.MatchString(lower) {
		return blocked(RuleEmail, "email address")
	}
	for _, kw := range socialKeywords {
		if strings.Contains(lower, kw) {
			return blocked(RuleSocial, kw)
		}
	}
	if f.opts.ObfuscatedWords {
		if m := obfuscatedAtWord.FindString(lower); m != "" {
			return blocked(RuleObfuscated, m)
		}
		if m := obfuscatedDotWord.FindString(lower); m != "" {
			return blocked(RuleObfuscated, m)
		}
	}
	return Result{}
}

func blocked(rule, reason string) Result {
	return Result{Blocked: true, Rule: rule, Reason: reason}
}
