package chat

import (
	"strings"
	"unicode"
)

// Fixed replies.
const (
	SystemPrompt = "You are Axiom, a fast research assistant. Prioritize speed and accuracy. " +
		"Use provided web context when available. Do not invent facts; acknowledge gaps."

	GreetingReply = "Hello! Ask me anything you want to research."

	IdentityReply = "I'm Axiom, an AI research assistant. " +
		"I don't disclose underlying model or provider details. " +
		"If you have a task, I'm ready to help."

	UnavailableReply = "The model is slow or unavailable right now. Please try again in a moment."

	NotConfiguredReply = "Axiom is not connected to a model yet. " +
		"Set MOONSHOT_API_KEY and MOONSHOT_MODEL and restart the server."

	visionPrompt = "You are a vision assistant. Describe the image content concisely."
)

var smalltalk = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true, "sup": true, "hola": true,
}

var identityQuestions = map[string]bool{
	"what model are you":         true,
	"which model are you":        true,
	"what model are you running": true,
	"what model do you use":      true,
	"who built you":              true,
	"who made you":               true,
	"who created you":            true,
	"who are you":                true,
	"are you openai":             true,
}

// Normalize lowercases s, turns every non-alphanumeric rune into a space
// and collapses runs of whitespace.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// IsSmalltalk reports whether a normalized text-only prompt gets the
// canned greeting instead of a model call.
func IsSmalltalk(normalized string) bool {
	return smalltalk[normalized] || len([]rune(normalized)) <= 2
}

// IdentityAnswer returns the persona reply for questions about the
// underlying model, or "" when the prompt is not one.
func IdentityAnswer(normalized string) string {
	if normalized == "" {
		return ""
	}
	if identityQuestions[normalized] ||
		strings.HasPrefix(normalized, "what model") ||
		strings.HasPrefix(normalized, "who built") {
		return IdentityReply
	}
	return ""
}

// StripSources cuts a trailing "Sources:" section from a model reply.
// The marker is matched case-insensitively.
func StripSources(text string) string {
	i := indexFold(text, sourcesMarker)
	if i < 0 {
		return text
	}
	return strings.TrimRightFunc(text[:i], unicode.IsSpace)
}

const sourcesMarker = "sources:"

// indexFold is a case-insensitive strings.Index for an ASCII needle. It
// compares in place, so the offset is valid for s even when lowercasing s
// would change its byte length.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// Title derives a session title from the first message.
func Title(text string) string {
	return truncateRunes(strings.TrimSpace(text), 60)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
