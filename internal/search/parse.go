package search

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ParseResults extracts results from a search tool reply. The server's
// plain-text format is a numbered list:
//
//	1. Title
//	   URL: https://example.com
//	   Summary: snippet text
//
// JSON replies are accepted too: an array of {title|heading, url|link,
// snippet|body} objects, optionally wrapped in {"result": …} or
// {"results": …}. Entries without a URL are dropped.
func ParseResults(raw string) []Result {
	if results := parseNumbered(raw); len(results) > 0 {
		return results
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return fromJSON(v)
}

func parseNumbered(raw string) []Result {
	var (
		results []Result
		current Result
	)
	flush := func() {
		if current.URL != "" {
			if current.Title == "" {
				current.Title = current.URL
			}
			results = append(results, current)
		}
		current = Result{}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case unicode.IsDigit(rune(line[0])) && strings.Contains(line, ". "):
			flush()
			_, title, _ := strings.Cut(line, ". ")
			current.Title = strings.TrimSpace(title)
		case strings.HasPrefix(lower, "url:"):
			current.URL = strings.TrimSpace(line[len("url:"):])
		case strings.HasPrefix(lower, "summary:"):
			current.Snippet = strings.TrimSpace(line[len("summary:"):])
		}
	}
	flush()
	return results
}

func fromJSON(v any) []Result {
	switch t := v.(type) {
	case string:
		return ParseResults(t)
	case map[string]any:
		for _, key := range []string{"result", "results", "content"} {
			if inner, ok := t[key]; ok {
				return fromJSON(inner)
			}
		}
	case []any:
		var out []Result
		var texts []string
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok && m["url"] == nil {
				texts = append(texts, text)
				continue
			}
			r := Result{
				Title:   firstString(m, "title", "heading"),
				URL:     firstString(m, "url", "link"),
				Snippet: firstString(m, "snippet", "body"),
			}
			if r.URL == "" {
				continue
			}
			if r.Title == "" {
				r.Title = r.URL
			}
			out = append(out, r)
		}
		if len(out) == 0 && len(texts) > 0 {
			return parseNumbered(strings.Join(texts, "\n"))
		}
		return out
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// ContextBlock renders an outcome as the system message handed to the
// model, and returns the results it lists.
func ContextBlock(o Outcome, limit int) (string, []Result) {
	results := o.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	var b strings.Builder
	b.WriteString("Web search context:")
	for _, r := range results {
		b.WriteString("\n- " + r.Title + ": " + r.URL)
		if r.Snippet != "" {
			b.WriteString("\n  snippet: " + r.Snippet)
		}
	}
	if len(o.Fetched) > 0 {
		b.WriteString("\nFetched content excerpts:")
		for _, f := range o.Fetched {
			b.WriteString("\n- " + f.URL + ": " + f.Content)
		}
	}
	return b.String(), results
}
