package watcher

import (
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)

// ExtractAddresses pulls candidate token contract addresses out of a chat
// message, deduplicated in order of first appearance.
func ExtractAddresses(text string) []string {
	matches := addressPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// splitWords turns a comma-separated keyword list into trimmed lowercase terms.
func splitWords(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ContainsAny reports whether any term from the comma-separated list occurs
// in the message. An empty list matches nothing.
func ContainsAny(text, list string) bool {
	lowered := strings.ToLower(text)
	for _, w := range splitWords(list) {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
