package utils

import "strings"

// CanonicalHostname returns a hostname in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot
// - No leading "www." (treated as an alias of the bare domain)
func CanonicalHostname(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	// remove all trailing dots
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	name = strings.TrimPrefix(name, "www.")
	return name
}

// ReverseLabels reorders a hostname's DNS labels root-first, so that parent
// domains become prefixes: "mail.example.com" -> "com.example.mail".
// The transform is its own inverse.
func ReverseLabels(name string) string {
	if !strings.Contains(name, ".") {
		return name
	}
	labels := strings.Split(name, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, ".")
}

// LabelPrefixes calls visit for every label-boundary prefix of a reversed key,
// shortest first: "com.example.mail" -> "com", "com.example", "com.example.mail".
// Iteration stops early when visit returns false.
func LabelPrefixes(reversed string, visit func(prefix string) bool) {
	for i := 0; i < len(reversed); i++ {
		if reversed[i] == '.' {
			if !visit(reversed[:i]) {
				return
			}
		}
	}
	if reversed != "" {
		visit(reversed)
	}
}
