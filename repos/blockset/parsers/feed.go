// Package parsers turns raw feed documents into reversed-label match keys.
package parsers

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	logpkg "github.com/kvasov/domshield/common/log"
	"github.com/kvasov/domshield/common/utils"
	"github.com/kvasov/domshield/domain"
)

// ParseFeed parses a newline-delimited list of domains, one per line, and
// emits each as a canonical reversed-label key.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Trims surrounding whitespace, strips a UTF-8 BOM and leading "www."
// - Skips empty lines and tokens that are not plausible hostnames
// - De-duplicates by canonical key while preserving first-seen order
//
// The reader is consumed incrementally, so callers can parse straight off a
// network body. A scan error discards the whole result; nothing partial is
// returned.
func ParseFeed(r io.Reader, logger logpkg.Logger, emit func(reversedKey string)) (uint64, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	var count uint64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		line = strings.TrimPrefix(line, "\uFEFF")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Strip inline comments
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}

		name := utils.CanonicalHostname(line)
		if !isPlausibleHostname(name) {
			logger.Debug(map[string]any{"line": lineNum, "raw": trimmed}, "skip_invalid_host")
			continue
		}

		key := utils.ReverseLabels(name)
		if _, ok := seen[key]; ok {
			logger.Debug(map[string]any{"line": lineNum, "name": name}, "skip_duplicate")
			continue
		}
		seen[key] = struct{}{}
		count++
		emit(key)
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("%w: line %d: %v", domain.ErrParse, lineNum, err)
	}
	logger.Debug(map[string]any{"lines": lineNum, "keys": count}, "parse_feed_done")
	return count, nil
}

// isPlausibleHostname applies the usual DNS shape limits:
//   - total length at most 253 characters
//   - at least two labels
//   - each label 1..63 characters, no embedded whitespace
func isPlausibleHostname(name string) bool {
	if len(name) == 0 || len(name) > 253 {
		return false
	}
	if strings.ContainsAny(name, " \t/") {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
	}
	return true
}
