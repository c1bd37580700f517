package partial

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The expressions below are heuristics for text that is not yet valid JSON.
// They never decide whether a section exists; that is the job of the
// balanced scan.
var (
	titlePattern    = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)`)
	labelPattern    = regexp.MustCompile(`"label"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	sectionsPattern = regexp.MustCompile(`"sections"\s*:\s*\[`)
)

// ExtractTitle returns the value of the first "title" key in s, even when
// its closing quote has not arrived yet.
func ExtractTitle(s string) (string, bool) {
	m := titlePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return decodePartialString(m[1]), true
}

// ExtractLabels returns every complete "label" value found in s.
func ExtractLabels(s string) []string {
	var labels []string
	for _, m := range labelPattern.FindAllStringSubmatch(s, -1) {
		labels = append(labels, decodePartialString(m[1]))
	}
	return labels
}

// locateSections returns the offset just after the opening bracket of the
// "sections" list and the offset of the key itself.
func locateSections(s string) (body, key int, ok bool) {
	loc := sectionsPattern.FindStringIndex(s)
	if loc == nil {
		return 0, 0, false
	}
	return loc[1], loc[0], true
}

// decodePartialString unescapes the raw contents of a JSON string that may
// be cut off in the middle of an escape sequence.
func decodePartialString(raw string) string {
	var out string
	if json.Unmarshal([]byte(`"`+raw+`"`), &out) == nil {
		return out
	}
	if i := strings.LastIndexByte(raw, '\\'); i >= 0 && len(raw)-i <= 6 {
		if json.Unmarshal([]byte(`"`+raw[:i]+`"`), &out) == nil {
			return out
		}
	}
	return raw
}
