// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package failures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Categories are the fixed failure list names, in classification order.
// Earlier categories win when a message matches several. The names are a
// compatibility surface: recovery scripts consume failed_<category>.txt.
var Categories = []string{
	"network-timeout",
	"auth-expired",
	"msg-com-error",
	"corrupt-image",
	"password-protected",
	"unsupported-format",
	"corrupt-office",
}

// Rules maps each category to the lowercase substrings that select it.
type Rules map[string][]string

// DefaultRules covers both the legacy log vocabulary and the current engine
// messages.
func DefaultRules() Rules {
	return Rules{
		"network-timeout": {
			"timed out",
			"timeout",
			"deadline exceeded",
			"connection aborted",
			"connection reset",
		},
		"auth-expired": {
			"authenticationfailed",
			"server failed to authenticate",
			"credential",
			"token expired",
		},
		"msg-com-error": {
			"com_error",
			"openshareditem",
			"not mime",
			"outlook",
		},
		"corrupt-image": {
			"cannot identify image file",
			"image file is truncated",
			"broken data stream",
		},
		"password-protected": {
			"password",
			"encrypted",
		},
		"unsupported-format": {
			"unsupported file extension",
			"unsupported format",
			"no text/html or text/plain body",
		},
		"corrupt-office": {
			"produced no output",
			"could not be loaded",
			"corrupt",
			"malformed",
			"unexpected eof",
		},
	}
}

// LoadRules reads a category-to-patterns YAML mapping. Categories absent
// from the file keep their defaults; listed categories are replaced whole.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}

	rules := DefaultRules()
	for cat, patterns := range override {
		if !validCategory(cat) {
			return nil, fmt.Errorf("rules %s: unknown category %q", path, cat)
		}
		rules[cat] = patterns
	}
	return rules, nil
}

func validCategory(cat string) bool {
	for _, c := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Classify picks the first category whose patterns match the message, or ""
// when none do.
func (r Rules) Classify(msg string) string {
	lower := strings.ToLower(msg)
	for _, cat := range Categories {
		for _, pat := range r[cat] {
			if strings.Contains(lower, strings.ToLower(pat)) {
				return cat
			}
		}
	}
	return ""
}

// fallbackCategory buckets an unmatched failure by what the file is: image
// extensions group with image corruption, messages with the Outlook COM
// family, everything else with office corruption.
func fallbackCategory(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".heic":
		return "corrupt-image"
	case ".msg", ".eml":
		return "msg-com-error"
	default:
		return "corrupt-office"
	}
}
