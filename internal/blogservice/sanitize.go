package blogservice

import (
	"regexp"
	"strings"
)

var scriptTagRX = regexp.MustCompile(`(?is)<\s*script[^>]*>(.*?)<\s*/\s*script\s*>`)

// sanitizeText strips script blocks from user supplied text.
func sanitizeText(s string) string {
	return strings.TrimSpace(scriptTagRX.ReplaceAllString(s, ""))
}
