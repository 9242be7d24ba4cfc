package validate

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Length caps applied to raw request values.
const (
	MaxBodyValue  = 10000
	MaxQueryValue = 1000
	MaxParamValue = 100
)

var strictPolicy = bluemonday.StrictPolicy()

// Clean removes NUL bytes and truncates s to at most max runes.
func Clean(s string, max int) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if max > 0 && len(s) > max {
		r := []rune(s)
		if len(r) > max {
			s = string(r[:max])
		}
	}
	return s
}

// Text normalizes free text to NFC and strips all markup and surrounding
// space. The result is plain text; escaping is left to the templates.
func Text(s string) string {
	s = norm.NFC.String(s)
	s = strictPolicy.Sanitize(s)
	s = unescapeBasic(s)
	return strings.TrimSpace(s)
}

// Email trims, NFC-normalizes and lower-cases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

var basicEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#34;", `"`,
	"&#39;", "'",
	"&quot;", `"`,
)

// unescapeBasic reverts the entity escaping bluemonday applies to plain text,
// since html/template escapes again on output.
func unescapeBasic(s string) string {
	return basicEntities.Replace(s)
}
