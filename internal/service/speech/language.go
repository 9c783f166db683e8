package speech

import (
	"strings"
	"unicode"
)

// DetectLanguage 粗略判断文本语言：含天城文字符视为印地语，否则为英语。
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.In(r, unicode.Devanagari) {
			return "hi"
		}
	}
	return "en"
}

// NormalizeLanguage maps hints like "hi-IN" or "EN_us" to a base code.
// Unknown hints return "".
func NormalizeLanguage(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	switch {
	case strings.HasPrefix(hint, "hi"):
		return "hi"
	case strings.HasPrefix(hint, "en"):
		return "en"
	default:
		return ""
	}
}
