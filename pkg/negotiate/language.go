package negotiate

import (
	"golang.org/x/text/language"
)

// Language picks the best supported language for an Accept-Language header.
// Matching follows BCP 47 rules from golang.org/x/text/language, so "en-GB"
// can select a supported "en". Falls back to the first valid supported tag
// when nothing matches or the header is empty or malformed.
// Returns "" if supported is empty or contains no valid tag.
func Language(header string, supported ...string) string {
	lang, ok := MatchLanguage(header, supported...)
	if ok {
		return lang
	}
	for _, s := range supported {
		if _, err := language.Parse(s); err == nil {
			return s
		}
	}
	return ""
}

// MatchLanguage is like Language but reports whether anything in header
// actually matched instead of falling back.
func MatchLanguage(header string, supported ...string) (string, bool) {
	tags := make([]language.Tag, 0, len(supported))
	index := make([]int, 0, len(supported))
	for i, s := range supported {
		t, err := language.Parse(s)
		if err != nil {
			continue
		}
		tags = append(tags, t)
		index = append(index, i)
	}
	if len(tags) == 0 || header == "" {
		return "", false
	}

	if len(header) > maxHeaderLength {
		header = header[:maxHeaderLength]
	}
	desired, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(desired) == 0 {
		return "", false
	}

	_, i, conf := language.NewMatcher(tags).Match(desired...)
	if conf == language.No {
		return "", false
	}
	return supported[index[i]], true
}
