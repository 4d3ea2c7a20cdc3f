package sanitizer

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = sync.OnceValue(bluemonday.StrictPolicy)

	// formatting covers what request bodies typically carry in rich text
	// fields: paragraphs, emphasis, lists, code and links.
	formatting = sync.OnceValue(func() *bluemonday.Policy {
		p := bluemonday.NewPolicy()
		p.AllowStandardURLs()
		p.AllowElements("p", "br", "strong", "b", "em", "i", "ul", "ol", "li", "code", "pre", "blockquote")
		p.AllowAttrs("href").OnElements("a")
		p.RequireNoFollowOnLinks(true)
		return p
	})

	policies   = map[string]*bluemonday.Policy{}
	policiesMu sync.RWMutex
)

// StripHTML removes every tag and returns plain text.
func StripHTML(s string) string {
	return strict().Sanitize(s)
}

// SanitizeHTML keeps basic formatting tags and links, adding rel="nofollow"
// to the latter. Scripts, event handlers and javascript: URLs are dropped.
func SanitizeHTML(s string) string {
	return formatting().Sanitize(s)
}

// RegisterPolicy makes policy available as a sanitize tag rule:
//
//	sanitizer.RegisterPolicy("ugc", bluemonday.UGCPolicy())
//
//	type Post struct {
//	    Body string `sanitize:"trim,ugc"`
//	}
//
// Built-in rule names cannot be overridden. A nil policy removes the rule.
func RegisterPolicy(rule string, policy *bluemonday.Policy) {
	policiesMu.Lock()
	defer policiesMu.Unlock()
	if policy == nil {
		delete(policies, rule)
		return
	}
	policies[rule] = policy
}

func policyFor(rule string) (*bluemonday.Policy, bool) {
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	p, ok := policies[rule]
	return p, ok
}
