package negotiate

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// maxHeaderLength caps how much of an Accept header is parsed.
const maxHeaderLength = 4096

// MediaRange is one entry of an Accept header.
type MediaRange struct {
	Type    string // "text", "application", "*"
	Subtype string // "html", "json", "*"
	Params  map[string]string
	Quality float64
	index   int
}

// String renders the range without parameters.
func (m MediaRange) String() string {
	return m.Type + "/" + m.Subtype
}

// Matches reports whether the concrete media type mediaType falls inside the range.
func (m MediaRange) Matches(mediaType string) bool {
	typ, sub, ok := splitMediaType(mediaType)
	if !ok {
		return false
	}
	switch {
	case m.Type == "*" && m.Subtype == "*":
		return true
	case m.Type != typ:
		return false
	case m.Subtype == "*":
		return true
	default:
		return m.Subtype == sub
	}
}

// specificity ranks exact ranges over type/* over */*.
func (m MediaRange) specificity() int {
	switch {
	case m.Type == "*":
		return 0
	case m.Subtype == "*":
		return 1
	default:
		return 2 + len(m.Params)
	}
}

// ParseAccept parses an Accept header into media ranges ordered by quality,
// highest first. Ranges with equal quality keep their declaration order.
// Malformed entries are skipped; a malformed q value counts as 0.
func ParseAccept(header string) []MediaRange {
	if len(header) > maxHeaderLength {
		header = header[:maxHeaderLength]
	}

	var ranges []MediaRange
	for i, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ";")
		typ, sub, ok := splitMediaType(strings.TrimSpace(fields[0]))
		if !ok {
			continue
		}
		if typ == "*" && sub != "*" {
			continue
		}

		mr := MediaRange{Type: typ, Subtype: sub, Quality: 1, index: i}
		for _, p := range fields[1:] {
			k, v, found := strings.Cut(strings.TrimSpace(p), "=")
			if !found {
				continue
			}
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.Trim(strings.TrimSpace(v), `"`)
			if k == "q" {
				mr.Quality = parseQuality(v)
				continue
			}
			if mr.Params == nil {
				mr.Params = make(map[string]string)
			}
			mr.Params[k] = v
		}
		ranges = append(ranges, mr)
	}

	slices.SortStableFunc(ranges, func(a, b MediaRange) int {
		return cmp.Compare(b.Quality, a.Quality)
	})
	return ranges
}

// Negotiate picks the offer preferred by the Accept header.
//
// Ranges are walked from highest to lowest quality (declaration order breaks
// ties); the first offer falling inside a range wins. Offers explicitly
// refused with q=0 are never chosen. An empty header selects the first offer.
// Returns "" when nothing is acceptable.
func Negotiate(header string, offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	if strings.TrimSpace(header) == "" {
		return offers[0]
	}

	ranges := ParseAccept(header)
	if len(ranges) == 0 {
		return offers[0]
	}

	for _, r := range ranges {
		if r.Quality <= 0 {
			break
		}
		for _, offer := range offers {
			if r.Matches(offer) && qualityFor(ranges, offer) > 0 {
				return offer
			}
		}
	}
	return ""
}

// Accepts reports whether mediaType is acceptable at a non-zero quality.
func Accepts(header, mediaType string) bool {
	if strings.TrimSpace(header) == "" {
		return true
	}
	return qualityFor(ParseAccept(header), mediaType) > 0
}

// qualityFor returns the quality of the most specific range matching mediaType.
func qualityFor(ranges []MediaRange, mediaType string) float64 {
	best := -1
	q := 0.0
	for _, r := range ranges {
		if !r.Matches(mediaType) {
			continue
		}
		if s := r.specificity(); s > best {
			best = s
			q = r.Quality
		}
	}
	return q
}

func splitMediaType(s string) (typ, sub string, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	typ, sub, ok = strings.Cut(s, "/")
	if !ok || typ == "" || sub == "" {
		return "", "", false
	}
	return typ, sub, true
}

func parseQuality(v string) float64 {
	q, err := strconv.ParseFloat(v, 64)
	if err != nil || q < 0 {
		return 0
	}
	return min(q, 1)
}
