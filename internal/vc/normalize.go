package vc

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Preferred query key order for normalized URLs. Cosmetic only — it keeps
// logs and tests stable, the vendor does not care about order.
var preferredKeyOrder = []string{"week", "day", "session", "i", "format", "version", "ad"}

// Fallback layouts for a brief's start date, tried after the exact
// yyyy-MM-dd form. The vendor is not consistent about this field.
var dateStartLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"Jan 2, 2006",
}

// NormalizeSessionURL rewrites a brief's relative session URL into the
// canonical form the detail endpoints expect: session and i forced to 0
// (a session always opens at its first sub-item), format/version
// defaulted, week/day taken from the brief, and the brief's start date
// injected as the ad (anchor date) parameter.
func NormalizeSessionURL(rawURL string, b SessionBrief) string {
	path, rawQuery, _ := strings.Cut(rawURL, "?")
	q := parseQuery(rawQuery)

	q["session"] = "0"
	q["i"] = "0"
	if q["format"] == "" {
		q["format"] = "Tablet"
	}
	if q["version"] == "" {
		q["version"] = "2"
	}
	if b.Week != "" {
		q["week"] = b.Week
	}
	if b.Day != "" {
		q["day"] = b.Day
	}
	if b.DateStart != "" {
		q["ad"] = anchorDate(b.DateStart)
	}

	return path + "?" + encodeQuery(q)
}

// parseQuery flattens a raw query string into a map. The last occurrence
// of a duplicated key wins.
func parseQuery(rawQuery string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		out[k] = v
	}
	return out
}

// encodeQuery writes the preferred keys first, then the rest in
// case-insensitive alphabetical order.
func encodeQuery(q map[string]string) string {
	seen := make(map[string]bool, len(q))
	parts := make([]string, 0, len(q))
	add := func(k string) {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(q[k]))
		seen[k] = true
	}

	for _, k := range preferredKeyOrder {
		if _, ok := q[k]; ok {
			add(k)
		}
	}

	rest := make([]string, 0, len(q))
	for k := range q {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return strings.ToLower(rest[i]) < strings.ToLower(rest[j])
	})
	for _, k := range rest {
		add(k)
	}

	return strings.Join(parts, "&")
}

// anchorDate normalizes a brief's start date to yyyy-MM-dd. Values in the
// exact form pass through; otherwise the fallback layouts are tried, and
// an unparsable value passes through unchanged.
func anchorDate(s string) string {
	if _, err := time.Parse(DateFormat, s); err == nil {
		return s
	}
	for _, layout := range dateStartLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateFormat)
		}
	}
	return s
}

// SessionIndex reads the session query parameter of a URL as an integer.
// Absent or unparsable values rank last, so they lose any dedupe
// tie-break.
func SessionIndex(rawURL string) int {
	_, rawQuery, _ := strings.Cut(rawURL, "?")
	v, ok := parseQuery(rawQuery)["session"]
	if !ok {
		return math.MaxInt
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Dedupe collapses briefs that point at the same person and program
// name, keeping the one with the lowest session index. Order of first
// occurrence is preserved.
func Dedupe(briefs []SessionBrief) []SessionBrief {
	type slot struct {
		index int
		pos   int
	}
	best := make(map[string]slot, len(briefs))
	out := make([]SessionBrief, 0, len(briefs))

	for _, b := range briefs {
		k := b.Client + "\x00" + b.Title
		idx := SessionIndex(b.URL)
		if s, ok := best[k]; ok {
			if idx < s.index {
				out[s.pos] = b
				best[k] = slot{index: idx, pos: s.pos}
			}
			continue
		}
		best[k] = slot{index: idx, pos: len(out)}
		out = append(out, b)
	}
	return out
}

// ParseSessionPath matches /Session/{id}?week=&day=&session=&i= and
// returns the session id plus the week:day:session:i composite key the
// summary endpoint expects. ok is false when the URL does not match.
func ParseSessionPath(rawURL string) (id, key string, ok bool) {
	path, rawQuery, _ := strings.Cut(rawURL, "?")

	const prefix = "/Session/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	id = strings.TrimPrefix(path, prefix)
	if id == "" || strings.ContainsRune(id, '/') {
		return "", "", false
	}

	q := parseQuery(rawQuery)
	fields := make([]string, 0, 4)
	for _, k := range []string{"week", "day", "session", "i"} {
		v, present := q[k]
		if !present {
			return "", "", false
		}
		fields = append(fields, v)
	}
	return id, strings.Join(fields, ":"), true
}
