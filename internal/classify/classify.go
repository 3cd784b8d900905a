// Package classify infers the kind of a piece of copied text so the overlay
// can offer matching actions. Classification is pure and total: any input,
// however malformed, yields a ContentType.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContentType is the inferred kind of a piece of content. It is derived on
// demand and never persisted with the bubble.
type ContentType int

const (
	TEXT ContentType = iota
	URL
	PHONE
	EMAIL
	ADDRESS
	CODE
)

var typeNames = [...]string{"TEXT", "URL", "PHONE", "EMAIL", "ADDRESS", "CODE"}

func (t ContentType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "TEXT"
	}
	return typeNames[t]
}

// Types lists every ContentType in declaration order.
func Types() []ContentType { return []ContentType{TEXT, URL, PHONE, EMAIL, ADDRESS, CODE} }

// ParseContentType converts a stored name back into a ContentType,
// returning TEXT for anything unknown.
func ParseContentType(s string) ContentType {
	for i, n := range typeNames {
		if strings.EqualFold(n, s) {
			return ContentType(i)
		}
	}
	return TEXT
}

// Result is the full outcome of classifying a string.
type Result struct {
	Type ContentType
	// Empty is set for blank input; consumers use it to suppress actions.
	Empty bool
	// Ambiguous is set when more than one rule matched or the match rests on
	// a weak heuristic. It never changes Type.
	Ambiguous bool
}

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 ()./\-]+$`)
	// house number followed by a word, or a word followed by a house number
	houseRe = regexp.MustCompile(`(?i)(^|\s)\d{1,5}[a-z]?\s+\p{L}{2,}|\p{L}{2,}\s+\d{1,5}(/\d{1,5})?[a-z]?(\s|$)`)
	zipRe   = regexp.MustCompile(`(^|\s)(\d{3}\s?\d{2}|\d{5}(-\d{4})?)(\s|$)`)
	codeKw  = regexp.MustCompile(`(^|[^\w])(func|function|class|def|return|import|package|const|let|var|public|private|static|void|struct|interface|fn|lambda|#include)([^\w]|$)`)
)

const minPhoneDigits = 7

// streetWords mark a comma-separated part as a street or locality.
var streetWords = []string{
	"street", "st.", "avenue", "ave", "road", "rd.", "boulevard", "blvd",
	"lane", "drive", "square", "place", "highway", "way",
	"ulice", "náměstí", "třída", "straße", "strasse", "platz", "rue", "via", "calle",
}

// placeWords are city and country names strong enough to flag an address.
var placeWords = []string{
	"prague", "praha", "brno", "ostrava", "vienna", "wien", "berlin", "munich",
	"paris", "london", "new york", "los angeles", "san francisco", "chicago",
	"madrid", "rome", "warsaw", "bratislava", "budapest", "amsterdam", "tokyo",
	"czech republic", "czechia", "germany", "austria", "slovakia", "poland",
	"france", "italy", "spain", "usa", "united states", "united kingdom", "uk",
	"canada", "japan",
}

// Classify returns the ContentType for text. First match wins in the order
// URL, EMAIL, PHONE, ADDRESS, CODE, TEXT.
func Classify(text string) ContentType { return Inspect(text).Type }

// Inspect classifies text and reports the blank and ambiguity flags.
func Inspect(text string) Result {
	s := strings.TrimSpace(text)
	if s == "" {
		return Result{Type: TEXT, Empty: true}
	}

	rules := []struct {
		t     ContentType
		match func(string) (bool, bool)
	}{
		{URL, strong(isURL)},
		{EMAIL, strong(isEmail)},
		{PHONE, strong(isPhone)},
		{ADDRESS, isAddress},
		{CODE, strong(isCode)},
	}

	res := Result{Type: TEXT}
	matched := false
	for _, r := range rules {
		ok, weak := r.match(s)
		if !ok {
			continue
		}
		if matched {
			res.Ambiguous = true
			break
		}
		matched = true
		res.Type = r.t
		res.Ambiguous = weak
	}
	return res
}

func strong(f func(string) bool) func(string) (bool, bool) {
	return func(s string) (bool, bool) { return f(s), false }
}

// isURL matches on the scheme prefix alone. Whatever follows is checked when
// the link is opened.
func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func isEmail(s string) bool {
	s = strings.TrimPrefix(s, "mailto:")
	return emailRe.MatchString(s)
}

func isPhone(s string) bool {
	if !phoneRe.MatchString(s) {
		return false
	}
	if strings.Count(s, "+") > 1 {
		return false
	}
	return len(Digits(s)) >= minPhoneDigits
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isAddress is a best-effort heuristic. Each comma-separated part may
// contribute street, house-number, place or postcode evidence. A known city
// or country is enough on its own; a street keyword needs a second kind of
// evidence. The second result reports a weak match: a place keyword alone,
// or exactly two signals.
func isAddress(s string) (bool, bool) {
	if strings.Count(s, "\n") > 3 || len(s) > 200 {
		return false, false
	}
	var parts []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\n", ","), ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, strings.ToLower(p))
		}
	}
	if len(parts) < 2 {
		return false, false
	}

	var street, house, place, zip bool
	for _, p := range parts {
		street = street || containsWord(p, streetWords)
		house = house || houseRe.MatchString(p)
		place = place || containsWord(p, placeWords)
		zip = zip || zipRe.MatchString(p)
	}
	if !street && !place {
		return false, false
	}
	score := 0
	for _, ok := range []bool{street, house, place, zip} {
		if ok {
			score++
		}
	}
	switch {
	case score >= 2:
		return true, score == 2
	case place:
		return true, true
	}
	return false, false
}

// containsWord reports whether any of words occurs in p on word boundaries.
func containsWord(p string, words []string) bool {
	for _, w := range words {
		for off := 0; off < len(p); {
			i := strings.Index(p[off:], w)
			if i < 0 {
				break
			}
			i += off
			end := i + len(w)
			before, _ := utf8.DecodeLastRuneInString(p[:i])
			after, _ := utf8.DecodeRuneInString(p[end:])
			if (i == 0 || !isWordRune(before)) && (end == len(p) || !isWordRune(after) || strings.HasSuffix(w, ".")) {
				return true
			}
			off = end
		}
	}
	return false
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// isCode wants a language keyword plus a structural token: balanced braces,
// an arrow, a statement-ending semicolon or a python-style block header.
func isCode(s string) bool {
	if !codeKw.MatchString(s) {
		return false
	}
	if open := strings.Count(s, "{"); open > 0 && open == strings.Count(s, "}") {
		return true
	}
	if strings.Contains(s, "=>") {
		return true
	}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, ";") {
			return true
		}
		if strings.HasSuffix(line, ":") && (strings.HasPrefix(line, "def ") || strings.HasPrefix(line, "class ")) {
			return true
		}
	}
	return false
}
