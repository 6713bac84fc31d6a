// Package content turns raw extracted records into canonical article fields,
// scores and validates them, and suppresses duplicates within one run.
//
// Every function here is deterministic and never fails on malformed input;
// fields that cannot be cleaned come back empty.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/user/article-crawler/internal/entity"
)

const (
	excerptLength       = 160
	minTitleLength      = 6
	maxAuthors          = 3
	minAuthorLength     = 3
	maxImages           = 5
	maxKeywords         = 10
	defaultLanguage     = "en"
	minLanguageTextSize = 50
)

var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	titleSuffix   = regexp.MustCompile(`(\s+[-|]\s+|\s*[–—]\s*)[^-|–—]*$`)
	bangRun       = regexp.MustCompile(`!{3,}`)
	questionRun   = regexp.MustCompile(`\?{3,}`)
	authorPrefix  = regexp.MustCompile(`(?i)^(by|author:?)\s+`)

	boilerplate = []*regexp.Regexp{
		regexp.MustCompile(`(?i)subscribe to.*?newsletter`),
		regexp.MustCompile(`(?i)follow us on.*?social media`),
		regexp.MustCompile(`(?i)click here to.*?subscribe`),
		regexp.MustCompile(`(?i)advertisement`),
		regexp.MustCompile(`(?i)sponsored content`),
		regexp.MustCompile(`(?i)read more:`),
		regexp.MustCompile(`(?i)continue reading`),
	}
)

// languageOrder fixes tie-breaking between equally scored languages.
var languageOrder = []string{"en", "es", "fr", "de", "it"}

var stopWords = map[string][]string{
	"en": {"the", "and", "that", "have", "for", "not", "with", "you", "this", "but"},
	"es": {"que", "de", "no", "la", "el", "en", "un", "es", "se", "le"},
	"fr": {"que", "de", "je", "est", "pas", "le", "vous", "la", "tu", "il"},
	"de": {"der", "die", "und", "in", "den", "von", "zu", "das", "mit", "sich"},
	"it": {"che", "di", "da", "in", "un", "il", "del", "non", "sono", "una"},
}

// Normalize returns a cleaned copy of rec. sourceURL is used when the record
// carries no URL of its own.
func Normalize(rec *entity.ExtractedRecord, sourceURL string) *entity.ExtractedRecord {
	out := *rec

	rawURL := rec.URL
	if rawURL == "" {
		rawURL = sourceURL
	}
	out.URL = CanonicalURL(rawURL)
	if out.SourceURL == "" {
		out.SourceURL = sourceURL
	}

	out.Title = CleanTitle(rec.Title)
	out.Text = CleanBody(rec.Text)
	out.Excerpt = Excerpt(out.Text)
	out.Authors = CleanAuthorList(rec.Authors)
	out.Images = capList(rec.Images, maxImages)
	out.Keywords = capList(rec.Keywords, maxKeywords)
	out.Language = DetectLanguage(rec.Language, rec.Text)
	out.ContentHash = ContentHash(out.Text)
	if out.WordCount == 0 {
		out.WordCount = len(strings.Fields(out.Text))
	}
	return &out
}

// CanonicalURL strips tracking query parameters (utm_*, fbclid, gclid) and
// the fragment. Scheme, host, path and the remaining query keep their
// original form and order.
func CanonicalURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	var kept []string
	for _, param := range strings.Split(u.RawQuery, "&") {
		if param == "" {
			continue
		}
		name, _, _ := strings.Cut(param, "=")
		if isTrackingParam(name) {
			continue
		}
		kept = append(kept, param)
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	if len(kept) > 0 {
		b.WriteByte('?')
		b.WriteString(strings.Join(kept, "&"))
	}
	return b.String()
}

func isTrackingParam(name string) bool {
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "utm_") {
		return true
	}
	_, ok := trackingParams[name]
	return ok
}

// CleanTitle removes a trailing site-name suffix, collapses whitespace and
// runs of three or more '!' or '?'. Titles shorter than six characters are
// treated as absent.
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	title = titleSuffix.ReplaceAllString(title, "")
	title = collapseWhitespace(title)
	title = bangRun.ReplaceAllString(title, "!")
	title = questionRun.ReplaceAllString(title, "?")
	if utf8.RuneCountInString(title) < minTitleLength {
		return ""
	}
	return title
}

// CleanBody collapses whitespace and removes boilerplate phrases.
func CleanBody(body string) string {
	if body == "" {
		return ""
	}
	body = collapseWhitespace(body)
	for _, re := range boilerplate {
		body = re.ReplaceAllString(body, "")
	}
	return collapseWhitespace(body)
}

// Excerpt shortens text to roughly 160 characters, preferring a sentence
// end, then a word boundary, before falling back to a hard cut.
func Excerpt(text string) string {
	text = collapseWhitespace(text)
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}

	cut := runes[:excerptLength]
	lastSentence := lastIndexOf(cut, []rune(". "))
	lastSpace := lastIndexOf(cut, []rune(" "))

	switch {
	case float64(lastSentence) > excerptLength*0.7:
		return string(cut[:lastSentence+1])
	case float64(lastSpace) > excerptLength*0.8:
		return string(cut[:lastSpace]) + "..."
	default:
		return string(cut) + "..."
	}
}

func lastIndexOf(haystack, needle []rune) int {
	for i := len(haystack) - len(needle); i >= 0; i-- {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// CleanAuthorList strips "by"/"author:" prefixes, drops entries of two
// characters or fewer and keeps at most three names.
func CleanAuthorList(authors []string) []string {
	var clean []string
	for _, a := range authors {
		a = authorPrefix.ReplaceAllString(strings.TrimSpace(a), "")
		a = collapseWhitespace(a)
		if utf8.RuneCountInString(a) < minAuthorLength {
			continue
		}
		clean = append(clean, a)
		if len(clean) == maxAuthors {
			break
		}
	}
	return clean
}

// CleanAuthors is CleanAuthorList joined with ", ".
func CleanAuthors(authors []string) string {
	return strings.Join(CleanAuthorList(authors), ", ")
}

// ContentHash fingerprints body text independently of case, punctuation and
// whitespace. An empty body has no hash.
func ContentHash(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	normalized := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, body)
	normalized = strings.Join(strings.Fields(normalized), " ")

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// DetectLanguage prefers the extractor's tag and otherwise counts stop words.
func DetectLanguage(tag, text string) string {
	if tag = strings.TrimSpace(tag); tag != "" {
		primary, _, _ := strings.Cut(strings.ReplaceAll(tag, "_", "-"), "-")
		return strings.ToLower(primary)
	}
	if utf8.RuneCountInString(text) < minLanguageTextSize {
		return defaultLanguage
	}

	lower := strings.ToLower(text)
	best, bestScore := defaultLanguage, 0
	for _, lang := range languageOrder {
		score := 0
		for _, w := range stopWords[lang] {
			score += strings.Count(lower, " "+w+" ")
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	return best
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func capList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
